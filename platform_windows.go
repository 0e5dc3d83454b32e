//go:build windows

package main

import "time"

// newPlatformBackend injects keystrokes through user32.
func newPlatformBackend(settle time.Duration) automationBackend {
	return newKeystrokeAutomator("windows", windowsInjector{}, settle)
}
