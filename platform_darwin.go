//go:build darwin

package main

import "time"

// newPlatformBackend uses AppleScript: macOS has a native scripting bridge.
func newPlatformBackend(settle time.Duration) automationBackend {
	return newScriptAutomator(settle)
}
