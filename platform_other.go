//go:build !darwin && !windows

package main

import "time"

// newPlatformBackend falls back to the portable keyboard-event library. The
// input device is created in the background right away.
func newPlatformBackend(settle time.Duration) automationBackend {
	inj := &robotInjector{}
	go inj.prepare()
	return newKeystrokeAutomator("robot", inj, settle)
}
