package main

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit
#import <AppKit/AppKit.h>

// hideFromDock switches to the Accessory activation policy: no Dock icon and
// no Cmd-Tab entry, so hiding the app returns focus to the previous one.
void hideFromDock() {
    if ([NSApp isRunning]) {
        [NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
    }
}
*/
import "C"

import "go.uber.org/zap"

// HideFromDock removes the app's Dock icon at runtime.
// No-op if called before the Cocoa run loop is running.
func HideFromDock() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Named("tray").Warn("HideFromDock skipped, no run loop", zap.Any("panic", r))
		}
	}()
	C.hideFromDock()
}
