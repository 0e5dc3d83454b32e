//go:build windows

package main

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent = user32.NewProc("keybd_event")
)

const (
	keyeventfKeyUp = 0x0002
	vkControl      = 0x11
)

var windowsVirtualKeys = map[keyName]byte{
	keyA:     0x41,
	keyC:     0x43,
	keyV:     0x56,
	keyEnd:   0x23,
	keyEnter: 0x0D,
}

// windowsInjector posts key events into the system input stream; they are
// delivered to the foreground window's thread.
type windowsInjector struct{}

func (windowsInjector) Press(_ context.Context, c keyChord) error {
	if err := procKeybdEvent.Find(); err != nil {
		return fmt.Errorf("user32 keybd_event: %w", err)
	}
	vk, ok := windowsVirtualKeys[c.key]
	if !ok {
		return fmt.Errorf("no virtual key for %s", c.key)
	}
	if c.ctrl {
		keybdEvent(vkControl, 0)
	}
	keybdEvent(vk, 0)
	keybdEvent(vk, keyeventfKeyUp)
	if c.ctrl {
		keybdEvent(vkControl, keyeventfKeyUp)
	}
	return nil
}

// keybdEvent returns void; the error from Call is always set and meaningless.
func keybdEvent(vk byte, flags uintptr) {
	procKeybdEvent.Call(uintptr(vk), 0, flags, 0) //nolint:errcheck
}
