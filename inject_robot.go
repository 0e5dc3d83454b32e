//go:build !darwin && !windows

package main

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

var robotKeys = map[keyName]int{
	keyA:     keybd_event.VK_A,
	keyC:     keybd_event.VK_C,
	keyV:     keybd_event.VK_V,
	keyEnd:   keybd_event.VK_END,
	keyEnter: keybd_event.VK_ENTER,
}

// uinputWarmup is how long a new uinput device takes to be picked up by the desktop.
const uinputWarmup = 2 * time.Second

// robotInjector wraps micmonay/keybd_event (uinput on Linux).
// The virtual keyboard is created once, by prepare or on first use. Presses
// wait until the desktop has picked the new device up, bounded by their ctx.
type robotInjector struct {
	once    sync.Once
	kb      keybd_event.KeyBonding
	initErr error
	readyAt time.Time
}

func (r *robotInjector) init() {
	r.kb, r.initErr = keybd_event.NewKeyBonding()
	if r.initErr == nil && runtime.GOOS == "linux" {
		r.readyAt = time.Now().Add(uinputWarmup)
	}
}

// prepare creates the device ahead of the first press so its warm-up does
// not count against an automation timeout.
func (r *robotInjector) prepare() { r.once.Do(r.init) }

func (r *robotInjector) Press(ctx context.Context, c keyChord) error {
	r.once.Do(r.init)
	if r.initErr != nil {
		return fmt.Errorf("keybd_event: %w", r.initErr)
	}
	if err := settle(ctx, time.Until(r.readyAt)); err != nil {
		return fmt.Errorf("waiting for input device: %w", err)
	}
	code, ok := robotKeys[c.key]
	if !ok {
		return fmt.Errorf("no key code for %s", c.key)
	}
	r.kb.Clear()
	r.kb.SetKeys(code)
	r.kb.HasCTRL(c.ctrl)
	return r.kb.Launching()
}
