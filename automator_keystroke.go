package main

import (
	"context"
	"fmt"
	"time"
)

// keyName is a platform-neutral key; injectors map it to their own codes.
type keyName int

const (
	keyA keyName = iota
	keyC
	keyV
	keyEnd
	keyEnter
)

func (k keyName) String() string {
	switch k {
	case keyA:
		return "A"
	case keyC:
		return "C"
	case keyV:
		return "V"
	case keyEnd:
		return "End"
	case keyEnter:
		return "Enter"
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// keyChord is one key press, optionally with Ctrl held.
type keyChord struct {
	ctrl bool
	key  keyName
}

func (c keyChord) String() string {
	if c.ctrl {
		return "Ctrl+" + c.key.String()
	}
	return c.key.String()
}

var (
	chordSelectAll  = []keyChord{{ctrl: true, key: keyA}}
	chordCopy       = []keyChord{{ctrl: true, key: keyC}}
	chordPaste      = []keyChord{{ctrl: true, key: keyV}}
	chordCaretBelow = []keyChord{{key: keyEnd}, {key: keyEnter}}
)

// keyInjector sends one synthetic chord to whatever window has focus.
// ctx bounds any wait the injector needs before input is accepted.
type keyInjector interface {
	Press(ctx context.Context, chord keyChord) error
}

// keystrokeAutomator implements the capability set with Ctrl-based shortcuts.
// It backs both the Windows (user32) and the portable (keybd_event) variants.
type keystrokeAutomator struct {
	name     string
	injector keyInjector
	settle   time.Duration
}

func newKeystrokeAutomator(name string, inj keyInjector, settle time.Duration) *keystrokeAutomator {
	return &keystrokeAutomator{name: name, injector: inj, settle: settle}
}

func (k *keystrokeAutomator) Name() string { return k.name }

func (k *keystrokeAutomator) SelectAll(ctx context.Context) error {
	return k.press(ctx, "selectAll", chordSelectAll)
}

func (k *keystrokeAutomator) CopySelectedText(ctx context.Context) error {
	return k.press(ctx, "copy", chordCopy)
}

func (k *keystrokeAutomator) MoveCaretBelow(ctx context.Context) error {
	return k.press(ctx, "caretBelow", chordCaretBelow)
}

func (k *keystrokeAutomator) PasteText(ctx context.Context) error {
	return k.press(ctx, "paste", chordPaste)
}

func (k *keystrokeAutomator) press(ctx context.Context, op string, chords []keyChord) error {
	for _, c := range chords {
		if err := ctx.Err(); err != nil {
			return newAutomationError(op, k.name, err)
		}
		if err := k.injector.Press(ctx, c); err != nil {
			return newAutomationError(op, k.name, fmt.Errorf("%s: %w", c, err))
		}
	}
	if err := settle(ctx, k.settle); err != nil {
		return newAutomationError(op, k.name, err)
	}
	return nil
}
