package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// automationBackend is the per-platform capability set. Implementations act on
// the focused foreground application, keep no state between calls and fail
// with *AutomationError.
type automationBackend interface {
	Name() string
	SelectAll(ctx context.Context) error
	CopySelectedText(ctx context.Context) error
	MoveCaretBelow(ctx context.Context) error
	PasteText(ctx context.Context) error
}

// Automator reads the current selection and injects text using the clipboard
// as a side channel. The user's clipboard is saved before every automation
// driven mutation and restored on every exit path. Operations are serialized:
// the clipboard is one shared resource and capture/inject cycles must not
// interleave.
type Automator struct {
	backend   automationBackend
	clipboard clipboardBackend
	sem       *semaphore.Weighted
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAutomator binds the backend for this platform. Call once per process.
func NewAutomator(cfg AutomationConfig, logger *zap.Logger) *Automator {
	return newAutomatorWithBackends(
		newPlatformBackend(cfg.SettleDelay.Std()),
		realClipboard{},
		cfg.Timeout.Std(),
		logger,
	)
}

// newAutomatorWithBackends wires in custom backends (tests only).
func newAutomatorWithBackends(b automationBackend, cb clipboardBackend, timeout time.Duration, logger *zap.Logger) *Automator {
	a := &Automator{
		backend:   b,
		clipboard: cb,
		sem:       semaphore.NewWeighted(1),
		timeout:   timeout,
		logger:    logger.Named("automator"),
	}
	a.logger.Info("backend bound", zap.String("backend", b.Name()))
	return a
}

// Backend reports the name of the bound backend.
func (a *Automator) Backend() string { return a.backend.Name() }

// acquire takes the automator for one operation, bounded by the configured timeout.
func (a *Automator) acquire(ctx context.Context, op string) (context.Context, func(), error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		if err := a.sem.Acquire(ctx, 1); err != nil {
			cancel()
			return nil, nil, a.fail(op, &AutomationError{Op: op, Backend: a.backend.Name(), Reason: reasonBusy, Err: err})
		}
		return ctx, func() { a.sem.Release(1); cancel() }, nil
	}
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, a.fail(op, &AutomationError{Op: op, Backend: a.backend.Name(), Reason: reasonBusy, Err: err})
	}
	return ctx, func() { a.sem.Release(1) }, nil
}

// fail normalizes err into an *AutomationError and logs it.
func (a *Automator) fail(op string, err error) error {
	var ae *AutomationError
	if !errors.As(err, &ae) {
		ae = newAutomationError(op, a.backend.Name(), err)
	}
	a.logger.Warn("automation failed",
		zap.String("op", ae.Op),
		zap.String("backend", ae.Backend),
		zap.String("reason", ae.Reason),
		zap.Error(ae.Err),
	)
	return ae
}

func (a *Automator) clipboardFailure(op string, err error) error {
	return a.fail(op, &AutomationError{Op: op, Backend: a.backend.Name(), Reason: reasonClipboard, Err: err})
}

// SelectAll selects everything in the focused control.
func (a *Automator) SelectAll(ctx context.Context) error {
	ctx, release, err := a.acquire(ctx, "selectAll")
	if err != nil {
		return err
	}
	defer release()
	if err := a.backend.SelectAll(ctx); err != nil {
		return a.fail("selectAll", err)
	}
	return nil
}

// MoveCaretBelow moves the caret to a fresh line below the current one.
func (a *Automator) MoveCaretBelow(ctx context.Context) error {
	ctx, release, err := a.acquire(ctx, "caretBelow")
	if err != nil {
		return err
	}
	defer release()
	if err := a.backend.MoveCaretBelow(ctx); err != nil {
		return a.fail("caretBelow", err)
	}
	return nil
}

// GetSelectedText returns the text highlighted in the focused application.
// The clipboard is blanked before the synthetic copy so a copy that did
// nothing reads as "" rather than as the user's previous clipboard. On any
// failure it returns "" together with the error.
func (a *Automator) GetSelectedText(ctx context.Context) (text string, err error) {
	ctx, release, err := a.acquire(ctx, "copy")
	if err != nil {
		return "", err
	}
	defer release()

	saved, err := a.clipboard.ReadAll()
	if err != nil {
		return "", a.clipboardFailure("copy", fmt.Errorf("save clipboard: %w", err))
	}
	defer func() {
		if rerr := a.restore(saved); rerr != nil && err == nil {
			text, err = "", rerr
		}
	}()

	if err := a.clipboard.WriteAll(""); err != nil {
		return "", a.clipboardFailure("copy", fmt.Errorf("clear clipboard: %w", err))
	}
	if err := a.backend.CopySelectedText(ctx); err != nil {
		return "", a.fail("copy", err)
	}
	selected, err := a.clipboard.ReadAll()
	if err != nil {
		return "", a.clipboardFailure("copy", fmt.Errorf("read selection: %w", err))
	}
	a.logger.Debug("selection captured", zap.Int("chars", len([]rune(selected))))
	return selected, nil
}

// PasteText types text into the focused application through a synthetic
// paste. It does not know whether the paste actually landed.
func (a *Automator) PasteText(ctx context.Context, text string) (err error) {
	ctx, release, err := a.acquire(ctx, "paste")
	if err != nil {
		return err
	}
	defer release()

	saved, err := a.clipboard.ReadAll()
	if err != nil {
		return a.clipboardFailure("paste", fmt.Errorf("save clipboard: %w", err))
	}
	defer func() {
		if rerr := a.restore(saved); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := a.clipboard.WriteAll(text); err != nil {
		return a.clipboardFailure("paste", fmt.Errorf("stage text: %w", err))
	}
	if err := a.backend.PasteText(ctx); err != nil {
		return a.fail("paste", err)
	}
	a.logger.Debug("text pasted", zap.Int("chars", len([]rune(text))))
	return nil
}

// CopyToClipboard replaces the clipboard with text. Nothing is restored: the
// user asked for the clipboard to change.
func (a *Automator) CopyToClipboard(text string) error {
	if err := a.clipboard.WriteAll(text); err != nil {
		return a.clipboardFailure("clipboardCopy", err)
	}
	return nil
}

func (a *Automator) restore(saved string) error {
	if err := a.clipboard.WriteAll(saved); err != nil {
		a.logger.Error("clipboard restore failed", zap.Error(err))
		return &AutomationError{Op: "restore", Backend: a.backend.Name(), Reason: reasonClipboard, Err: err}
	}
	return nil
}

// settle waits d after synthetic input so the OS clipboard and caret catch up.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
