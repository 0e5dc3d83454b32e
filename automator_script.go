package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// AppleScript sources sent to System Events. They act on the frontmost
// application, which is why the app hides itself before capturing.
const (
	scriptSelectAll = `tell application "System Events" to keystroke "a" using command down`
	scriptCopy      = `tell application "System Events" to keystroke "c" using command down`
	scriptPaste     = `tell application "System Events" to keystroke "v" using command down`
	// ⌘→ jumps to the end of the line, Return opens a new one.
	scriptCaretBelow = `tell application "System Events"
	key code 124 using command down
	key code 36
end tell`
)

// scriptRunner executes one AppleScript program.
type scriptRunner func(ctx context.Context, script string) error

// scriptAutomator drives the foreground application through osascript.
// Requires the Accessibility permission for the hosting process.
type scriptAutomator struct {
	run    scriptRunner
	settle time.Duration
}

func newScriptAutomator(settle time.Duration) *scriptAutomator {
	return &scriptAutomator{run: runOsascript, settle: settle}
}

func (s *scriptAutomator) Name() string { return "script" }

func (s *scriptAutomator) SelectAll(ctx context.Context) error {
	return s.exec(ctx, "selectAll", scriptSelectAll)
}

func (s *scriptAutomator) CopySelectedText(ctx context.Context) error {
	return s.exec(ctx, "copy", scriptCopy)
}

func (s *scriptAutomator) MoveCaretBelow(ctx context.Context) error {
	return s.exec(ctx, "caretBelow", scriptCaretBelow)
}

func (s *scriptAutomator) PasteText(ctx context.Context) error {
	return s.exec(ctx, "paste", scriptPaste)
}

func (s *scriptAutomator) exec(ctx context.Context, op, script string) error {
	if err := s.run(ctx, script); err != nil {
		return newAutomationError(op, s.Name(), err)
	}
	if err := settle(ctx, s.settle); err != nil {
		return newAutomationError(op, s.Name(), err)
	}
	return nil
}

// runOsascript runs script with osascript and folds its stderr into the error.
func runOsascript(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("osascript: %w", ctxErr)
		}
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
