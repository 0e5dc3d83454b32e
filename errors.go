package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySelection is returned when the focused application had no highlighted text.
var ErrEmptySelection = errors.New("no text selected")

// ErrNoLLM is returned when no engine can be built from the current configuration.
var ErrNoLLM = errors.New("llm: no engine configured, add an API key or switch to ollama")

// ErrEmptyCompletion is returned when the engine answered without any content.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// ErrPipelineBusy is returned when a command is triggered while another one is in flight.
var ErrPipelineBusy = errors.New("commander: another command is already running")

// ErrUnknownAction is returned for commands whose action is not one of the four supported ones.
var ErrUnknownAction = errors.New("commander: unknown action")

// ErrUnknownCommand is returned when a command id does not match any configured command.
var ErrUnknownCommand = errors.New("commander: unknown command")

// Automation failure reasons reported in AutomationError.Reason.
const (
	reasonPermission = "permission denied"
	reasonTimeout    = "timeout"
	reasonBusy       = "automator busy"
	reasonClipboard  = "clipboard unavailable"
	reasonInjection  = "input injection failed"
)

// AutomationError is the single failure type returned by automator backends
// and the facade, so callers can contain failures uniformly.
type AutomationError struct {
	Op      string // selectAll, copy, caretBelow, paste, restore
	Backend string
	Reason  string
	Err     error
}

func (e *AutomationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "automation: %s via %s: %s", e.Op, e.Backend, e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AutomationError) Unwrap() error { return e.Err }

// newAutomationError classifies err into a reason.
func newAutomationError(op, backend string, err error) *AutomationError {
	return &AutomationError{Op: op, Backend: backend, Reason: classifyAutomationFailure(err), Err: err}
}

func classifyAutomationFailure(err error) string {
	if err == nil {
		return reasonInjection
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return reasonTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not allowed"),
		strings.Contains(msg, "assistive access"),
		strings.Contains(msg, "(-1002)"),
		strings.Contains(msg, "(-1743)"),
		strings.Contains(msg, "permission denied"):
		return reasonPermission
	}
	return reasonInjection
}

// LLMError wraps a failed or empty completion with the engine and model used.
type LLMError struct {
	Engine string
	Model  string
	Err    error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm: %s/%s: %v", e.Engine, e.Model, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }
