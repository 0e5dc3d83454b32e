package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const emptySelectionBody = "Please highlight the text you want to analyze"

// PipelineState is where the command pipeline currently is.
type PipelineState int32

const (
	StateIdle PipelineState = iota
	StateCapturingSelection
	StateAwaitingChoice
	StatePrompting
	StateInjecting
	StateAborted
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturingSelection:
		return "capturing"
	case StateAwaitingChoice:
		return "awaiting-choice"
	case StatePrompting:
		return "prompting"
	case StateInjecting:
		return "injecting"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// automation is the part of the Automator the pipeline uses.
type automation interface {
	GetSelectedText(ctx context.Context) (string, error)
	MoveCaretBelow(ctx context.Context) error
	PasteText(ctx context.Context, text string) error
	CopyToClipboard(text string) error
}

// Commander runs the capture → palette → prompt → inject pipeline.
// Only one pipeline step runs at a time; a trigger that arrives while one is
// running is rejected with ErrPipelineBusy.
type Commander struct {
	automator automation
	windows   windowManager
	notify    notifier
	newLLM    llmFactory
	config    func() Config
	logger    *zap.Logger

	running sync.Mutex
	state   atomic.Int32
}

// NewCommander wires the pipeline to its collaborators. config is called once
// per RunCommand so settings edits apply to the next command.
func NewCommander(a automation, w windowManager, n notifier, config func() Config, newLLM llmFactory, logger *zap.Logger) *Commander {
	return &Commander{
		automator: a,
		windows:   w,
		notify:    n,
		newLLM:    newLLM,
		config:    config,
		logger:    logger.Named("commander"),
	}
}

// State reports the current pipeline state.
func (c *Commander) State() PipelineState {
	return PipelineState(c.state.Load())
}

func (c *Commander) setState(s PipelineState) {
	if prev := PipelineState(c.state.Swap(int32(s))); prev != s {
		c.logger.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// PrepareCommand hides the app, captures the selection of the application
// that had focus before it and opens the palette with it. With nothing
// selected it notifies the user once, restores the app's windows and returns
// ErrEmptySelection.
func (c *Commander) PrepareCommand(ctx context.Context) (string, error) {
	if !c.running.TryLock() {
		return "", ErrPipelineBusy
	}
	defer c.running.Unlock()

	c.setState(StateCapturingSelection)
	c.windows.HideActiveWindows()
	c.windows.ReleaseFocus()

	text, err := c.automator.GetSelectedText(ctx)
	if err != nil {
		c.logger.Warn("selection capture failed", zap.Error(err))
	}
	if strings.TrimSpace(text) == "" {
		c.setState(StateAborted)
		if nerr := c.notify.Show(appTitle, emptySelectionBody); nerr != nil {
			c.logger.Warn("notification failed", zap.Error(nerr))
		}
		c.logger.Info("no text selected")
		c.windows.RestoreWindows()
		c.setState(StateIdle)
		if err != nil {
			return "", errors.Join(ErrEmptySelection, err)
		}
		return "", ErrEmptySelection
	}

	c.logger.Debug("text grabbed", zap.String("preview", preview(text, 50)))
	c.windows.OpenCommandPalette(text)
	c.setState(StateAwaitingChoice)
	return text, nil
}

// Dismiss abandons a palette that was closed without choosing a command.
// It is a no-op unless the pipeline is waiting for a choice.
func (c *Commander) Dismiss() {
	if !c.running.TryLock() {
		return
	}
	defer c.running.Unlock()
	if c.State() != StateAwaitingChoice {
		return
	}
	c.setState(StateAborted)
	c.logger.Debug("palette dismissed")
	c.setState(StateIdle)
}

// RunCommand builds the prompt for cmd from text and handles the result as
// cmd.Action says. chat_window only opens a seeded chat; every other action
// completes the prompt and injects the answer. The waiting panel is force
// closed and focus released on every return path.
func (c *Commander) RunCommand(ctx context.Context, text string, cmd Command) (result *CommandResult, err error) {
	if !c.running.TryLock() {
		return nil, ErrPipelineBusy
	}
	defer c.running.Unlock()

	result = &CommandResult{Text: text}
	defer func() {
		c.windows.CloseWaitingPanel(true)
		c.windows.ReleaseFocus()
		c.setState(StateIdle)
		if err != nil {
			c.logFailure(cmd, err)
		}
	}()

	if !cmd.Action.Valid() {
		return result, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}

	cfg := c.config()
	engine := cmd.Engine
	if engine == "" {
		engine = cfg.LLM.Engine
	}
	model := cmd.Model
	if model == "" {
		model = cfg.ActiveModel(engine)
	}
	result.Prompt = cmd.BuildPrompt(text)

	if cmd.Action == ActionChatWindow {
		ref, err := c.windows.OpenChatWindow(ChatSeed{Prompt: result.Prompt, Engine: engine, Model: model})
		if err != nil {
			return result, fmt.Errorf("open chat window: %w", err)
		}
		result.ChatWindow = &ref
		return result, nil
	}

	c.setState(StatePrompting)
	c.windows.OpenWaitingPanel()
	c.logger.Debug("prompting",
		zap.String("command", cmd.ID),
		zap.String("engine", engine),
		zap.String("model", model),
		zap.String("prompt", preview(result.Prompt, 50)),
	)
	response, err := c.complete(ctx, cfg, engine, model, result.Prompt, cmd.Temperature)
	if err != nil {
		return result, err
	}
	result.Response = response

	c.windows.CloseWaitingPanel(false)
	c.windows.ReleaseFocus()

	c.setState(StateInjecting)
	c.logger.Debug("injecting", zap.String("action", string(cmd.Action)), zap.String("response", preview(response, 50)))
	if err := c.inject(ctx, cmd.Action, response); err != nil {
		return result, err
	}
	return result, nil
}

// complete makes the single completion call of a pipeline run.
func (c *Commander) complete(ctx context.Context, cfg Config, engine, model, prompt string, temperature *float64) (string, error) {
	llm := c.newLLM(cfg, engine)
	if llm == nil {
		return "", &LLMError{Engine: engine, Model: model, Err: ErrNoLLM}
	}
	if timeout := cfg.LLM.Timeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := llm.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}}, CompletionOptions{
		Model:       model,
		Temperature: temperature,
	})
	if err != nil {
		return "", &LLMError{Engine: engine, Model: model, Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", &LLMError{Engine: engine, Model: model, Err: ErrEmptyCompletion}
	}
	return resp.Content, nil
}

// inject writes text back as action says. A failed caret move does not stop
// the paste: the text then lands at the caret instead of below it.
func (c *Commander) inject(ctx context.Context, action Action, text string) error {
	switch action {
	case ActionPasteBelow:
		if err := c.automator.MoveCaretBelow(ctx); err != nil {
			c.logger.Warn("caret move failed, pasting at caret", zap.Error(err))
		}
		return c.automator.PasteText(ctx, text)
	case ActionPasteInPlace:
		return c.automator.PasteText(ctx, text)
	case ActionClipboardCopy:
		return c.automator.CopyToClipboard(text)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

func (c *Commander) logFailure(cmd Command, err error) {
	fields := []zap.Field{zap.String("command", cmd.ID), zap.String("action", string(cmd.Action)), zap.Error(err)}
	var le *LLMError
	if errors.As(err, &le) {
		fields = append(fields, zap.String("engine", le.Engine), zap.String("model", le.Model))
	}
	var ae *AutomationError
	if errors.As(err, &ae) {
		fields = append(fields, zap.String("op", ae.Op), zap.String("reason", ae.Reason))
	}
	c.logger.Error("command failed", fields...)
}
