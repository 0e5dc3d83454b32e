package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recorder collects collaborator calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

type mockAutomation struct {
	rec       *recorder
	selection string
	selectErr error
	caretErr  error
	pasteErr  error
	pasted    []string
	copied    []string
}

func (m *mockAutomation) GetSelectedText(context.Context) (string, error) {
	m.rec.add("getSelectedText")
	return m.selection, m.selectErr
}

func (m *mockAutomation) MoveCaretBelow(context.Context) error {
	m.rec.add("moveCaretBelow")
	return m.caretErr
}

func (m *mockAutomation) PasteText(_ context.Context, text string) error {
	m.rec.add("pasteText")
	m.pasted = append(m.pasted, text)
	return m.pasteErr
}

func (m *mockAutomation) CopyToClipboard(text string) error {
	m.rec.add("copyToClipboard")
	m.copied = append(m.copied, text)
	return nil
}

type mockWindows struct {
	rec     *recorder
	palette []string
	seeds   []ChatSeed
	chatErr error
}

func (m *mockWindows) HideActiveWindows() { m.rec.add("hideActiveWindows") }
func (m *mockWindows) ReleaseFocus()      { m.rec.add("releaseFocus") }
func (m *mockWindows) RestoreWindows()    { m.rec.add("restoreWindows") }
func (m *mockWindows) OpenWaitingPanel()  { m.rec.add("openWaitingPanel") }

func (m *mockWindows) OpenCommandPalette(text string) {
	m.rec.add("openCommandPalette")
	m.palette = append(m.palette, text)
}

func (m *mockWindows) CloseWaitingPanel(force bool) {
	if force {
		m.rec.add("closeWaitingPanel(force)")
		return
	}
	m.rec.add("closeWaitingPanel")
}

func (m *mockWindows) OpenChatWindow(seed ChatSeed) (ChatWindowRef, error) {
	m.rec.add("openChatWindow")
	m.seeds = append(m.seeds, seed)
	return ChatWindowRef{ID: "chat-1"}, m.chatErr
}

type mockNotifier struct {
	rec    *recorder
	bodies []string
}

func (m *mockNotifier) Show(title, body string) error {
	m.rec.add("notify")
	m.bodies = append(m.bodies, body)
	return nil
}

type mockLLM struct {
	rec      *recorder
	response string
	err      error
	got      [][]Message
	opts     []CompletionOptions
	block    chan struct{}
}

func (m *mockLLM) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (Completion, error) {
	m.rec.add("complete")
	m.got = append(m.got, messages)
	m.opts = append(m.opts, opts)
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return Completion{}, m.err
	}
	return Completion{Content: m.response}, nil
}

type commanderFixture struct {
	rec       *recorder
	automator *mockAutomation
	windows   *mockWindows
	notify    *mockNotifier
	llm       *mockLLM
	engines   []string
	cfg       Config
	commander *Commander
}

func newCommanderFixture(t *testing.T) *commanderFixture {
	t.Helper()
	rec := &recorder{}
	f := &commanderFixture{
		rec:       rec,
		automator: &mockAutomation{rec: rec},
		windows:   &mockWindows{rec: rec},
		notify:    &mockNotifier{rec: rec},
		llm:       &mockLLM{rec: rec, response: "generated"},
		cfg:       defaultConfig(),
	}
	factory := func(cfg Config, engine string) llmClient {
		f.engines = append(f.engines, engine)
		if f.llm == nil {
			return nil
		}
		return f.llm
	}
	f.commander = NewCommander(f.automator, f.windows, f.notify, func() Config { return f.cfg }, factory, zap.NewNop())
	return f
}

func TestPrepareCommandOpensPalette(t *testing.T) {
	f := newCommanderFixture(t)
	f.automator.selection = "selected words"

	text, err := f.commander.PrepareCommand(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "selected words", text)
	assert.Equal(t, []string{"hideActiveWindows", "releaseFocus", "getSelectedText", "openCommandPalette"}, f.rec.calls)
	assert.Equal(t, []string{"selected words"}, f.windows.palette)
	assert.Equal(t, StateAwaitingChoice, f.commander.State())
}

func TestPrepareCommandEmptySelection(t *testing.T) {
	for _, sel := range []string{"", "   ", "\n\t"} {
		f := newCommanderFixture(t)
		f.automator.selection = sel

		_, err := f.commander.PrepareCommand(context.Background())
		assert.ErrorIs(t, err, ErrEmptySelection)
		assert.Equal(t, 1, f.rec.count("notify"), "exactly one notification for %q", sel)
		assert.Equal(t, 0, f.rec.count("openCommandPalette"))
		assert.Equal(t, 1, f.rec.count("restoreWindows"))
		assert.Equal(t, []string{emptySelectionBody}, f.notify.bodies)
		assert.Equal(t, StateIdle, f.commander.State())
	}
}

func TestPrepareCommandCaptureFailure(t *testing.T) {
	f := newCommanderFixture(t)
	capErr := &AutomationError{Op: "copy", Backend: "mock", Reason: reasonPermission}
	f.automator.selectErr = capErr

	_, err := f.commander.PrepareCommand(context.Background())
	assert.ErrorIs(t, err, ErrEmptySelection)
	var ae *AutomationError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, 1, f.rec.count("notify"))
	assert.Equal(t, 0, f.rec.count("openCommandPalette"))
}

func TestRunCommandActionRouting(t *testing.T) {
	injections := []string{"openChatWindow", "pasteText", "copyToClipboard"}
	tests := []struct {
		action Action
		want   []string // injection calls, in order
	}{
		{ActionChatWindow, []string{"openChatWindow"}},
		{ActionPasteBelow, []string{"moveCaretBelow", "pasteText"}},
		{ActionPasteInPlace, []string{"pasteText"}},
		{ActionClipboardCopy, []string{"copyToClipboard"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			f := newCommanderFixture(t)
			cmd := Command{ID: "c", Action: tt.action, Template: "Do: {input}"}

			res, err := f.commander.RunCommand(context.Background(), "text", cmd)
			require.NoError(t, err)
			assert.Equal(t, "Do: text", res.Prompt)

			fired := 0
			for _, call := range injections {
				fired += f.rec.count(call)
			}
			assert.Equal(t, 1, fired, "exactly one injection per run")

			var got []string
			for _, c := range f.rec.calls {
				switch c {
				case "openChatWindow", "moveCaretBelow", "pasteText", "copyToClipboard":
					got = append(got, c)
				}
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, StateIdle, f.commander.State())
		})
	}
}

func TestRunCommandChatWindowSkipsLLM(t *testing.T) {
	f := newCommanderFixture(t)
	cmd := Command{ID: "explain", Action: ActionChatWindow, Template: "Explain {input}", Engine: EngineOllama}

	res, err := f.commander.RunCommand(context.Background(), "gravity", cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, f.rec.count("complete"))
	assert.Equal(t, 0, f.rec.count("openWaitingPanel"))
	require.NotNil(t, res.ChatWindow)
	assert.Equal(t, "chat-1", res.ChatWindow.ID)
	assert.Equal(t, []ChatSeed{{Prompt: "Explain gravity", Engine: EngineOllama, Model: "llama3.2"}}, f.windows.seeds)
}

func TestRunCommandPastesResponse(t *testing.T) {
	f := newCommanderFixture(t)
	temp := 0.2
	cmd := Command{ID: "fix", Action: ActionPasteInPlace, Template: "Fix: {input}", Temperature: &temp}

	res, err := f.commander.RunCommand(context.Background(), "teh", cmd)
	require.NoError(t, err)
	assert.Equal(t, "generated", res.Response)
	assert.Equal(t, []string{"generated"}, f.automator.pasted)
	require.Len(t, f.llm.got, 1)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "Fix: teh"}}, f.llm.got[0])
	assert.Equal(t, "gpt-4o-mini", f.llm.opts[0].Model)
	assert.Equal(t, &temp, f.llm.opts[0].Temperature)
}

func TestRunCommandCleanupOnLLMFailure(t *testing.T) {
	f := newCommanderFixture(t)
	f.llm.err = errors.New("rate limited")
	cmd := Command{ID: "sum", Action: ActionPasteBelow, Template: "{input}"}

	_, err := f.commander.RunCommand(context.Background(), "text", cmd)
	var le *LLMError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, EngineOpenAI, le.Engine)
	assert.Equal(t, 1, f.rec.count("closeWaitingPanel(force)"))
	assert.Equal(t, 1, f.rec.count("releaseFocus"))
	assert.Equal(t, 0, f.rec.count("pasteText"))
	assert.Equal(t, 0, f.rec.count("moveCaretBelow"))
	assert.Equal(t, StateIdle, f.commander.State())
}

func TestRunCommandNoLLMConfigured(t *testing.T) {
	f := newCommanderFixture(t)
	f.llm = nil
	cmd := Command{ID: "sum", Action: ActionPasteInPlace, Template: "{input}"}

	_, err := f.commander.RunCommand(context.Background(), "text", cmd)
	assert.ErrorIs(t, err, ErrNoLLM)
	assert.Equal(t, 1, f.rec.count("closeWaitingPanel(force)"))
	assert.Equal(t, 1, f.rec.count("releaseFocus"))
	assert.Equal(t, 0, f.rec.count("pasteText"))
}

func TestRunCommandEmptyCompletion(t *testing.T) {
	f := newCommanderFixture(t)
	f.llm.response = "  \n"
	cmd := Command{ID: "sum", Action: ActionClipboardCopy, Template: "{input}"}

	_, err := f.commander.RunCommand(context.Background(), "text", cmd)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Empty(t, f.automator.copied)
}

func TestRunCommandUnknownActionStillCleansUp(t *testing.T) {
	f := newCommanderFixture(t)

	_, err := f.commander.RunCommand(context.Background(), "text", Command{ID: "x", Action: "shout"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, 1, f.rec.count("closeWaitingPanel(force)"))
	assert.Equal(t, 1, f.rec.count("releaseFocus"))
	assert.Equal(t, 0, f.rec.count("complete"))
}

func TestRunCommandCaretFailureStillPastes(t *testing.T) {
	f := newCommanderFixture(t)
	f.automator.caretErr = &AutomationError{Op: "caretBelow", Backend: "mock", Reason: reasonInjection}
	cmd := Command{ID: "sum", Action: ActionPasteBelow, Template: "{input}"}

	_, err := f.commander.RunCommand(context.Background(), "text", cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"generated"}, f.automator.pasted)
}

func TestRunCommandPasteFailureReported(t *testing.T) {
	f := newCommanderFixture(t)
	f.automator.pasteErr = &AutomationError{Op: "paste", Backend: "mock", Reason: reasonPermission}
	cmd := Command{ID: "sum", Action: ActionPasteInPlace, Template: "{input}"}

	res, err := f.commander.RunCommand(context.Background(), "text", cmd)
	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "generated", res.Response)
}

func TestRunCommandEngineOverride(t *testing.T) {
	tests := []struct {
		name       string
		cmd        Command
		wantEngine string
		wantModel  string
	}{
		{"defaults", Command{}, EngineOpenAI, "gpt-4o-mini"},
		{"engine override", Command{Engine: EngineOllama}, EngineOllama, "llama3.2"},
		{"model override", Command{Model: "gpt-4.1"}, EngineOpenAI, "gpt-4.1"},
		{"both", Command{Engine: EngineGemini, Model: "gemini-2.5-pro"}, EngineGemini, "gemini-2.5-pro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCommanderFixture(t)
			tt.cmd.ID = "c"
			tt.cmd.Action = ActionClipboardCopy
			tt.cmd.Template = "{input}"

			_, err := f.commander.RunCommand(context.Background(), "text", tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantEngine}, f.engines)
			assert.Equal(t, tt.wantModel, f.llm.opts[0].Model)
		})
	}
}

func TestCommanderRejectsOverlappingRuns(t *testing.T) {
	f := newCommanderFixture(t)
	f.llm.block = make(chan struct{})
	cmd := Command{ID: "sum", Action: ActionClipboardCopy, Template: "{input}"}

	done := make(chan error, 1)
	go func() {
		_, err := f.commander.RunCommand(context.Background(), "first", cmd)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.rec.count("complete") == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StatePrompting, f.commander.State())

	_, err := f.commander.PrepareCommand(context.Background())
	assert.ErrorIs(t, err, ErrPipelineBusy)
	_, err = f.commander.RunCommand(context.Background(), "second", cmd)
	assert.ErrorIs(t, err, ErrPipelineBusy)

	close(f.llm.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.rec.count("complete"))
}

func TestPipelineStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting-choice", StateAwaitingChoice.String())
	assert.Equal(t, "state(42)", PipelineState(42).String())
}

func TestDismissReturnsToIdle(t *testing.T) {
	f := newCommanderFixture(t)
	f.automator.selection = "words"

	_, err := f.commander.PrepareCommand(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateAwaitingChoice, f.commander.State())

	f.commander.Dismiss()
	assert.Equal(t, StateIdle, f.commander.State())
}

func TestDismissLeavesRunningCommandAlone(t *testing.T) {
	f := newCommanderFixture(t)
	f.llm.block = make(chan struct{})
	cmd := Command{ID: "sum", Action: ActionClipboardCopy, Template: "{input}"}

	done := make(chan error, 1)
	go func() {
		_, err := f.commander.RunCommand(context.Background(), "text", cmd)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.rec.count("complete") == 1 }, time.Second, time.Millisecond)

	f.commander.Dismiss()
	assert.Equal(t, StatePrompting, f.commander.State())

	close(f.llm.block)
	require.NoError(t, <-done)
}
