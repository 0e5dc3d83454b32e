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

// mockClipboard is an in-memory clipboard that records every write.
type mockClipboard struct {
	mu       sync.Mutex
	content  string
	writes   []string
	readErr  error
	writeErr func(text string) error
}

func (m *mockClipboard) ReadAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.content, nil
}

func (m *mockClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		if err := m.writeErr(text); err != nil {
			return err
		}
	}
	m.writes = append(m.writes, text)
	m.content = text
	return nil
}

func (m *mockClipboard) get() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

// mockAutomationBackend simulates the foreground application. copy puts
// selection on the clipboard; paste records what the clipboard held.
type mockAutomationBackend struct {
	clipboard *mockClipboard
	selection string
	err       error
	pasted    []string
	calls     []string
	block     chan struct{} // if set, CopySelectedText waits for it to close
}

func (m *mockAutomationBackend) Name() string { return "mock" }

func (m *mockAutomationBackend) SelectAll(context.Context) error {
	m.calls = append(m.calls, "selectAll")
	return m.err
}

func (m *mockAutomationBackend) CopySelectedText(context.Context) error {
	m.calls = append(m.calls, "copy")
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return m.err
	}
	if m.selection != "" {
		return m.clipboard.WriteAll(m.selection)
	}
	return nil
}

func (m *mockAutomationBackend) MoveCaretBelow(context.Context) error {
	m.calls = append(m.calls, "caretBelow")
	return m.err
}

func (m *mockAutomationBackend) PasteText(context.Context) error {
	m.calls = append(m.calls, "paste")
	if m.err != nil {
		return m.err
	}
	m.pasted = append(m.pasted, m.clipboard.get())
	return nil
}

func newTestAutomator(clipboardContent string) (*Automator, *mockAutomationBackend, *mockClipboard) {
	cb := &mockClipboard{content: clipboardContent}
	b := &mockAutomationBackend{clipboard: cb}
	return newAutomatorWithBackends(b, cb, time.Second, zap.NewNop()), b, cb
}

func TestGetSelectedTextRestoresClipboard(t *testing.T) {
	for _, saved := range []string{"user data", "", "multi\nline ✓"} {
		a, b, cb := newTestAutomator(saved)
		b.selection = "picked text"

		got, err := a.GetSelectedText(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "picked text", got)
		assert.Equal(t, saved, cb.get(), "clipboard must be restored")
	}
}

func TestGetSelectedTextClearsBeforeCopy(t *testing.T) {
	// nothing selected: the copy leaves the clipboard untouched
	a, _, cb := newTestAutomator("stale clipboard")

	got, err := a.GetSelectedText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got, "previous clipboard must not read as the selection")
	assert.Equal(t, []string{"", "stale clipboard"}, cb.writes)
}

func TestGetSelectedTextBackendFailure(t *testing.T) {
	a, b, cb := newTestAutomator("keep me")
	b.selection = "ignored"
	b.err = errors.New("execution error: osascript is not allowed assistive access (-1719)")

	got, err := a.GetSelectedText(context.Background())
	require.Error(t, err)
	assert.Equal(t, "", got)
	assert.Equal(t, "keep me", cb.get())

	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "copy", ae.Op)
	assert.Equal(t, "mock", ae.Backend)
	assert.Equal(t, reasonPermission, ae.Reason)
}

func TestGetSelectedTextClipboardUnreadable(t *testing.T) {
	a, b, cb := newTestAutomator("x")
	cb.readErr = errors.New("no xclip")

	_, err := a.GetSelectedText(context.Background())
	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, reasonClipboard, ae.Reason)
	assert.Empty(t, b.calls, "backend must not run when the clipboard cannot be saved")
}

func TestGetSelectedTextRestoreFailure(t *testing.T) {
	a, b, cb := newTestAutomator("saved")
	b.selection = "sel"
	cb.writeErr = func(text string) error {
		if text == "saved" {
			return errors.New("clipboard owner gone")
		}
		return nil
	}

	got, err := a.GetSelectedText(context.Background())
	assert.Equal(t, "", got)
	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "restore", ae.Op)
}

func TestPasteTextRestoresClipboard(t *testing.T) {
	for _, saved := range []string{"user data", ""} {
		a, b, cb := newTestAutomator(saved)

		require.NoError(t, a.PasteText(context.Background(), "answer"))
		assert.Equal(t, []string{"answer"}, b.pasted)
		assert.Equal(t, saved, cb.get())
	}
}

func TestPasteTextFailureRestoresClipboard(t *testing.T) {
	a, b, cb := newTestAutomator("original")
	b.err = errors.New("boom")

	err := a.PasteText(context.Background(), "answer")
	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "paste", ae.Op)
	assert.Equal(t, reasonInjection, ae.Reason)
	assert.Equal(t, "original", cb.get())
}

func TestCopyToClipboardDoesNotRestore(t *testing.T) {
	a, b, cb := newTestAutomator("original")

	require.NoError(t, a.CopyToClipboard("result"))
	assert.Equal(t, "result", cb.get())
	assert.Empty(t, b.calls)
}

func TestMoveCaretBelowAndSelectAll(t *testing.T) {
	a, b, _ := newTestAutomator("")
	require.NoError(t, a.SelectAll(context.Background()))
	require.NoError(t, a.MoveCaretBelow(context.Background()))
	assert.Equal(t, []string{"selectAll", "caretBelow"}, b.calls)
	assert.Equal(t, "mock", a.Backend())
}

func TestAutomatorSerializesOperations(t *testing.T) {
	cb := &mockClipboard{content: "saved"}
	b := &mockAutomationBackend{clipboard: cb, selection: "sel", block: make(chan struct{})}
	a := newAutomatorWithBackends(b, cb, 50*time.Millisecond, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := a.GetSelectedText(context.Background())
		done <- err
	}()

	// wait until the first call holds the automator
	require.Eventually(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.writes) > 0
	}, time.Second, time.Millisecond)

	err := a.PasteText(context.Background(), "late")
	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, reasonBusy, ae.Reason)

	close(b.block)
	<-done
	assert.Equal(t, "saved", cb.get())
}

func TestSettleHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, settle(ctx, time.Hour), context.Canceled)
	assert.NoError(t, settle(context.Background(), 0))
}
