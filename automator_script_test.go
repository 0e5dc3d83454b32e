package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptAutomatorScripts(t *testing.T) {
	var ran []string
	s := &scriptAutomator{run: func(_ context.Context, script string) error {
		ran = append(ran, script)
		return nil
	}}
	ctx := context.Background()

	require.NoError(t, s.SelectAll(ctx))
	require.NoError(t, s.CopySelectedText(ctx))
	require.NoError(t, s.MoveCaretBelow(ctx))
	require.NoError(t, s.PasteText(ctx))
	assert.Equal(t, []string{scriptSelectAll, scriptCopy, scriptCaretBelow, scriptPaste}, ran)
}

func TestScriptAutomatorFailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"accessibility", errors.New("osascript: exit status 1: System Events got an error: osascript is not allowed to send keystrokes. (1002)"), reasonPermission},
		{"automation", errors.New("Not authorized to send Apple events to System Events. (-1743)"), reasonPermission},
		{"timeout", context.DeadlineExceeded, reasonTimeout},
		{"other", errors.New("osascript: exit status 1"), reasonInjection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &scriptAutomator{run: func(context.Context, string) error { return tt.err }}
			err := s.PasteText(context.Background())
			var ae *AutomationError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, "script", ae.Backend)
			assert.Equal(t, tt.reason, ae.Reason)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
