package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		input    string
		want     string
	}{
		{"single placeholder", "Summarize: {input} end", "hello", "Summarize: hello end"},
		{"only first placeholder", "{input} vs {input}", "a", "a vs {input}"},
		{"no placeholder", "static", "ignored", "static"},
		{"input containing placeholder", "[{input}]", "{input}", "[{input}]"},
		{"empty input", "x{input}y", "", "xy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Command{Template: tt.template}
			assert.Equal(t, tt.want, cmd.BuildPrompt(tt.input))
		})
	}
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionChatWindow, ActionPasteBelow, ActionPasteInPlace, ActionClipboardCopy} {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, Action("").Valid())
	assert.False(t, Action("paste_above").Valid())
}

func TestDefaultCommands(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range defaultCommands() {
		assert.False(t, seen[c.ID], "duplicate id %q", c.ID)
		seen[c.ID] = true
		assert.True(t, c.Action.Valid(), c.ID)
		assert.Contains(t, c.Template, inputPlaceholder, c.ID)
		assert.NotEmpty(t, c.Label, c.ID)
	}
}
