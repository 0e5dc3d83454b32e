package main

import "strings"

// Action decides what happens with a command's result.
type Action string

const (
	ActionChatWindow    Action = "chat_window"    // open a chat seeded with the prompt, no completion here
	ActionPasteBelow    Action = "paste_below"    // new line below the caret, then paste
	ActionPasteInPlace  Action = "paste_in_place" // paste over the selection
	ActionClipboardCopy Action = "clipboard_copy" // replace the clipboard only
)

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionChatWindow, ActionPasteBelow, ActionPasteInPlace, ActionClipboardCopy:
		return true
	}
	return false
}

// inputPlaceholder is substituted with the captured text.
const inputPlaceholder = "{input}"

// Command is one palette entry. Engine, Model and Temperature override the
// configured defaults when set.
type Command struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Icon        string   `json:"icon,omitempty"`
	Action      Action   `json:"action"`
	Template    string   `json:"template"`
	Engine      string   `json:"engine,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// BuildPrompt substitutes input into the template. Only the first
// placeholder is replaced; later ones are sent verbatim.
func (c Command) BuildPrompt(input string) string {
	return strings.Replace(c.Template, inputPlaceholder, input, 1)
}

// CommandResult is filled in stage by stage by one RunCommand call.
type CommandResult struct {
	Text       string         `json:"text"`
	Prompt     string         `json:"prompt"`
	Response   string         `json:"response"`
	ChatWindow *ChatWindowRef `json:"chatWindow,omitempty"`
}

func defaultCommands() []Command {
	return []Command{
		{ID: "summarize", Label: "Summarize", Icon: "📝", Action: ActionPasteBelow,
			Template: "Summarize the following text in a few sentences. Reply with the summary only.\n\n{input}"},
		{ID: "improve", Label: "Improve writing", Icon: "✨", Action: ActionPasteInPlace,
			Template: "Improve the writing of the following text. Keep its meaning and language. Reply with the improved text only.\n\n{input}"},
		{ID: "spelling", Label: "Fix spelling and grammar", Icon: "🔤", Action: ActionPasteInPlace,
			Template: "Fix the spelling and grammar of the following text. Reply with the corrected text only.\n\n{input}"},
		{ID: "translate_en", Label: "Translate to English", Icon: "🌐", Action: ActionPasteInPlace,
			Template: "Translate the following text to English. Reply with the translation only.\n\n{input}"},
		{ID: "bullets", Label: "Bullet points", Icon: "•", Action: ActionClipboardCopy,
			Template: "Rewrite the following text as a concise bullet list.\n\n{input}"},
		{ID: "explain", Label: "Explain", Icon: "💡", Action: ActionChatWindow,
			Template: "Explain the following text in simple terms:\n\n{input}"},
		{ID: "ask", Label: "Ask in chat", Icon: "💬", Action: ActionChatWindow,
			Template: "{input}"},
	}
}
