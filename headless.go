package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

// headlessWindows stands in for the UI when the pipeline runs from the CLI.
// There is nothing to hide or focus: the terminal that launched the command
// is expected to have already handed focus to the target application.
type headlessWindows struct {
	out io.Writer
}

func (headlessWindows) HideActiveWindows()        {}
func (headlessWindows) ReleaseFocus()             {}
func (headlessWindows) RestoreWindows()           {}
func (headlessWindows) OpenWaitingPanel()         {}
func (headlessWindows) CloseWaitingPanel(bool)    {}
func (headlessWindows) OpenCommandPalette(string) {}

// OpenChatWindow prints the seed; there is no chat surface without the app.
func (h headlessWindows) OpenChatWindow(seed ChatSeed) (ChatWindowRef, error) {
	ref := ChatWindowRef{ID: uuid.NewString()}
	_, err := fmt.Fprintf(h.out, "[%s/%s]\n%s\n", seed.Engine, seed.Model, seed.Prompt)
	return ref, err
}
