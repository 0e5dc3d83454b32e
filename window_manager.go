package main

import (
	"context"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Frontend events emitted by the window manager.
const (
	eventPaletteOpen  = "palette:open"
	eventWaitingOpen  = "waiting:open"
	eventWaitingClose = "waiting:close"
	eventChatOpen     = "chat:open"
)

// ChatSeed is what a chat surface opened by a command starts from.
type ChatSeed struct {
	Prompt string `json:"prompt"`
	Engine string `json:"engine"`
	Model  string `json:"model"`
}

// ChatWindowRef identifies the chat opened for a command.
type ChatWindowRef struct {
	ID string `json:"id"`
}

// windowManager is everything the pipeline needs from the UI layer.
type windowManager interface {
	HideActiveWindows()
	ReleaseFocus()
	RestoreWindows()
	OpenCommandPalette(text string)
	OpenWaitingPanel()
	CloseWaitingPanel(force bool)
	OpenChatWindow(seed ChatSeed) (ChatWindowRef, error)
}

type palettePayload struct {
	Text     string    `json:"text"`
	Commands []Command `json:"commands"`
}

type chatPayload struct {
	ChatWindowRef
	ChatSeed
}

// windowRuntime is the slice of the Wails runtime the window manager drives,
// kept behind an interface so tests run without a live frontend.
type windowRuntime interface {
	Show(ctx context.Context)
	Hide(ctx context.Context)
	WindowShow(ctx context.Context)
	WindowHide(ctx context.Context)
	WindowSetAlwaysOnTop(ctx context.Context, b bool)
	EventsEmit(ctx context.Context, event string, data ...interface{})
}

// wailsRuntime forwards to github.com/wailsapp/wails/v2/pkg/runtime.
type wailsRuntime struct{}

func (wailsRuntime) Show(ctx context.Context)       { runtime.Show(ctx) }
func (wailsRuntime) Hide(ctx context.Context)       { runtime.Hide(ctx) }
func (wailsRuntime) WindowShow(ctx context.Context) { runtime.WindowShow(ctx) }
func (wailsRuntime) WindowHide(ctx context.Context) { runtime.WindowHide(ctx) }

func (wailsRuntime) WindowSetAlwaysOnTop(ctx context.Context, b bool) {
	runtime.WindowSetAlwaysOnTop(ctx, b)
}

func (wailsRuntime) EventsEmit(ctx context.Context, event string, data ...interface{}) {
	runtime.EventsEmit(ctx, event, data...)
}

// wailsWindowManager drives the single Wails window. The palette, waiting
// panel and chat are views of that window selected by frontend events.
// While a chat is showing, the pipeline's cleanup leaves it up and in view.
type wailsWindowManager struct {
	app      *App
	rt       windowRuntime
	chatOpen atomic.Bool
}

func newWailsWindowManager(app *App) *wailsWindowManager {
	return newWindowManagerWithRuntime(app, wailsRuntime{})
}

// newWindowManagerWithRuntime wires in a custom runtime (tests only).
func newWindowManagerWithRuntime(app *App, rt windowRuntime) *wailsWindowManager {
	return &wailsWindowManager{app: app, rt: rt}
}

// HideActiveWindows hides the window and remembers whether it was showing.
func (w *wailsWindowManager) HideActiveWindows() {
	ctx := w.app.waitForStartup()
	w.chatOpen.Store(false)
	w.app.restoreVisible.Store(w.app.visible.Load())
	w.rt.WindowHide(ctx)
	w.app.visible.Store(false)
}

// ReleaseFocus hides the application so the OS hands focus back to the
// previously active one.
func (w *wailsWindowManager) ReleaseFocus() {
	if w.chatOpen.Load() {
		return
	}
	ctx := w.app.waitForStartup()
	w.rt.Hide(ctx)
	w.app.visible.Store(false)
}

// RestoreWindows re-shows the window if it was visible before HideActiveWindows.
func (w *wailsWindowManager) RestoreWindows() {
	if !w.app.restoreVisible.Swap(false) {
		return
	}
	w.show()
}

func (w *wailsWindowManager) OpenCommandPalette(text string) {
	ctx := w.show()
	w.rt.EventsEmit(ctx, eventPaletteOpen, palettePayload{Text: text, Commands: w.app.config().Commands})
}

func (w *wailsWindowManager) OpenWaitingPanel() {
	ctx := w.show()
	w.rt.EventsEmit(ctx, eventWaitingOpen)
}

// CloseWaitingPanel does nothing while a chat is in view: no waiting panel
// was opened for it and the frontend would blank the chat.
func (w *wailsWindowManager) CloseWaitingPanel(force bool) {
	if w.chatOpen.Load() {
		return
	}
	ctx := w.app.waitForStartup()
	w.rt.EventsEmit(ctx, eventWaitingClose, force)
	if force {
		w.rt.WindowHide(ctx)
		w.app.visible.Store(false)
	}
}

func (w *wailsWindowManager) OpenChatWindow(seed ChatSeed) (ChatWindowRef, error) {
	ref := w.app.chats.Open(seed)
	ctx := w.show()
	w.chatOpen.Store(true)
	w.rt.EventsEmit(ctx, eventChatOpen, chatPayload{ChatWindowRef: ref, ChatSeed: seed})
	return ref, nil
}

func (w *wailsWindowManager) show() context.Context {
	ctx := w.app.waitForStartup()
	w.rt.Show(ctx)
	w.rt.WindowShow(ctx)
	w.rt.WindowSetAlwaysOnTop(ctx, true)
	w.app.visible.Store(true)
	return ctx
}
