package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// hotkeyStarter is the minimal interface the App needs from HotkeyService.
// Using an interface keeps real CGo goroutines out of unit tests.
type hotkeyStarter interface {
	Start(ctx context.Context, combo string, onTrigger func()) error
	Reregister(combo string) error
	IsRegistered() bool
	Combo() string
	Stop()
}

// App is the Wails-bound application: it owns the configuration, the chat
// sessions and the command pipeline, and exposes them to the frontend.
// ctx is guarded by mu. startupCh is closed once startup() fires so that
// callers arriving before Wails is ready can wait.
type App struct {
	mu        sync.RWMutex
	ctx       context.Context
	cfg       Config
	startupCh chan struct{}
	once      sync.Once

	configs    *ConfigService // nil in unit tests
	loginItems *LoginItemService
	hotkeys    hotkeyStarter // nil in unit tests; real HotkeyService in production
	commander  *Commander
	windows    windowManager
	chats      *chatStore
	newLLM     llmFactory
	withTray   bool

	visible        atomic.Bool // window currently shown
	restoreVisible atomic.Bool // window was shown when the pipeline hid it
	triggerLimiter *rate.Limiter
	logger         *zap.Logger
}

// NewApp creates the App with factory configuration. main injects the config
// service, commander and hotkey service before calling wails.Run().
func NewApp(logger *zap.Logger) *App {
	a := &App{
		cfg:       defaultConfig(),
		startupCh: make(chan struct{}),
		newLLM:    buildLLM,
		logger:    logger.Named("app"),
	}
	a.chats = newChatStore(func() InstructionsConfig { return a.config().Instructions })
	a.triggerLimiter = rate.NewLimiter(rate.Every(a.cfg.HotkeyCooldown.Std()), 1)
	svc, err := NewLoginItemService()
	if err != nil {
		a.logger.Warn("login items unavailable", zap.Error(err))
	}
	a.loginItems = svc
	return a
}

// SetConfigService loads the persisted configuration.
func (a *App) SetConfigService(cs *ConfigService) {
	a.configs = cs
	a.applyConfig(cs.Load())
}

// SetHotkeyService injects the hotkey service (called by main.go before wails.Run).
func (a *App) SetHotkeyService(hs hotkeyStarter) {
	a.hotkeys = hs
}

// SetCommander injects the pipeline and the window manager it drives.
func (a *App) SetCommander(c *Commander, w windowManager) {
	a.commander = c
	a.windows = w
}

// EnableTray makes startup() install the system tray icon.
func (a *App) EnableTray() { a.withTray = true }

// config returns the effective configuration, environment overrides included.
func (a *App) config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.withEnv(os.Getenv)
}

func (a *App) applyConfig(cfg Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.triggerLimiter.SetLimit(rate.Every(cfg.HotkeyCooldown.Std()))
	if a.hotkeys != nil && a.hotkeys.IsRegistered() && cfg.Hotkey != a.hotkeys.Combo() {
		if err := a.hotkeys.Reregister(cfg.Hotkey); err != nil {
			a.logger.Warn("hotkey change rejected", zap.String("combo", cfg.Hotkey), zap.Error(err))
		}
	}
}

// startup is called by Wails when the runtime is ready.
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	a.once.Do(func() { close(a.startupCh) })

	if a.hotkeys != nil {
		combo := a.config().Hotkey
		if err := a.hotkeys.Start(ctx, combo, a.onHotkey); err != nil {
			if errors.Is(err, ErrHotkeyConflict) {
				a.logger.Warn("hotkey already taken by another app, tray menu only", zap.String("combo", combo))
				runtime.EventsEmit(ctx, "hotkey:conflict")
			} else {
				a.logger.Error("hotkey registration failed", zap.String("combo", combo), zap.Error(err))
			}
		}
	}
	if a.configs != nil {
		if err := a.configs.Watch(ctx, a.applyConfig); err != nil {
			a.logger.Warn("settings watch disabled", zap.Error(err))
		}
	}
	if a.withTray {
		StartSystray(a)
	}
}

// shutdown is called by Wails before the runtime goes away.
func (a *App) shutdown(ctx context.Context) {
	if a.hotkeys != nil {
		a.hotkeys.Stop()
	}
}

// waitForStartup blocks until Wails has initialised (startup() has been called).
func (a *App) waitForStartup() context.Context {
	<-a.startupCh
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

// onHotkey runs on the hotkey listener goroutine; the pipeline gets its own.
func (a *App) onHotkey() {
	if !a.triggerLimiter.Allow() {
		a.logger.Debug("hotkey re-trigger dropped")
		return
	}
	go a.RunOnSelection()
}

// RunOnSelection captures the current selection and opens the palette.
func (a *App) RunOnSelection() {
	if a.commander == nil {
		return
	}
	ctx := a.waitForStartup()
	if _, err := a.commander.PrepareCommand(ctx); err != nil {
		if errors.Is(err, ErrPipelineBusy) {
			a.logger.Info("command already running, trigger ignored")
			return
		}
		a.logger.Info("command not prepared", zap.Error(err))
	}
}

// RunCommand runs the palette's choice against the captured text.
func (a *App) RunCommand(text, commandID string) (*CommandResult, error) {
	if a.commander == nil {
		return nil, errors.New("commander not configured")
	}
	cmd, err := a.config().Command(commandID)
	if err != nil {
		return nil, err
	}
	return a.commander.RunCommand(a.waitForStartup(), text, cmd)
}

// DismissPalette closes the palette without running a command.
func (a *App) DismissPalette() {
	if a.commander != nil {
		a.commander.Dismiss()
	}
	if a.windows != nil {
		a.windows.ReleaseFocus()
	}
}

// GetCommands lists the palette commands.
func (a *App) GetCommands() []Command {
	return a.config().Commands
}

// GetChat returns the chat opened by a chat_window command.
func (a *App) GetChat(id string) (chatSession, error) {
	sess, ok := a.chats.Get(id)
	if !ok {
		return chatSession{}, fmt.Errorf("chat %q not found", id)
	}
	return sess, nil
}

// ListChats returns this run's chats, oldest first.
func (a *App) ListChats() []chatSession {
	return a.chats.List()
}

// ChatSend sends prompt in the chat and returns the assistant's answer.
func (a *App) ChatSend(id, prompt string) (string, error) {
	sess, ok := a.chats.Get(id)
	if !ok {
		return "", fmt.Errorf("chat %q not found", id)
	}
	cfg := a.config()
	ctx, cancel := context.WithTimeout(a.waitForStartup(), cfg.LLM.Timeout.Std())
	defer cancel()
	answer, err := a.chats.Send(ctx, id, prompt, a.newLLM(cfg, sess.Engine))
	if err != nil {
		a.logger.Warn("chat completion failed", zap.String("chat", id), zap.String("engine", sess.Engine), zap.Error(err))
	}
	return answer, err
}

// GetModels lists models usable with engine: installed ones for Ollama, the
// configured one otherwise.
func (a *App) GetModels(engine string) ([]string, error) {
	cfg := a.config()
	if lister, ok := a.newLLM(cfg, engine).(modelLister); ok {
		return lister.Models(a.waitForStartup())
	}
	return []string{cfg.ActiveModel(engine)}, nil
}

// GetSettings returns the persisted configuration.
func (a *App) GetSettings() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// SaveSettings persists cfg and applies it immediately.
func (a *App) SaveSettings(cfg Config) error {
	cfg = fillDefaults(cfg)
	if _, _, err := parseHotkey(cfg.Hotkey); err != nil {
		return err
	}
	if a.configs != nil {
		if err := a.configs.Save(cfg); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	a.applyConfig(cfg)
	return nil
}

// GetStatus returns the current app status displayed in the UI.
func (a *App) GetStatus() string {
	return "Select text and press " + FormatHotkey(a.config().Hotkey)
}

// GetHotkey returns the active hotkey for display.
func (a *App) GetHotkey() string {
	return FormatHotkey(a.config().Hotkey)
}

// SetHotkey switches the hotkey at runtime and persists it.
func (a *App) SetHotkey(combo string) error {
	if a.hotkeys != nil {
		if err := a.hotkeys.Reregister(combo); err != nil {
			return err
		}
	}
	cfg := a.GetSettings()
	cfg.Hotkey = combo
	return a.SaveSettings(cfg)
}

// GetHotkeyStatus returns the current hotkey registration status.
func (a *App) GetHotkeyStatus() string {
	if a.hotkeys != nil && a.hotkeys.IsRegistered() {
		return "registered"
	}
	return "unregistered"
}

// GetLaunchAtLogin reports whether the app is registered as a login item.
func (a *App) GetLaunchAtLogin() bool {
	if a.loginItems == nil {
		return false
	}
	return a.loginItems.IsEnabled()
}

// SetLaunchAtLogin enables or disables the launch-at-login login item.
func (a *App) SetLaunchAtLogin(enabled bool) error {
	if a.loginItems == nil {
		return ErrLoginItemUnsupported
	}
	if enabled {
		execPath, err := os.Executable()
		if err != nil {
			return err
		}
		return a.loginItems.Enable(execPath)
	}
	return a.loginItems.Disable()
}

// ShowWindow shows the main window.
func (a *App) ShowWindow() {
	go func() {
		ctx := a.waitForStartup()
		runtime.WindowShow(ctx)
		a.visible.Store(true)
	}()
}

// ToggleWindow shows the window if hidden and hides it otherwise.
func (a *App) ToggleWindow() {
	go func() {
		ctx := a.waitForStartup()
		if a.visible.Load() {
			runtime.WindowHide(ctx)
			a.visible.Store(false)
			return
		}
		runtime.WindowShow(ctx)
		a.visible.Store(true)
	}()
}

// Quit exits the application.
func (a *App) Quit() {
	go func() {
		ctx := a.waitForStartup()
		runtime.Quit(ctx)
	}()
}
