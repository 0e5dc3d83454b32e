package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.design/x/hotkey"
)

// ErrHotkeyConflict is returned when the hotkey is already registered by another app.
var ErrHotkeyConflict = errors.New("hotkey: key combination already registered by another application")

// ErrHotkeyInvalid is returned when the hotkey string cannot be parsed.
var ErrHotkeyInvalid = errors.New("hotkey: invalid key combination")

// hotkeyBackend abstracts the real hotkey implementation so tests can use a mock.
type hotkeyBackend interface {
	Register() error
	Unregister() error
	Keydown() <-chan struct{}
}

// realHotkeyBackend wraps golang.design/x/hotkey.
// The hotkey.Hotkey is created lazily in Register() so that constructing a
// backend does not start the library's event goroutines.
type realHotkeyBackend struct {
	hk        *hotkey.Hotkey
	mods      []hotkey.Modifier
	key       hotkey.Key
	keyCh     chan struct{} // buffered relay; filled once in Register()
	closeOnce sync.Once     // guards close(keyCh)
}

func newRealBackend(combo string) (*realHotkeyBackend, error) {
	mods, key, err := parseHotkey(combo)
	if err != nil {
		return nil, err
	}
	return &realHotkeyBackend{mods: mods, key: key}, nil
}

func (r *realHotkeyBackend) Register() error {
	r.hk = hotkey.New(r.mods, r.key)
	if err := r.hk.Register(); err != nil {
		_ = r.hk.Unregister()
		r.hk = nil
		return ErrHotkeyConflict
	}
	r.keyCh = make(chan struct{}, 4)
	src := r.hk.Keydown()
	go func() {
		for range src {
			select {
			case r.keyCh <- struct{}{}:
			default: // drop if buffer full (rapid presses)
			}
		}
		r.closeOnce.Do(func() { close(r.keyCh) })
	}()
	return nil
}

func (r *realHotkeyBackend) Unregister() error {
	if r.hk == nil {
		return nil
	}
	return r.hk.Unregister()
}

func (r *realHotkeyBackend) Keydown() <-chan struct{} {
	return r.keyCh
}

// HotkeyService owns the global hotkey that opens the command palette.
type HotkeyService struct {
	mu             sync.Mutex
	backend        hotkeyBackend
	combo          string
	registered     atomic.Bool
	shuttingDown   atomic.Bool        // set during app quit; listeners skip Unregister
	doneCh         chan struct{}      // closed when the active listen goroutine exits
	parentCtx      context.Context    // root context from Start(), used by Reregister
	cancel         context.CancelFunc // cancels the listen goroutine
	onTrigger      func()
	backendFactory func(string) (hotkeyBackend, error)
	logger         *zap.Logger
}

// NewHotkeyService creates a HotkeyService backed by the OS hotkey API.
func NewHotkeyService(logger *zap.Logger) *HotkeyService {
	return &HotkeyService{
		backendFactory: func(c string) (hotkeyBackend, error) {
			return newRealBackend(c)
		},
		logger: logger.Named("hotkey"),
	}
}

// newHotkeyServiceWithBackend creates a HotkeyService with a custom backend (for tests).
func newHotkeyServiceWithBackend(b hotkeyBackend) *HotkeyService {
	return &HotkeyService{
		backendFactory: func(c string) (hotkeyBackend, error) {
			if _, _, err := parseHotkey(c); err != nil {
				return nil, err
			}
			return b, nil
		},
		logger: zap.NewNop(),
	}
}

// Start registers combo and calls onTrigger on every press until ctx is
// cancelled. Returns ErrHotkeyConflict if the key is taken by another app.
func (s *HotkeyService) Start(ctx context.Context, combo string, onTrigger func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.backendFactory(combo)
	if err != nil {
		return err
	}
	if err := b.Register(); err != nil {
		return err
	}
	s.backend = b
	s.combo = combo
	s.onTrigger = onTrigger
	s.parentCtx = ctx
	s.listen(ctx, b, combo)
	return nil
}

// Reregister swaps to a new combo at runtime. The new key is registered before
// the old one is released, so on any error the original hotkey stays live.
func (s *HotkeyService) Reregister(newCombo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.backendFactory(newCombo)
	if err != nil {
		return err
	}
	if err := b.Register(); err != nil {
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("re-registered", zap.String("from", s.combo), zap.String("to", newCombo))
	s.backend = b
	s.combo = newCombo

	parent := s.parentCtx
	if parent == nil {
		parent = context.Background()
	}
	s.listen(parent, b, newCombo)
	return nil
}

// listen starts the goroutine relaying presses of b to onTrigger. Caller holds mu.
func (s *HotkeyService) listen(parent context.Context, b hotkeyBackend, combo string) {
	s.registered.Store(true)
	s.logger.Info("registered", zap.String("combo", combo))

	listenCtx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	trigger := s.onTrigger
	doneCh := make(chan struct{})
	s.doneCh = doneCh
	keydown := b.Keydown()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("recovered panic in hotkey listener", zap.Any("panic", r))
			}
			if !s.shuttingDown.Load() {
				b.Unregister() //nolint:errcheck
			}
			s.mu.Lock()
			if s.backend == b {
				s.registered.Store(false)
			}
			s.mu.Unlock()
			s.logger.Info("unregistered", zap.String("combo", combo))
			close(doneCh)
		}()
		for {
			select {
			case <-listenCtx.Done():
				return
			case _, ok := <-keydown:
				if !ok {
					return
				}
				s.logger.Debug("triggered", zap.String("combo", combo))
				if trigger != nil {
					trigger()
				}
			}
		}
	}()
}

// Stop unregisters the hotkey before cancelling the listener, so the OS event
// monitor is removed while the UI event loop is still alive, then waits up to
// 200ms for the listener to exit.
func (s *HotkeyService) Stop() {
	s.shuttingDown.Store(true)

	s.mu.Lock()
	backend := s.backend
	doneCh := s.doneCh
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if backend != nil {
		if err := backend.Unregister(); err != nil {
			s.logger.Warn("unregister on stop", zap.Error(err))
		}
	}
	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(200 * time.Millisecond):
			s.logger.Warn("stop timed out waiting for listener")
		}
	}
}

// IsRegistered reports whether the hotkey is currently registered.
func (s *HotkeyService) IsRegistered() bool {
	return s.registered.Load()
}

// Combo returns the currently active hotkey combo string.
func (s *HotkeyService) Combo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combo
}

var keyMap = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"tab":    hotkey.KeyTab,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"a":      hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// parseHotkey parses a combo like "ctrl+shift+space" into modifiers and key.
// Modifier names are resolved by the per-OS modMap.
func parseHotkey(combo string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) < 2 {
		return nil, 0, fmt.Errorf("%w: %q (need at least one modifier)", ErrHotkeyInvalid, combo)
	}
	keyPart := parts[len(parts)-1]
	modParts := parts[:len(parts)-1]

	key, ok := keyMap[keyPart]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown key %q", ErrHotkeyInvalid, keyPart)
	}

	var mods []hotkey.Modifier
	seen := map[string]bool{}
	for _, m := range modParts {
		if seen[m] {
			continue
		}
		seen[m] = true
		mod, ok := modMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown modifier %q", ErrHotkeyInvalid, m)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}

// FormatHotkey converts a combo string to a display string,
// e.g. "ctrl+shift+space" → "⌃⇧Space".
func FormatHotkey(combo string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) < 2 {
		return combo
	}
	modSymbols := map[string]string{
		"ctrl": "⌃", "control": "⌃",
		"option": "⌥", "alt": "⌥",
		"shift": "⇧",
		"cmd":   "⌘", "command": "⌘", "super": "⌘", "win": "⌘",
	}
	keyDisplay := map[string]string{
		"space": "Space", "tab": "Tab", "return": "Return", "enter": "Return",
	}

	var out strings.Builder
	for _, p := range parts[:len(parts)-1] {
		if s, ok := modSymbols[p]; ok {
			out.WriteString(s)
		}
	}
	key := parts[len(parts)-1]
	if d, ok := keyDisplay[key]; ok {
		out.WriteString(d)
	} else {
		out.WriteString(strings.ToUpper(key))
	}
	return out.String()
}
