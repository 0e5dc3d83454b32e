package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"text/template"
)

const loginItemLabel = "ai.witty.desktop"

// ErrLoginItemUnsupported is returned on platforms without a supported autostart mechanism.
var ErrLoginItemUnsupported = errors.New("login item: launch at login is not supported on this platform")

// launchdTemplate is the macOS launchd property list.
// RunAtLoad starts the app at login; KeepAlive=false leaves it dead if it quits.
var launchdTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN"
  "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecPath}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`))

// xdgTemplate is a freedesktop autostart entry.
var xdgTemplate = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name=Witty AI
Exec="{{.ExecPath}}"
X-GNOME-Autostart-enabled=true
NoDisplay=true
`))

// LoginItemService writes or removes the autostart file that launches the
// app at login: a launchd plist on macOS, an XDG desktop entry elsewhere.
// dir is overridable for unit tests (use t.TempDir()).
type LoginItemService struct {
	dir      string
	filename string
	tmpl     *template.Template
}

// NewLoginItemService returns the service for the running platform.
func NewLoginItemService() (*LoginItemService, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("login item: failed to resolve home dir: %w", err)
	}
	switch goruntime.GOOS {
	case "darwin":
		return newLaunchdLoginItem(filepath.Join(home, "Library", "LaunchAgents")), nil
	case "windows":
		return nil, ErrLoginItemUnsupported
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(home, ".config")
	}
	return newXDGLoginItem(filepath.Join(dir, "autostart")), nil
}

func newLaunchdLoginItem(dir string) *LoginItemService {
	return &LoginItemService{dir: dir, filename: loginItemLabel + ".plist", tmpl: launchdTemplate}
}

func newXDGLoginItem(dir string) *LoginItemService {
	return &LoginItemService{dir: dir, filename: loginItemLabel + ".desktop", tmpl: xdgTemplate}
}

// Enable writes the autostart file for execPath.
func (s *LoginItemService) Enable(execPath string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("login item: cannot create %s: %w", s.dir, err)
	}
	f, err := os.Create(s.path())
	if err != nil {
		return fmt.Errorf("login item: cannot create file: %w", err)
	}
	defer f.Close()

	data := struct {
		Label    string
		ExecPath string
	}{Label: loginItemLabel, ExecPath: execPath}
	if err := s.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("login item: failed to write file: %w", err)
	}
	return nil
}

// Disable removes the autostart file. Returns nil if it does not exist.
func (s *LoginItemService) Disable() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("login item: cannot remove file: %w", err)
	}
	return nil
}

// IsEnabled reports whether the autostart file currently exists.
func (s *LoginItemService) IsEnabled() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

func (s *LoginItemService) path() string {
	return filepath.Join(s.dir, s.filename)
}
