package main

import (
	_ "embed"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

//go:embed assets/icon-template.png
var iconBytes []byte

// StartSystray launches the tray icon in a background goroutine.
// It must be called after Wails startup() fires so the Cocoa run loop is
// already running; calling it earlier deadlocks.
func StartSystray(app *App) {
	go systray.Run(
		func() { onSystrayReady(app) },
		func() {},
	)
}

func onSystrayReady(app *App) {
	HideFromDock()
	systray.SetTemplateIcon(iconBytes, iconBytes)
	systray.SetTooltip("Witty AI (" + app.GetHotkey() + " on selected text)")

	mRun := systray.AddMenuItem("Run on selection\t"+app.GetHotkey(), "Capture the selected text and open the command palette")
	mToggle := systray.AddMenuItem("Show / Hide", "Toggle the Witty window")
	mLogin := systray.AddMenuItemCheckbox("Launch at login", "Start Witty when you log in", app.GetLaunchAtLogin())
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit Witty", "Exit the application")

	go func() {
		for {
			select {
			case <-mRun.ClickedCh:
				go app.RunOnSelection()
			case <-mToggle.ClickedCh:
				app.ToggleWindow()
			case <-mLogin.ClickedCh:
				enable := !mLogin.Checked()
				if err := app.SetLaunchAtLogin(enable); err != nil {
					app.logger.Warn("launch at login not changed", zap.Error(err))
					continue
				}
				if enable {
					mLogin.Check()
				} else {
					mLogin.Uncheck()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				app.Quit()
				return
			}
		}
	}()
}
