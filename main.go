package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"go.uber.org/zap"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads the settings and builds the process logger from them.
// Config load errors are logged by a bootstrap logger before the real one exists.
func loadRuntime() (*ConfigService, Config, *zap.Logger) {
	bootstrap, err := zap.NewDevelopment()
	if err != nil {
		bootstrap = zap.NewNop()
	}
	cfgSvc := NewConfigService(bootstrap)
	cfg := cfgSvc.Load()
	logger := initLogger(cfg.Logging)
	cfgSvc.logger = logger.Named("config")
	return cfgSvc, cfg, logger
}

// runApp starts the tray application: hotkey, palette, chat windows.
func runApp() error {
	cfgSvc, cfg, logger := loadRuntime()
	defer logger.Sync() //nolint:errcheck

	app := NewApp(logger)
	app.SetConfigService(cfgSvc)
	app.SetHotkeyService(NewHotkeyService(logger))

	automator := NewAutomator(cfg.Automation, logger)
	wm := newWailsWindowManager(app)
	app.SetCommander(NewCommander(automator, wm, desktopNotifier{}, app.config, buildLLM, logger), wm)
	app.EnableTray()

	// Application menu: keyboard shortcuts while a window is focused.
	appMenu := menu.NewMenu()
	fileMenu := appMenu.AddSubmenu("Witty")
	fileMenu.AddText("Show / Hide", keys.CmdOrCtrl(","), func(_ *menu.CallbackData) {
		app.ToggleWindow()
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		app.Quit()
	})
	appMenu.Append(menu.EditMenu())

	err := wails.Run(&options.App{
		Title:  appTitle,
		Width:  520,
		Height: 420,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 18, G: 18, B: 18, A: 0},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind:             []interface{}{app},
		Mac: &mac.Options{
			TitleBar:             mac.TitleBarHiddenInset(),
			Appearance:           mac.NSAppearanceNameDarkAqua,
			WebviewIsTransparent: true,
			WindowIsTranslucent:  true,
			About: &mac.AboutInfo{
				Title:   appTitle,
				Message: "Run AI commands on the text you select, anywhere.",
			},
		},
		StartHidden:       true, // palette and chat are shown on demand
		HideWindowOnClose: true, // X button hides, doesn't quit
		AlwaysOnTop:       true,
		Menu:              appMenu,
	})
	if err != nil {
		logger.Error("wails.Run failed", zap.Error(err))
		return err
	}
	return nil
}
