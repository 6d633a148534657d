package globals

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/monorkin/awair-local/internal/config"
)

var (
	Settings *config.Settings
	Logger   *slog.Logger

	initOnce sync.Once
	initErr  error
)

// Initialize sets up the logger and loads settings exactly once. An invalid
// settings file is reported on every call.
func Initialize(verbose bool) error {
	initOnce.Do(func() {
		setupLogger(verbose)

		newSettings, settingsLoaded, err := config.LoadOrInitializeSettingsFromDefaultLocation()
		if err != nil {
			initErr = fmt.Errorf("failed to load settings: %w", err)
			return
		}

		Settings = settingsLoaded
		if newSettings {
			Logger.Debug("Using default settings", "path", config.DefaultSettingsPath())
		} else {
			Logger.Debug("Loaded existing settings", "path", config.DefaultSettingsPath())
		}
	})

	return initErr
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Logs go to stderr so command output on stdout stays machine readable.
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(Logger)
}

// MustBeInitialized panics if globals haven't been initialized
func MustBeInitialized() {
	if Settings == nil || Logger == nil {
		panic("globals not initialized - call globals.Initialize() first")
	}
}
