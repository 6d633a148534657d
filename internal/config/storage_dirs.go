package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	APP_DIR_NAME = "awair-local"
)

func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// xdgDir resolves the application directory under the XDG base directory
// named by envVar, falling back to ~/<fallback> and then ~/.awair-local.
func xdgDir(envVar string, fallback string) string {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, APP_DIR_NAME)
	}

	homeDir, err := os.UserHomeDir()
	// In case the home directory cannot be determined use the current working directory
	if err != nil {
		currentDir, err := os.Getwd()
		if err != nil {
			return "."
		}

		return currentDir
	}

	fallbackPath := filepath.Join(homeDir, fallback)
	if _, err := os.Stat(fallbackPath); err == nil {
		return filepath.Join(fallbackPath, APP_DIR_NAME)
	}

	return filepath.Join(homeDir, fmt.Sprintf(".%s", APP_DIR_NAME))
}
