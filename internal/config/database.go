package config

import (
	"os"
	"path/filepath"
)

const (
	DB_NAME     = "readings.sqlite"
	DB_PATH_ENV = "AWAIR_LOCAL_DB_PATH"
)

func DBPath() string {
	if dbPath := os.Getenv(DB_PATH_ENV); dbPath != "" {
		return dbPath
	}

	return filepath.Join(DataDir(), DB_NAME)
}
