package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	api "github.com/monorkin/awair-local/awair/api"
)

const (
	SETTINGS_PATH_ENV = "AWAIR_LOCAL_SETTINGS_PATH"
)

// Settings holds defaults for the command line tool. Flags override them.
type Settings struct {
	DefaultDevice         *string `json:"default_device"`
	Port                  int     `json:"port"`
	Endpoint              string  `json:"endpoint"`
	RequestTimeoutSeconds float64 `json:"request_timeout_seconds"`
	PollIntervalSeconds   float64 `json:"poll_interval_seconds"`
	MaxRetries            int     `json:"max_retries"`
	MetricsListenAddress  string  `json:"metrics_listen_address"`
	MQTTBroker            string  `json:"mqtt_broker"`
	MQTTTopic             string  `json:"mqtt_topic"`
}

func DefaultSettings() *Settings {
	return &Settings{
		DefaultDevice:         nil,
		Port:                  api.DEFAULT_PORT,
		Endpoint:              "auto",
		RequestTimeoutSeconds: api.REQUEST_TIMEOUT.Seconds(),
		PollIntervalSeconds:   10,
		MaxRetries:            3,
		MetricsListenAddress:  ":9101",
		MQTTBroker:            "tcp://localhost:1883",
		MQTTTopic:             "awair",
	}
}

func DefaultSettingsPath() string {
	if path := os.Getenv(SETTINGS_PATH_ENV); path != "" {
		return path
	}

	return filepath.Join(ConfigDir(), "settings.json")
}

func LoadOrInitializeSettingsFromDefaultLocation() (bool, *Settings, error) {
	return LoadOrInitializeSettings(DefaultSettingsPath())
}

// LoadOrInitializeSettings reports true when no settings file exists and
// defaults were returned instead. A file that exists but cannot be read or
// fails validation is an error.
func LoadOrInitializeSettings(path string) (bool, *Settings, error) {
	settings, err := LoadSettings(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, DefaultSettings(), nil
	}
	if err != nil {
		return false, nil, err
	}

	return false, settings, nil
}

// LoadSettings reads a settings file. Keys missing from the file keep
// their default values.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	return settings, nil
}

func (s *Settings) Validate() error {
	if s.Endpoint != "auto" {
		if _, err := api.EndpointByName(s.Endpoint); err != nil {
			return err
		}
	}

	if s.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}

	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}

	return nil
}

func (s *Settings) RequestTimeout() time.Duration {
	return secondsToDuration(s.RequestTimeoutSeconds)
}

func (s *Settings) PollInterval() time.Duration {
	return secondsToDuration(s.PollIntervalSeconds)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
