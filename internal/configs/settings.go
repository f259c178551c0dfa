package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Settings configures the sync engine and its remote transport.
type Settings struct {
	Remote RemoteSettings `toml:"remote"`
	Sync   SyncSettings   `toml:"sync"`
	Local  LocalSettings  `toml:"local"`
}

// RemoteSettings configures the profile service transport.
type RemoteSettings struct {
	// BaseURL is the root of the profile service API.
	BaseURL string `toml:"base_url"`

	// RequestTimeout bounds a single network attempt.
	RequestTimeout Duration `toml:"request_timeout"`

	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `toml:"max_retries"`

	// BaseDelay is the starting backoff delay, doubled per attempt.
	BaseDelay Duration `toml:"base_delay"`

	// FailureThreshold is the consecutive-failure count that opens the
	// circuit breaker for an endpoint.
	FailureThreshold int `toml:"failure_threshold"`

	// CoolDown is how long an open circuit rejects calls.
	CoolDown Duration `toml:"cool_down"`
}

// SyncSettings configures reconciliation behavior.
type SyncSettings struct {
	// Interval is the periodic background sync cadence.
	Interval Duration `toml:"interval"`
}

// LocalSettings configures local persistence.
type LocalSettings struct {
	// DatabasePath is the sqlite file backing the profile cache.
	DatabasePath string `toml:"database_path"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Remote: RemoteSettings{
			BaseURL:          "https://api.muhasabah.app",
			RequestTimeout:   Duration{15 * time.Second},
			MaxRetries:       3,
			BaseDelay:        Duration{500 * time.Millisecond},
			FailureThreshold: 5,
			CoolDown:         Duration{10 * time.Second},
		},
		Sync: SyncSettings{
			Interval: Duration{5 * time.Minute},
		},
		Local: LocalSettings{
			DatabasePath: filepath.Join(defaultDataDir(), "profiles.db"),
		},
	}
}

// SettingsPath returns the location of the engine's config file.
func SettingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "profilesync", "config.toml"), nil
}

// LoadSettings loads settings from the config file, falling back to
// defaults when the file does not exist. Fields absent from the file keep
// their default values.
func LoadSettings() (Settings, error) {
	settings := DefaultSettings()

	path, err := SettingsPath()
	if err != nil {
		return settings, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}

	if err := LoadTOML(path, &settings); err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}

	return settings, nil
}

// SaveSettings writes settings to the config file.
func SaveSettings(settings Settings) error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}

	if err := SaveTOML(path, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

func defaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "profilesync")
}
