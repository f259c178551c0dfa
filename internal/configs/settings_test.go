package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings.Remote.BaseURL == "" {
		t.Error("Expected a default base URL")
	}
	if settings.Remote.MaxRetries != 3 {
		t.Errorf("Expected 3 retries by default, got %d", settings.Remote.MaxRetries)
	}
	if settings.Remote.FailureThreshold != 5 {
		t.Errorf("Expected failure threshold 5, got %d", settings.Remote.FailureThreshold)
	}
	if settings.Remote.CoolDown.Duration != 10*time.Second {
		t.Errorf("Expected 10s cool-down, got %v", settings.Remote.CoolDown.Duration)
	}
	if settings.Sync.Interval.Duration != 5*time.Minute {
		t.Errorf("Expected 5m sync interval, got %v", settings.Sync.Interval.Duration)
	}
	if settings.Local.DatabasePath == "" {
		t.Error("Expected a default database path")
	}
}

func TestSettingsTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	in := DefaultSettings()
	in.Remote.BaseURL = "https://profiles.example.test"
	in.Remote.RequestTimeout = Duration{2 * time.Second}
	in.Sync.Interval = Duration{90 * time.Second}
	in.Local.DatabasePath = "/tmp/profiles.db"

	if err := SaveTOML(path, in); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	var out Settings
	if err := LoadTOML(path, &out); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if out.Remote.BaseURL != in.Remote.BaseURL {
		t.Errorf("Expected base URL %q, got %q", in.Remote.BaseURL, out.Remote.BaseURL)
	}
	if out.Remote.RequestTimeout.Duration != 2*time.Second {
		t.Errorf("Expected 2s request timeout, got %v", out.Remote.RequestTimeout.Duration)
	}
	if out.Sync.Interval.Duration != 90*time.Second {
		t.Errorf("Expected 90s interval, got %v", out.Sync.Interval.Duration)
	}
	if out.Local.DatabasePath != "/tmp/profiles.db" {
		t.Errorf("Expected database path preserved, got %q", out.Local.DatabasePath)
	}
}

func TestLoadTOMLKeepsDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := "[remote]\nbase_url = \"https://partial.example.test\"\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatalf("Failed to write partial config: %v", err)
	}

	settings := DefaultSettings()
	if err := LoadTOML(path, &settings); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if settings.Remote.BaseURL != "https://partial.example.test" {
		t.Errorf("Expected overridden base URL, got %q", settings.Remote.BaseURL)
	}
	if settings.Remote.FailureThreshold != 5 {
		t.Errorf("Expected default failure threshold to survive, got %d", settings.Remote.FailureThreshold)
	}
	if settings.Sync.Interval.Duration != 5*time.Minute {
		t.Errorf("Expected default interval to survive, got %v", settings.Sync.Interval.Duration)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("750ms")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if d.Duration != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %v", d.Duration)
	}

	text, err := Duration{3 * time.Minute}.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(text) != "3m0s" {
		t.Errorf("Expected 3m0s, got %q", text)
	}

	if err := d.UnmarshalText([]byte("not a duration")); err == nil {
		t.Error("Expected an error for malformed duration text")
	}
}
