package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// setBaseEnv configures a minimal valid environment.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AIRVISUAL_API_KEY", "test-key")
	t.Setenv("STATION_LATITUDE", "50.06")
	t.Setenv("STATION_LONGITUDE", "19.94")
	// Reset everything else to defaults.
	for _, key := range []string{
		"FETCH_INTERVAL", "HTTP_TIMEOUT",
		"RETRY_WAIT_BASE", "RETRY_WAIT_MAX", "RETRY_MULTIPLIER",
		"ARCHIVE_INTERVAL", "SQLITE_PATH", "PORT",
		"APP_ENV", "LOG_LEVEL", "LOG_SUCCESS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Interval != 10*time.Minute {
		t.Errorf("Interval = %v, want 10m", cfg.Interval)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RetryWaitBase != 10*time.Minute {
		t.Errorf("RetryWaitBase = %v, want 10m", cfg.RetryWaitBase)
	}
	if cfg.RetryWaitMax != 6*time.Hour {
		t.Errorf("RetryWaitMax = %v, want 6h", cfg.RetryWaitMax)
	}
	if cfg.RetryMultiplier != 2.0 {
		t.Errorf("RetryMultiplier = %v, want 2.0", cfg.RetryMultiplier)
	}
	if cfg.ArchiveInterval != 5*time.Minute {
		t.Errorf("ArchiveInterval = %v, want 5m", cfg.ArchiveInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.LogSuccess {
		t.Error("LogSuccess should default to false")
	}
}

func TestLoadMissingAPIKeyIsFatal(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AIRVISUAL_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("error = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadCoordinateValidation(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon string
	}{
		{"latitude too large", "91", "19.94"},
		{"latitude too small", "-91", "19.94"},
		{"longitude too large", "50.06", "181"},
		{"longitude too small", "50.06", "-181"},
		{"unconfigured station", "0", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("STATION_LATITUDE", tc.lat)
			t.Setenv("STATION_LONGITUDE", tc.lon)

			_, err := Load()
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoadInvalidValues(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"bad interval", "FETCH_INTERVAL", "soon"},
		{"bad timeout", "HTTP_TIMEOUT", "-5"},
		{"bad multiplier", "RETRY_MULTIPLIER", "0.5"},
		{"bad latitude", "STATION_LATITUDE", "north"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad app env", "APP_ENV", "staging"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FETCH_INTERVAL", "2m")
	t.Setenv("RETRY_MULTIPLIER", "3")
	t.Setenv("LOG_SUCCESS", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval != 2*time.Minute {
		t.Errorf("Interval = %v, want 2m", cfg.Interval)
	}
	if cfg.RetryMultiplier != 3 {
		t.Errorf("RetryMultiplier = %v, want 3", cfg.RetryMultiplier)
	}
	if !cfg.LogSuccess {
		t.Error("LogSuccess = false, want true")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}
