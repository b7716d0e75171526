package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfigInvalid marks fatal startup configuration problems. The service
// must refuse to start rather than run with silent no-ops.
var ErrConfigInvalid = errors.New("invalid configuration")

var validate = validator.New()

// AppConfig is the static configuration read once at service start.
type AppConfig struct {
	// APIKey authenticates against the AirVisual API. Required.
	APIKey string `validate:"required"`

	// Station coordinates, fixed for the lifetime of the process.
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`

	// Interval controls the normal fetch cadence; Timeout bounds each request.
	Interval time.Duration `validate:"gt=0"`
	Timeout  time.Duration `validate:"gt=0"`

	// Exponential backoff applied after consecutive fetch failures.
	RetryWaitBase   time.Duration `validate:"gt=0"`
	RetryWaitMax    time.Duration `validate:"gt=0"`
	RetryMultiplier float64       `validate:"gte=1"`

	// ArchiveInterval is the cadence of the archival cycle consuming the store.
	ArchiveInterval time.Duration `validate:"gt=0"`

	// SQLitePath is the archive database file.
	SQLitePath string

	Port       string
	AppEnv     string
	LogLevel   slog.Level
	LogSuccess bool
}

// Load reads configuration from the environment with sensible defaults and
// validates it. All failures wrap ErrConfigInvalid.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.APIKey = strings.TrimSpace(os.Getenv("AIRVISUAL_API_KEY"))

	var err error
	if cfg.Latitude, err = getenvFloat("STATION_LATITUDE", 0); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = getenvFloat("STATION_LONGITUDE", 0); err != nil {
		return nil, err
	}

	if cfg.Interval, err = getenvDuration("FETCH_INTERVAL", "10m"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RetryWaitBase, err = getenvDuration("RETRY_WAIT_BASE", "10m"); err != nil {
		return nil, err
	}
	if cfg.RetryWaitMax, err = getenvDuration("RETRY_WAIT_MAX", "6h"); err != nil {
		return nil, err
	}
	if cfg.RetryMultiplier, err = getenvFloat("RETRY_MULTIPLIER", 2.0); err != nil {
		return nil, err
	}
	if cfg.ArchiveInterval, err = getenvDuration("ARCHIVE_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "airvisual.db")
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("%w: invalid APP_ENV %q (allowed: dev, prod)", ErrConfigInvalid, cfg.AppEnv)
	}

	if cfg.LogLevel, err = parseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	cfg.LogSuccess = getenvBool("LOG_SUCCESS", false)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	// Zero/zero almost always means the station was never configured.
	if cfg.Latitude == 0 && cfg.Longitude == 0 {
		return nil, fmt.Errorf("%w: station coordinates not configured, set STATION_LATITUDE and STATION_LONGITUDE", ErrConfigInvalid)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q: %v", ErrConfigInvalid, key, s, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q: %v", ErrConfigInvalid, key, v, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", ErrConfigInvalid, s)
	}
}
