package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"airvisual-poller/internal/airquality"
	httpapi "airvisual-poller/internal/api/http"
	"airvisual-poller/internal/archive"
	"airvisual-poller/internal/config"
	"airvisual-poller/internal/poller"
	"airvisual-poller/internal/store"
)

const appName = "airvisual-poller"

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"lat", cfg.Latitude,
		"lon", cfg.Longitude,
		"interval", cfg.Interval,
	)

	if cfg.Interval < 5*time.Minute {
		slog.Warn("fetch interval is very short and may quickly exhaust the API quota",
			"interval", cfg.Interval,
		)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}

	client := airquality.NewClient(httpClient, cfg.APIKey, appName+"/"+version, log.With("component", "airvisual"))

	// Single-slot store with freshness derived from the fetch interval.
	latest := store.NewLatestStore(cfg.Interval)

	pol := poller.New(client, latest, poller.Config{
		Latitude:        cfg.Latitude,
		Longitude:       cfg.Longitude,
		Interval:        cfg.Interval,
		Timeout:         cfg.Timeout,
		RetryWaitBase:   cfg.RetryWaitBase,
		RetryWaitMax:    cfg.RetryWaitMax,
		RetryMultiplier: cfg.RetryMultiplier,
		LogSuccess:      cfg.LogSuccess,
	}, log.With("component", "poller"))

	if err := pol.Start(); err != nil {
		slog.Error("failed to start poller", "err", err)
		os.Exit(1)
	}
	defer pol.Stop()

	// Archival cycle persisting one record per interval.
	db, err := archive.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open archive database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	archiver := archive.NewArchiver(latest, archive.NewRepository(db), cfg.ArchiveInterval, log.With("component", "archiver"))
	if err := archiver.Start(); err != nil {
		slog.Error("failed to start archiver", "err", err)
		os.Exit(1)
	}
	defer archiver.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, latest, pol)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "err", err)
	}
}

func newLogger(cfg *config.AppConfig) *slog.Logger {
	if cfg.AppEnv == "dev" {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
