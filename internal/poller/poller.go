// Package poller runs the background collection loop: fetch on a schedule,
// back off on failure, publish successes to the shared store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airvisual-poller/internal/airquality"
	"airvisual-poller/internal/backoff"
	"airvisual-poller/internal/config"
	"airvisual-poller/internal/store"
)

// State is the poller lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Fetcher abstracts the air-quality source.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (airquality.Reading, error)
}

// Config holds the polling parameters.
type Config struct {
	Latitude  float64
	Longitude float64

	Interval time.Duration // normal wait between successful fetches
	Timeout  time.Duration // per-attempt request timeout

	RetryWaitBase   time.Duration
	RetryWaitMax    time.Duration
	RetryMultiplier float64

	LogSuccess bool

	// StopGrace bounds how long Stop waits for the loop to exit.
	StopGrace time.Duration
}

const defaultStopGrace = 10 * time.Second

func (c Config) validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", config.ErrConfigInvalid, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", config.ErrConfigInvalid, c.Longitude)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", config.ErrConfigInvalid)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", config.ErrConfigInvalid)
	}
	if c.RetryWaitBase <= 0 {
		return fmt.Errorf("%w: retry wait base must be positive", config.ErrConfigInvalid)
	}
	if c.RetryMultiplier < 1 {
		return fmt.Errorf("%w: retry multiplier must be >= 1", config.ErrConfigInvalid)
	}
	return nil
}

// Poller owns the background loop. It is the only writer of the store;
// no error kind ever terminates the loop, only Stop does.
type Poller struct {
	cfg     Config
	fetcher Fetcher
	store   *store.LatestStore
	log     *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Poller in the idle state.
func New(fetcher Fetcher, st *store.LatestStore, cfg Config, log *slog.Logger) *Poller {
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		log:     log,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start validates the configuration and spawns the collection loop.
// Calling Start on a running poller is a no-op; a stopped poller cannot
// be restarted.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateRunning:
		return nil
	case StateStopping, StateStopped:
		return errors.New("poller already stopped")
	}

	if err := p.cfg.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = StateRunning

	go p.loop(ctx)

	p.log.Info("poller started",
		"lat", p.cfg.Latitude,
		"lon", p.cfg.Longitude,
		"interval", p.cfg.Interval,
	)
	return nil
}

// Stop signals the loop to exit at its next safe point and blocks until it
// has, or until the grace period elapses. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state != StateRunning {
		p.state = StateStopped
		p.mu.Unlock()
		return
	}
	p.state = StateStopping
	p.cancel()
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
	case <-time.After(p.cfg.StopGrace):
		p.log.Warn("collection loop did not stop within grace period", "grace", p.cfg.StopGrace)
	}

	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()

	p.log.Info("poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	p.log.Info("collection loop started")
	defer p.log.Info("collection loop exited")

	failures := 0
	var wait time.Duration // first attempt runs immediately

	for {
		if !p.sleep(ctx, wait) {
			return
		}

		fctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		reading, err := p.fetcher.Fetch(fctx, p.cfg.Latitude, p.cfg.Longitude)
		cancel()

		// A failure caused by shutdown is not an API failure.
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			failures++
			wait = backoff.NextWait(failures, p.cfg.RetryWaitBase, p.cfg.RetryWaitMax, p.cfg.RetryMultiplier)

			p.store.SetFailure(store.FailureRecord{
				ConsecutiveFailures: failures,
				LastReason:          airquality.KindOf(err),
				NextRetryAt:         time.Now().UTC().Add(wait),
			})

			p.log.Warn("fetch failed",
				"reason", airquality.KindOf(err),
				"consecutive_failures", failures,
				"retry_in", wait,
				"err", err,
			)
			continue
		}

		if failures > 0 {
			p.log.Info("api connection restored", "failures_overcome", failures)
		}
		failures = 0
		wait = p.cfg.Interval

		p.store.SetReading(reading)

		if p.cfg.LogSuccess {
			p.log.Info("collected air-quality reading",
				"aqi", reading.AQI,
				"pollutant", reading.MainPollutant,
				"level", reading.Level,
			)
		}
	}
}

// sleep waits for d or until shutdown, whichever comes first. Returns false
// when the loop should exit.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
