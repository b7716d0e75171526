// Package archive persists one composite record per archival cycle, merging
// in the latest air-quality reading when the freshness gate allows it.
package archive

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"airvisual-poller/internal/store"
)

// Archiver periodically builds an archive record from the latest store.
type Archiver struct {
	scheduler *gocron.Scheduler
	store     *store.LatestStore
	repo      *Repository
	interval  time.Duration
	log       *slog.Logger
}

// NewArchiver creates an Archiver running every interval.
func NewArchiver(st *store.LatestStore, repo *Repository, interval time.Duration, log *slog.Logger) *Archiver {
	s := gocron.NewScheduler(time.UTC)
	return &Archiver{
		scheduler: s,
		store:     st,
		repo:      repo,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic archival job and starts the scheduler.
func (a *Archiver) Start() error {
	seconds := int(a.interval.Seconds())
	if seconds <= 0 {
		seconds = 300
	}

	_, err := a.scheduler.Every(seconds).Seconds().Do(a.RunCycle)
	if err != nil {
		return err
	}

	a.scheduler.StartAsync()
	a.log.Info("archiver started", "interval", a.interval)
	return nil
}

// Stop stops the scheduler and cancels any future cycles.
func (a *Archiver) Stop() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
}

// RunCycle builds and persists one archive record. A stale or absent reading
// archives as NULL columns so the record cadence never gaps.
func (a *Archiver) RunCycle() {
	now := time.Now().UTC()
	rec := Record{Timestamp: now}

	reading, err := a.store.Current(now)
	if err == nil {
		aqi := reading.AQI
		pollutant := reading.MainPollutant
		level := string(reading.Level)
		rec.AQI = &aqi
		rec.MainPollutant = &pollutant
		rec.Level = &level
	} else {
		a.log.Debug("no fresh reading for archive record")
	}

	if err := a.repo.InsertRecord(rec); err != nil {
		a.log.Error("failed to insert archive record", "err", err)
		return
	}
	a.log.Debug("archived record", "ts", rec.Timestamp)
}
