package store

import (
	"errors"
	"sync"
	"time"

	"airvisual-poller/internal/airquality"
)

var (
	// ErrNotFound is returned when no fresh reading is available.
	ErrNotFound = errors.New("no current air-quality reading")
)

// FailureRecord describes the current fetch failure streak.
type FailureRecord struct {
	ConsecutiveFailures int                  `json:"consecutiveFailures"`
	LastReason          airquality.ErrorKind `json:"lastReason"`
	NextRetryAt         time.Time            `json:"nextRetryAt"`
}

// LatestStore is a concurrency-safe holder of the single most recent valid
// reading plus the latest failure record. The poller is the only writer;
// readers always receive value copies, so a reading can never be observed
// half-updated.
type LatestStore struct {
	mu sync.RWMutex

	interval time.Duration

	reading    airquality.Reading
	hasReading bool

	failure    FailureRecord
	hasFailure bool
}

// NewLatestStore creates a store whose freshness window is derived from the
// normal polling interval (readings older than two intervals are stale).
func NewLatestStore(interval time.Duration) *LatestStore {
	return &LatestStore{interval: interval}
}

// SetReading replaces the stored reading in one swap and clears any
// failure record.
func (s *LatestStore) SetReading(r airquality.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reading = r
	s.hasReading = true
	s.failure = FailureRecord{}
	s.hasFailure = false
}

// SetFailure replaces the stored failure record. The last good reading is
// kept; staleness is decided at read time.
func (s *LatestStore) SetFailure(f FailureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failure = f
	s.hasFailure = true
}

// Latest returns the most recent reading regardless of age.
func (s *LatestStore) Latest() (airquality.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasReading {
		return airquality.Reading{}, ErrNotFound
	}
	return s.reading, nil
}

// Current returns the most recent reading if it is still fresh at now,
// and ErrNotFound otherwise. Stale data is never handed out.
func (s *LatestStore) Current(now time.Time) (airquality.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasReading || !IsFresh(s.reading.ObservedAt, now, s.interval) {
		return airquality.Reading{}, ErrNotFound
	}
	return s.reading, nil
}

// LastFailure returns the latest failure record, if any failure is pending.
func (s *LatestStore) LastFailure() (FailureRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.failure, s.hasFailure
}

// IsFresh reports whether a reading observed at observedAt is still usable
// at now. The window tolerates one missed cycle before data counts as stale.
func IsFresh(observedAt, now time.Time, interval time.Duration) bool {
	return now.Sub(observedAt) <= 2*interval
}
