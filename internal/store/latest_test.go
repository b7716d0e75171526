package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"airvisual-poller/internal/airquality"
)

func testReading(aqi int, observedAt time.Time) airquality.Reading {
	return airquality.Reading{
		AQI:           aqi,
		MainPollutant: "PM2.5",
		Level:         airquality.LevelForAQI(aqi),
		ObservedAt:    observedAt,
	}
}

func TestLatestEmpty(t *testing.T) {
	s := NewLatestStore(10 * time.Minute)

	if _, err := s.Latest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest on empty store: got %v, want ErrNotFound", err)
	}
	if _, err := s.Current(time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Current on empty store: got %v, want ErrNotFound", err)
	}
}

func TestCurrentFreshnessWindow(t *testing.T) {
	interval := 10 * time.Minute
	s := NewLatestStore(interval)

	observed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetReading(testReading(42, observed))

	// Inside the window, including one missed cycle.
	for _, age := range []time.Duration{0, interval, 2 * interval} {
		got, err := s.Current(observed.Add(age))
		if err != nil {
			t.Fatalf("Current at age %v: unexpected error %v", age, err)
		}
		if got.AQI != 42 || got.Level != airquality.LevelGood {
			t.Fatalf("Current at age %v: got %+v", age, got)
		}
	}

	// Just past two intervals the reading must be treated as absent.
	if _, err := s.Current(observed.Add(2*interval + time.Second)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Current past window: got %v, want ErrNotFound", err)
	}

	// Latest still returns the stale reading for diagnostics.
	if _, err := s.Latest(); err != nil {
		t.Fatalf("Latest after staleness: unexpected error %v", err)
	}
}

func TestSetReadingClearsFailure(t *testing.T) {
	s := NewLatestStore(time.Minute)

	s.SetFailure(FailureRecord{
		ConsecutiveFailures: 3,
		LastReason:          airquality.KindTransient,
		NextRetryAt:         time.Now().Add(time.Minute),
	})
	if _, ok := s.LastFailure(); !ok {
		t.Fatal("expected failure record to be present")
	}

	s.SetReading(testReading(55, time.Now()))
	if rec, ok := s.LastFailure(); ok {
		t.Fatalf("expected failure record cleared after success, got %+v", rec)
	}
}

func TestSetFailureKeepsLastGoodReading(t *testing.T) {
	s := NewLatestStore(time.Minute)

	observed := time.Now().UTC()
	s.SetReading(testReading(80, observed))
	s.SetFailure(FailureRecord{ConsecutiveFailures: 1, LastReason: airquality.KindRateLimited})

	got, err := s.Current(observed.Add(30 * time.Second))
	if err != nil {
		t.Fatalf("Current after failure: unexpected error %v", err)
	}
	if got.AQI != 80 {
		t.Fatalf("Current after failure: got AQI %d, want 80", got.AQI)
	}
}

// TestConcurrentReadersSeeWholeReadings hammers the store with one writer and
// several readers and checks every observed reading is internally consistent
// (level always derived from the AQI written in the same cycle).
func TestConcurrentReadersSeeWholeReadings(t *testing.T) {
	s := NewLatestStore(time.Hour)

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			// Alternate between readings from two distinct "cycles".
			if i%2 == 0 {
				s.SetReading(testReading(42, time.Now()))
			} else {
				s.SetReading(testReading(180, time.Now()))
			}
		}
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				got, err := s.Latest()
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					t.Errorf("Latest: unexpected error %v", err)
					return
				}
				if got.Level != airquality.LevelForAQI(got.AQI) {
					t.Errorf("torn reading observed: %+v", got)
					return
				}
			}
		}()
	}

	wg.Wait()
}

func TestIsFresh(t *testing.T) {
	now := time.Now()
	interval := 5 * time.Minute

	if !IsFresh(now.Add(-2*interval), now, interval) {
		t.Fatal("reading exactly two intervals old should be fresh")
	}
	if IsFresh(now.Add(-2*interval-time.Millisecond), now, interval) {
		t.Fatal("reading older than two intervals should be stale")
	}
}
