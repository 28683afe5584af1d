package app

import (
	"sync"

	"chirp-ranger.dev/internal/config"
)

// MeasurementStore is a thread-safe record of completed ranging attempts.
// Reported distances are smoothed with EMA to damp attempt-to-attempt jitter.
type MeasurementStore struct {
	mu       sync.RWMutex
	last     float64
	smoothed float64
	have     bool
	attempts int
	failures int
	history  *DistanceRing
}

// NewMeasurementStore creates an empty store.
func NewMeasurementStore() *MeasurementStore {
	return &MeasurementStore{
		history: NewDistanceRing(config.HistoryLen),
	}
}

// Add records a successful measurement.
func (s *MeasurementStore) Add(distanceFeet float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	s.last = distanceFeet
	if s.have {
		s.smoothed = s.smoothed*(1-config.SmoothingAlpha) + distanceFeet*config.SmoothingAlpha
	} else {
		s.smoothed = distanceFeet
		s.have = true
	}
	s.history.Push(distanceFeet)
}

// Fail records a failed attempt.
func (s *MeasurementStore) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.failures++
}

// Snapshot returns the latest and smoothed distances and whether any
// measurement exists yet.
func (s *MeasurementStore) Snapshot() (last, smoothed float64, have bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.smoothed, s.have
}

// Counts returns total attempts and failures.
func (s *MeasurementStore) Counts() (attempts, failures int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts, s.failures
}

// History returns the recorded distances in chronological order.
func (s *MeasurementStore) History() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Values()
}

// Spread returns the lowest and highest distance in the recent history.
func (s *MeasurementStore) Spread() (lo, hi float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Spread()
}
