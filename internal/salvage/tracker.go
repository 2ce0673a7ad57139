package salvage

import (
	"math"
	"sync"
	"time"
)

type conversion struct {
	at       time.Time
	value    float64
	salvaged bool
}

// Tracker owns the rolling salvage aggregates. All entries are timestamped
// and pruned past the window on every mutation and read, so the aggregates
// roll continuously rather than resetting on a boundary.
//
// Both RecordRedZone and Attribute are idempotent per session id: duplicate
// or out-of-order signals (retried checkout confirmations, repeated red-zone
// batches) change the aggregates at most once.
type Tracker struct {
	mu          sync.Mutex
	window      time.Duration
	redZone     map[string]time.Time  // session id → first red-zone entry
	conversions map[string]conversion // session id → attributed conversion
}

// NewTracker creates a tracker with the given rolling window, or
// DefaultWindow when non-positive.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		window:      window,
		redZone:     make(map[string]time.Time),
		conversions: make(map[string]conversion),
	}
}

// RecordRedZone notes that a session entered the red zone. Only the first
// call per session counts; the session joins the salvage-rate denominator
// whether or not it later converts.
func (t *Tracker) RecordRedZone(sessionID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(now)

	if _, seen := t.redZone[sessionID]; !seen {
		t.redZone[sessionID] = now
	}
}

// Attribute records a completed checkout. A conversion counts as salvaged
// when the session carries at least one red-zone intervention. Repeated
// signals for the same session return the original attribution unchanged.
func (t *Tracker) Attribute(sessionID string, value float64, redIntervention bool, now time.Time) Attribution {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(now)

	if prev, ok := t.conversions[sessionID]; ok {
		return Attribution{Salvaged: prev.salvaged, Duplicate: true, Value: prev.value}
	}

	// A red-zone intervention implies the session reached red, even if the
	// risk batch that crossed the line was never recorded here.
	if redIntervention {
		if _, seen := t.redZone[sessionID]; !seen {
			t.redZone[sessionID] = now
		}
	}

	t.conversions[sessionID] = conversion{at: now, value: value, salvaged: redIntervention}
	return Attribution{Salvaged: redIntervention, Value: value}
}

// SalvagedIDs returns the session ids attributed as salvaged in the current
// window, most useful for the dashboard drill-down.
func (t *Tracker) SalvagedIDs(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(now)

	ids := make([]string, 0, len(t.conversions))
	for id, c := range t.conversions {
		if c.salvaged {
			ids = append(ids, id)
		}
	}
	return ids
}

// Stats computes the current window's aggregates.
func (t *Tracker) Stats(now time.Time) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(now)

	s := Stats{
		TotalHighRisk: len(t.redZone),
		WindowSeconds: int(t.window.Seconds()),
	}
	for _, c := range t.conversions {
		s.TotalConverted++
		s.TotalRevenue += c.value
		if c.salvaged {
			s.TotalSalvaged++
			s.RevenueSaved += c.value
		}
	}

	if s.TotalHighRisk > 0 {
		s.SalvageRate = round4(float64(s.TotalSalvaged) / float64(s.TotalHighRisk))
	}
	if s.TotalSalvaged > 0 {
		s.AvgSalvageValue = round2(s.RevenueSaved / float64(s.TotalSalvaged))
	}
	s.RevenueSaved = round2(s.RevenueSaved)
	s.TotalRevenue = round2(s.TotalRevenue)
	return s
}

// prune drops entries older than the window. Caller holds the lock.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	for id, at := range t.redZone {
		if at.Before(cutoff) {
			delete(t.redZone, id)
		}
	}
	for id, c := range t.conversions {
		if c.at.Before(cutoff) {
			delete(t.conversions, id)
		}
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
