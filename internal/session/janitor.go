package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Janitor periodically sweeps the store for stale sessions. Expiry with no
// terminal outcome is the implicit "abandoned" signal, so each eviction is
// reported through OnExpire for aggregate accounting.
type Janitor struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
	onExpire func(*Session)
	stop     chan struct{}
	running  atomic.Bool
}

// NewJanitor creates a sweep loop over the given store.
func NewJanitor(store Store, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// OnExpire registers a callback invoked once per evicted session.
func (j *Janitor) OnExpire(fn func(*Session)) *Janitor {
	j.onExpire = fn
	return j
}

// Running reports whether the sweep loop is active.
func (j *Janitor) Running() bool {
	return j.running.Load()
}

// Start begins the sweep loop. Call in a goroutine.
func (j *Janitor) Start(ctx context.Context) {
	j.running.Store(true)
	defer j.running.Store(false)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		case <-ticker.C:
			j.safeSweep(ctx)
		}
	}
}

// Stop signals the janitor to stop.
func (j *Janitor) Stop() {
	select {
	case j.stop <- struct{}{}:
	default:
	}
}

func (j *Janitor) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("panic in session janitor", "panic", fmt.Sprint(r))
		}
	}()
	j.Sweep(ctx, time.Now())
}

// Sweep runs a single expiry pass.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) {
	evicted := j.store.ExpireStale(ctx, now)
	if len(evicted) == 0 {
		return
	}

	for _, s := range evicted {
		if j.onExpire != nil {
			j.onExpire(s)
		}
		j.logger.Debug("session expired",
			"sessionId", s.ID,
			"zone", s.Zone,
			"outcome", string(s.Outcome),
		)
	}
	j.logger.Info("expired stale sessions", "count", len(evicted), "remaining", j.store.Len())
}
