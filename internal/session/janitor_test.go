package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJanitor_SweepReportsEvictions(t *testing.T) {
	store := NewMemoryStore().WithTTL(time.Minute)
	ctx := context.Background()

	_, err := store.Update(ctx, "stale", storeNow.Add(-5*time.Minute), func(*Session) error { return nil })
	require.NoError(t, err)
	_, err = store.Update(ctx, "fresh", storeNow, func(*Session) error { return nil })
	require.NoError(t, err)

	var mu sync.Mutex
	var expired []string
	j := NewJanitor(store, time.Second, discardLogger()).OnExpire(func(s *Session) {
		mu.Lock()
		expired = append(expired, s.ID)
		mu.Unlock()
	})

	j.Sweep(ctx, storeNow)

	assert.Equal(t, []string{"stale"}, expired)
	assert.Equal(t, 1, store.Len())

	// A second sweep at the same instant finds nothing new.
	j.Sweep(ctx, storeNow)
	assert.Equal(t, []string{"stale"}, expired)
}

func TestJanitor_SweepWithoutCallback(t *testing.T) {
	store := NewMemoryStore().WithTTL(time.Minute)
	ctx := context.Background()

	_, err := store.Update(ctx, "stale", storeNow.Add(-5*time.Minute), func(*Session) error { return nil })
	require.NoError(t, err)

	j := NewJanitor(store, time.Second, discardLogger())
	j.Sweep(ctx, storeNow)

	assert.Equal(t, 0, store.Len())
}

func TestJanitor_StartStop(t *testing.T) {
	store := NewMemoryStore()
	j := NewJanitor(store, 10*time.Millisecond, discardLogger())

	assert.False(t, j.Running())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go j.Start(ctx)

	assert.Eventually(t, j.Running, time.Second, 5*time.Millisecond)

	j.Stop()
	assert.Eventually(t, func() bool { return !j.Running() }, time.Second, 5*time.Millisecond)
}

func TestJanitor_StopsOnContextCancel(t *testing.T) {
	store := NewMemoryStore()
	j := NewJanitor(store, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go j.Start(ctx)
	assert.Eventually(t, j.Running, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return !j.Running() }, time.Second, 5*time.Millisecond)
}

func TestNewJanitor_DefaultInterval(t *testing.T) {
	j := NewJanitor(NewMemoryStore(), 0, discardLogger())
	assert.Equal(t, 10*time.Second, j.interval)
}
