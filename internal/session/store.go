package session

import (
	"context"
	"time"
)

// Store is the session state container. Implementations must serialize
// concurrent Update calls for the same session id while letting updates to
// different ids proceed independently. Reads return snapshots and may be
// briefly stale.
type Store interface {
	// Update creates the session if absent, refreshes last-seen, and runs fn
	// on it atomically with respect to other updates for the same id.
	// Returns a snapshot of the session after fn ran.
	Update(ctx context.Context, id string, now time.Time, fn func(*Session) error) (*Session, error)

	// Get returns a snapshot of a session, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// ListActive returns snapshots of sessions seen within the inactivity
	// timeout, in no particular order.
	ListActive(ctx context.Context, now time.Time) ([]*Session, error)

	// ExpireStale removes sessions past their timeout and returns snapshots
	// of what was evicted. Converted sessions are retained longer for
	// analytics reads.
	ExpireStale(ctx context.Context, now time.Time) []*Session

	// Len returns the number of sessions currently held, active or not.
	Len() int
}
