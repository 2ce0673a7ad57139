package salvage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/exitguard/exitguard/internal/metrics"
	"github.com/exitguard/exitguard/internal/session"
	"github.com/exitguard/exitguard/internal/traces"
)

// Publisher pushes conversion events to dashboard subscribers.
type Publisher interface {
	PublishConversion(s *session.Session, salvaged bool)
}

// ConversionResult reports what a checkout confirmation changed.
type ConversionResult struct {
	Session  *session.Session
	Salvaged bool
	Repeat   bool // the session had already converted
	Value    float64
}

// Service handles conversion attribution and intervention reconciliation.
type Service struct {
	store     session.Store
	tracker   *Tracker
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a salvage service.
func NewService(store session.Store, tracker *Tracker, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, tracker: tracker, publisher: publisher, logger: logger}
}

// Convert marks a session as converted and attributes the revenue. The
// session keeps its first conversion; retried confirmations are reported as
// repeats and leave the aggregates unchanged.
func (s *Service) Convert(ctx context.Context, sessionID string, orderValue float64, now time.Time) (*ConversionResult, error) {
	ctx, span := traces.StartSpan(ctx, "salvage.Convert", traces.SessionID(sessionID))
	defer span.End()

	if _, err := s.store.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	repeat := false
	updated, err := s.store.Update(ctx, sessionID, now, func(sess *session.Session) error {
		if sess.Outcome == session.OutcomeConverted {
			repeat = true
			return nil
		}
		sess.Outcome = session.OutcomeConverted
		sess.OrderValue = orderValue
		t := now
		sess.ConvertedAt = &t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("salvage: convert session: %w", err)
	}

	red := updated.ReachedRed()
	attr := s.tracker.Attribute(sessionID, updated.OrderValue, red, now)

	if !attr.Duplicate {
		status := "normal"
		if attr.Salvaged {
			status = "salvaged"
			metrics.RevenueSavedTotal.Add(attr.Value)
		}
		metrics.ConversionsTotal.WithLabelValues(status).Inc()

		s.logger.Info("conversion recorded",
			"session_id", sessionID,
			"order_value", attr.Value,
			"salvaged", attr.Salvaged,
		)
		if s.publisher != nil {
			s.publisher.PublishConversion(updated, attr.Salvaged)
		}
	}

	return &ConversionResult{
		Session:  updated,
		Salvaged: attr.Salvaged,
		Repeat:   repeat || attr.Duplicate,
		Value:    attr.Value,
	}, nil
}

// MarkShown records the client-side confirmation that an intervention was
// rendered. The decider's record stays authoritative; this only fills in
// the ShownAt timestamp.
func (s *Service) MarkShown(ctx context.Context, sessionID, interventionID string, now time.Time) (*session.Session, error) {
	if _, err := s.store.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	return s.store.Update(ctx, sessionID, now, func(sess *session.Session) error {
		if len(sess.Interventions) == 0 {
			return nil
		}
		// Without an explicit id the confirmation applies to the most recent
		target := len(sess.Interventions) - 1
		if interventionID != "" {
			target = -1
			for i := range sess.Interventions {
				if sess.Interventions[i].ID == interventionID {
					target = i
					break
				}
			}
		}
		if target >= 0 && sess.Interventions[target].ShownAt == nil {
			t := now
			sess.Interventions[target].ShownAt = &t
		}
		return nil
	})
}

// WindowStats returns the current rolling-window aggregates plus the
// salvaged session ids.
func (s *Service) WindowStats(now time.Time) (Stats, []string) {
	return s.tracker.Stats(now), s.tracker.SalvagedIDs(now)
}
