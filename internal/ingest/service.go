// Package ingest runs the per-batch analysis pipeline: merge reported
// behaviors into the session, reclassify mood, rescore risk, and let the
// intervention state machine react. One batch is processed atomically per
// session; batches for different sessions proceed independently.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/exitguard/exitguard/internal/intervene"
	"github.com/exitguard/exitguard/internal/logging"
	"github.com/exitguard/exitguard/internal/metrics"
	"github.com/exitguard/exitguard/internal/mood"
	"github.com/exitguard/exitguard/internal/risk"
	"github.com/exitguard/exitguard/internal/salvage"
	"github.com/exitguard/exitguard/internal/session"
	"github.com/exitguard/exitguard/internal/traces"
	"github.com/exitguard/exitguard/internal/validation"
)

// ValidationError reports a rejected batch field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Publisher pushes live updates to dashboard subscribers.
type Publisher interface {
	PublishSessionUpdate(s *session.Session)
	PublishIntervention(s *session.Session, iv *session.Intervention)
}

// Batch is one tracker report for one session.
type Batch struct {
	SessionID string
	Behaviors map[string]float64
	Events    []session.RawEvent
}

// Result is the outcome of processing one batch.
type Result struct {
	Session      *session.Session
	Intervention *session.Intervention
}

// Service wires the analysis pipeline together.
type Service struct {
	store      session.Store
	classifier *mood.Classifier
	scorer     *risk.Scorer
	decider    *intervene.Decider
	tracker    *salvage.Tracker
	publisher  Publisher
	logger     *slog.Logger
}

// NewService creates an ingest service.
func NewService(store session.Store, classifier *mood.Classifier, scorer *risk.Scorer,
	decider *intervene.Decider, tracker *salvage.Tracker, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		classifier: classifier,
		scorer:     scorer,
		decider:    decider,
		tracker:    tracker,
		publisher:  publisher,
		logger:     logger,
	}
}

// Process validates and applies one batch, returning the updated session and
// any intervention fired this step.
func (s *Service) Process(ctx context.Context, batch Batch, now time.Time) (*Result, error) {
	if !validation.IsValidSessionID(batch.SessionID) {
		metrics.BatchesIngestedTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Field: "session_id", Message: "must be 1-100 chars of [a-zA-Z0-9_-]"}
	}
	if field, msg := validation.CheckBehaviors(batch.Behaviors); field != "" {
		metrics.BatchesIngestedTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Field: field, Message: msg}
	}

	ctx = logging.WithLogger(logging.WithSessionID(ctx, batch.SessionID), s.logger)
	ctx, span := traces.StartSpan(ctx, "ingest.Process", traces.SessionID(batch.SessionID))
	defer span.End()

	var fired *session.Intervention
	var moodResult mood.Result

	updated, err := s.store.Update(ctx, batch.SessionID, now, func(sess *session.Session) error {
		prevMood := sess.Mood

		sess.Counters.Merge(batch.Behaviors)
		if len(batch.Events) > 0 {
			sess.Events = append(sess.Events, batch.Events...)
		}

		moodResult = s.classifier.Classify(&sess.Counters)
		sess.Mood = string(moodResult.Mood)
		sess.MoodConfidence = moodResult.Confidence
		sess.MoodScores = make(map[string]int, len(moodResult.Scores))
		for m, v := range moodResult.Scores {
			sess.MoodScores[string(m)] = v
		}
		if sess.Mood != prevMood {
			sess.MoodHistory = append(sess.MoodHistory, session.MoodChange{
				Mood:       sess.Mood,
				Confidence: sess.MoodConfidence,
				At:         now,
			})
		}

		score, zone := s.scorer.Score(&sess.Counters, moodResult, now.Sub(sess.StartedAt))
		sess.RiskScore = score
		sess.Zone = string(zone)
		sess.RootCause = risk.RootCause(&sess.Counters)
		sess.SuggestedAction = intervene.SuggestedAction(score)

		fired = s.decider.Decide(sess, moodResult, score, zone, now)
		return nil
	})
	if err != nil {
		metrics.BatchesIngestedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ingest: update session: %w", err)
	}

	span.SetAttributes(
		traces.Mood(updated.Mood),
		traces.RiskScore(updated.RiskScore),
		traces.RiskZone(updated.Zone),
	)

	// The red-zone record is the denominator for the salvage rate; it must be
	// written even if the visitor later abandons without converting.
	if updated.Zone == string(risk.ZoneRed) {
		s.tracker.RecordRedZone(updated.ID, now)
	}

	metrics.BatchesIngestedTotal.WithLabelValues("ok").Inc()
	metrics.RiskScore.Observe(float64(updated.RiskScore))
	metrics.MoodsTotal.WithLabelValues(updated.Mood).Inc()
	metrics.ActiveSessions.Set(float64(s.store.Len()))

	if fired != nil {
		metrics.InterventionsTotal.WithLabelValues(fired.Type).Inc()
		logging.L(ctx).Info("intervention fired",
			"type", fired.Type,
			"risk_score", fired.RiskScore,
			"zone", fired.Zone,
		)
		span.SetAttributes(traces.InterventionType(fired.Type))
	}

	if s.publisher != nil {
		s.publisher.PublishSessionUpdate(updated)
		if fired != nil {
			s.publisher.PublishIntervention(updated, fired)
		}
	}

	return &Result{Session: updated, Intervention: fired}, nil
}
