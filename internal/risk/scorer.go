package risk

import (
	"strings"
	"time"

	"github.com/exitguard/exitguard/internal/mood"
	"github.com/exitguard/exitguard/internal/session"
)

// Scorer evaluates sessions against a weight table. Stateless.
type Scorer struct {
	weights *WeightTable
}

// NewScorer creates a scorer over the given table, or the default table
// when nil.
func NewScorer(weights *WeightTable) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score combines counters, the classified mood, and session age into a
// clamped 0-100 score and its zone.
func (s *Scorer) Score(counters *session.BehaviorCounters, m mood.Result, age time.Duration) (int, Zone) {
	w := s.weights

	score := counters.RageClicks*w.RageClick +
		counters.DeadClicks*w.DeadClick +
		counters.Hesitations*w.Hesitation +
		int(counters.MouseShakeIntensity)*w.MouseShake

	jiggle := counters.MouseJiggles * w.Jiggle
	if jiggle > w.JiggleCap {
		jiggle = w.JiggleCap
	}
	score += jiggle

	if counters.IdleTime > w.IdleFloor {
		idle := int((counters.IdleTime - w.IdleFloor) * w.IdlePerSecond)
		if idle > w.IdleCap {
			idle = w.IdleCap
		}
		score += idle
	}

	// A cart that has been sitting there for a while with no checkout attempt
	// is its own negative signal.
	if age.Seconds() > w.StallAgeSeconds &&
		counters.AddToCartActions > 0 && counters.CheckoutAttempts == 0 {
		score += w.StallBonus
	}

	if bonus, ok := w.MoodBonus[string(m.Mood)]; ok {
		score += bonus * m.Confidence / 100
	}
	if m.Mood == mood.Engaged {
		score -= w.EngagedRelief * m.Confidence / 100
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, ZoneFor(score)
}

// RootCause explains the dominant negative signals behind a score, for the
// dashboard and the tracker response.
func RootCause(counters *session.BehaviorCounters) string {
	var causes []string

	if counters.RageClicks >= 2 {
		causes = append(causes, "high frustration (rage clicks detected)")
	}
	if counters.DeadClicks >= 2 {
		causes = append(causes, "UI responsiveness issues (dead clicks)")
	}
	if counters.IdleTime >= 15 {
		causes = append(causes, "confusion or distraction (extended idle)")
	}
	if counters.Hesitations >= 3 {
		causes = append(causes, "purchase hesitation")
	}
	if counters.MouseExitAttempts >= 2 {
		causes = append(causes, "exit intent (cursor leaving viewport)")
	}
	if counters.PriceAreaTime >= 10 {
		causes = append(causes, "price sensitivity (dwelling on price)")
	}

	if len(causes) == 0 {
		return "normal user behavior"
	}
	return strings.Join(causes, " + ")
}
