package mood

import (
	"github.com/exitguard/exitguard/internal/session"
)

// Result is the outcome of classifying one set of counters.
type Result struct {
	Mood       Mood         `json:"mood"`
	Scores     map[Mood]int `json:"scores"`
	Confidence int          `json:"confidence"` // winning score, capped at 100
}

// Classifier evaluates a rule table against behavior counters. Stateless;
// the same counters always produce the same result.
type Classifier struct {
	table *RuleTable
}

// NewClassifier creates a classifier over the given table, or the default
// table when nil.
func NewClassifier(table *RuleTable) *Classifier {
	if table == nil {
		table = DefaultRules()
	}
	return &Classifier{table: table}
}

// Classify scores every mood category and picks the winner. A strict maximum
// wins; equal top scores fall back to the fixed priority order. If no score
// clears the confidence floor the session is neutral.
func (c *Classifier) Classify(counters *session.BehaviorCounters) Result {
	scores := make(map[Mood]int, len(c.table.Rules))
	for m, rules := range c.table.Rules {
		total := 0
		for _, r := range rules {
			if counters.Value(r.Counter) > r.Threshold {
				total += r.Weight
			}
		}
		scores[m] = total
	}

	best := Neutral
	bestScore := 0
	for _, m := range priority {
		if s := scores[m]; s > bestScore {
			best = m
			bestScore = s
		}
	}

	if bestScore <= ConfidenceFloor {
		return Result{Mood: Neutral, Scores: scores, Confidence: 0}
	}

	confidence := bestScore
	if confidence > 100 {
		confidence = 100
	}
	return Result{Mood: best, Scores: scores, Confidence: confidence}
}
