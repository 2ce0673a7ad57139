// Package session holds per-visitor session state: accumulated behavior
// counters, the current mood/risk assessment, intervention history, and the
// terminal outcome. Sessions are keyed by an opaque client-generated id and
// expire after an inactivity timeout.
package session

import (
	"errors"
	"time"
)

// Errors returned by session stores.
var (
	ErrNotFound = errors.New("session not found")
)

// Outcome is the terminal state of a session.
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeConverted Outcome = "converted"
	OutcomeAbandoned Outcome = "abandoned"
)

// BehaviorCounters accumulates the micro-interaction signals reported by the
// tracker. Most counters are monotonic and merged additively; IdleTime and
// MouseShakeIntensity are point-in-time values merged with max(), so a retried
// batch can never shrink them.
type BehaviorCounters struct {
	RageClicks             int     `json:"rageClicks"`
	DeadClicks             int     `json:"deadClicks"`
	Hesitations            int     `json:"hesitations"`
	IdleTime               float64 `json:"idleTime"` // seconds, resets on activity client-side
	ScrollCount            int     `json:"scrollCount"`
	MouseJiggles           int     `json:"mouseJiggles"`
	CartRevisits           int     `json:"cartRevisits"`
	ItemAddRemoves         int     `json:"itemAddRemoves"`
	ScrollDirectionChanges int     `json:"scrollDirectionChanges"`
	MouseShakeIntensity    float64 `json:"mouseShakeIntensity"`
	PriceAreaTime          float64 `json:"priceAreaTime"` // seconds dwelling on price elements
	ModalToggles           int     `json:"modalToggle"`
	TabSwitches            int     `json:"tabSwitches"`
	MouseExitAttempts      int     `json:"mouseExitAttempts"`
	AddToCartActions       int     `json:"addToCartActions"`
	CheckoutAttempts       int     `json:"checkoutAttempts"`
}

// CounterNames is the allow-list of behavior keys accepted from the tracker.
var CounterNames = []string{
	"rageClicks", "deadClicks", "hesitations", "idleTime", "scrollCount",
	"mouseJiggles", "cartRevisits", "itemAddRemoves", "scrollDirectionChanges",
	"mouseShakeIntensity", "priceAreaTime", "modalToggle", "tabSwitches",
	"mouseExitAttempts", "addToCartActions", "checkoutAttempts",
}

// IsCounterName reports whether name is a known behavior key.
func IsCounterName(name string) bool {
	for _, n := range CounterNames {
		if n == name {
			return true
		}
	}
	return false
}

// Value returns a counter by its wire name. Unknown names return 0, so the
// classifier and scorer stay total over arbitrary rule tables.
func (c *BehaviorCounters) Value(name string) float64 {
	switch name {
	case "rageClicks":
		return float64(c.RageClicks)
	case "deadClicks":
		return float64(c.DeadClicks)
	case "hesitations":
		return float64(c.Hesitations)
	case "idleTime":
		return c.IdleTime
	case "scrollCount":
		return float64(c.ScrollCount)
	case "mouseJiggles":
		return float64(c.MouseJiggles)
	case "cartRevisits":
		return float64(c.CartRevisits)
	case "itemAddRemoves":
		return float64(c.ItemAddRemoves)
	case "scrollDirectionChanges":
		return float64(c.ScrollDirectionChanges)
	case "mouseShakeIntensity":
		return c.MouseShakeIntensity
	case "priceAreaTime":
		return c.PriceAreaTime
	case "modalToggle":
		return float64(c.ModalToggles)
	case "tabSwitches":
		return float64(c.TabSwitches)
	case "mouseExitAttempts":
		return float64(c.MouseExitAttempts)
	case "addToCartActions":
		return float64(c.AddToCartActions)
	case "checkoutAttempts":
		return float64(c.CheckoutAttempts)
	default:
		return 0
	}
}

// Merge folds a partial batch of counters into c. Monotonic counters are
// merged additively (the tracker sends deltas); IdleTime and
// MouseShakeIntensity are point-in-time and take the max of current and
// reported, which keeps them safe under duplicate delivery but not under
// genuine reordering (a known limitation of last-write counters).
func (c *BehaviorCounters) Merge(deltas map[string]float64) {
	for name, v := range deltas {
		switch name {
		case "rageClicks":
			c.RageClicks += int(v)
		case "deadClicks":
			c.DeadClicks += int(v)
		case "hesitations":
			c.Hesitations += int(v)
		case "idleTime":
			if v > c.IdleTime {
				c.IdleTime = v
			}
		case "scrollCount":
			c.ScrollCount += int(v)
		case "mouseJiggles":
			c.MouseJiggles += int(v)
		case "cartRevisits":
			c.CartRevisits += int(v)
		case "itemAddRemoves":
			c.ItemAddRemoves += int(v)
		case "scrollDirectionChanges":
			c.ScrollDirectionChanges += int(v)
		case "mouseShakeIntensity":
			if v > c.MouseShakeIntensity {
				c.MouseShakeIntensity = v
			}
		case "priceAreaTime":
			c.PriceAreaTime += v
		case "modalToggle":
			c.ModalToggles += int(v)
		case "tabSwitches":
			c.TabSwitches += int(v)
		case "mouseExitAttempts":
			c.MouseExitAttempts += int(v)
		case "addToCartActions":
			c.AddToCartActions += int(v)
		case "checkoutAttempts":
			c.CheckoutAttempts += int(v)
		}
	}
}

// Intervention records a single server-side decision to intervene.
// Immutable once appended to a session's history.
type Intervention struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"` // discount_popup, chat_bubble, help_overlay
	TriggeredAt time.Time  `json:"triggeredAt"`
	RiskScore   int        `json:"riskScore"`
	Zone        string     `json:"zone"`
	ShownAt     *time.Time `json:"shownAt,omitempty"` // client-side confirmation, reconciled later
}

// RawEvent is an opaque tracker event. The core stores a bounded tail of them
// for the session detail view and assumes nothing about their shape.
type RawEvent struct {
	Type      string         `json:"type"`
	Target    string         `json:"target,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// MoodChange is one entry in a session's mood trajectory.
type MoodChange struct {
	Mood       string    `json:"mood"`
	Confidence int       `json:"confidence"`
	At         time.Time `json:"at"`
}

// Decider states for the per-session intervention state machine.
const (
	StateIdle       = "idle"
	StateWatching   = "watching"
	StateIntervened = "intervened"
	StateCooledDown = "cooled_down"
)

// Session is the unit of state: one browsing visit.
type Session struct {
	ID        string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	LastSeen  time.Time `json:"last_seen"`

	Counters BehaviorCounters `json:"behaviors"`
	Events   []RawEvent       `json:"events,omitempty"`

	Mood           string         `json:"mood"`
	MoodConfidence int            `json:"mood_confidence"`
	MoodScores     map[string]int `json:"mood_scores,omitempty"`
	MoodHistory    []MoodChange   `json:"mood_history,omitempty"`

	RiskScore       int    `json:"risk_score"`
	Zone            string `json:"risk_zone"`
	RootCause       string `json:"root_cause"`
	SuggestedAction string `json:"suggested_action"`

	DeciderState  string         `json:"decider_state"`
	CooldownUntil time.Time      `json:"cooldown_until,omitzero"`
	Interventions []Intervention `json:"interventions,omitempty"`

	Outcome     Outcome    `json:"outcome"`
	OrderValue  float64    `json:"order_value,omitempty"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
}

// ReachedRed reports whether any intervention in the history fired in the red
// zone. The attributor treats this record as authoritative over client marks.
func (s *Session) ReachedRed() bool {
	for _, iv := range s.Interventions {
		if iv.Zone == "red" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand outside the store.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Events != nil {
		cp.Events = make([]RawEvent, len(s.Events))
		copy(cp.Events, s.Events)
	}
	if s.Interventions != nil {
		cp.Interventions = make([]Intervention, len(s.Interventions))
		copy(cp.Interventions, s.Interventions)
	}
	if s.MoodHistory != nil {
		cp.MoodHistory = make([]MoodChange, len(s.MoodHistory))
		copy(cp.MoodHistory, s.MoodHistory)
	}
	if s.MoodScores != nil {
		cp.MoodScores = make(map[string]int, len(s.MoodScores))
		for k, v := range s.MoodScores {
			cp.MoodScores[k] = v
		}
	}
	if s.ConvertedAt != nil {
		t := *s.ConvertedAt
		cp.ConvertedAt = &t
	}
	return &cp
}
