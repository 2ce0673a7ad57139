// Package mood infers an emotional state from a session's accumulated
// behavior counters. Classification is a pure function over an explicit,
// versioned rule table: each rule adds a weight to its mood's score when a
// named counter crosses a threshold, and the top score wins if it clears the
// confidence floor.
package mood

// Mood is a categorical emotional state label.
type Mood string

const (
	Frustrated     Mood = "frustrated"
	Hesitating     Mood = "hesitating"
	Confused       Mood = "confused"
	PriceSensitive Mood = "price_sensitive"
	AboutToLeave   Mood = "about_to_leave"
	Engaged        Mood = "engaged"
	Neutral        Mood = "neutral"
)

// Negative reports whether the mood signals abandonment risk.
func (m Mood) Negative() bool {
	switch m {
	case Frustrated, Hesitating, Confused, AboutToLeave:
		return true
	}
	return false
}

// ConfidenceFloor is the score a winning mood must exceed; at or below it
// the session is classified as neutral.
const ConfidenceFloor = 20

// priority breaks ties between equal top scores. Declared explicitly so
// classification is deterministic; earlier entries win.
var priority = []Mood{
	Frustrated, AboutToLeave, Hesitating, Confused, PriceSensitive, Engaged,
}

// Rule adds Weight points to a mood's score when the named counter is
// strictly greater than Threshold.
type Rule struct {
	Counter   string
	Threshold float64
	Weight    int
}

// RuleTable maps each mood to its weighted rules.
type RuleTable struct {
	Version string
	Rules   map[Mood][]Rule
}

// DefaultRules returns the built-in classification table.
func DefaultRules() *RuleTable {
	return &RuleTable{
		Version: "v1",
		Rules: map[Mood][]Rule{
			Frustrated: {
				{Counter: "rageClicks", Threshold: 1, Weight: 40},
				{Counter: "deadClicks", Threshold: 1, Weight: 25},
				{Counter: "mouseShakeIntensity", Threshold: 2, Weight: 30},
				{Counter: "mouseJiggles", Threshold: 5, Weight: 15},
			},
			Hesitating: {
				{Counter: "cartRevisits", Threshold: 2, Weight: 50},
				{Counter: "hesitations", Threshold: 2, Weight: 30},
				{Counter: "itemAddRemoves", Threshold: 1, Weight: 25},
				{Counter: "checkoutAttempts", Threshold: 1, Weight: 20},
			},
			Confused: {
				{Counter: "scrollDirectionChanges", Threshold: 3, Weight: 40},
				{Counter: "deadClicks", Threshold: 2, Weight: 35},
				{Counter: "modalToggle", Threshold: 2, Weight: 25},
				{Counter: "tabSwitches", Threshold: 2, Weight: 15},
			},
			PriceSensitive: {
				{Counter: "priceAreaTime", Threshold: 10, Weight: 45},
				{Counter: "tabSwitches", Threshold: 1, Weight: 25},
				{Counter: "cartRevisits", Threshold: 1, Weight: 20},
				{Counter: "itemAddRemoves", Threshold: 2, Weight: 20},
			},
			AboutToLeave: {
				{Counter: "mouseExitAttempts", Threshold: 1, Weight: 60},
				{Counter: "idleTime", Threshold: 20, Weight: 30},
				{Counter: "tabSwitches", Threshold: 3, Weight: 25},
			},
			Engaged: {
				{Counter: "checkoutAttempts", Threshold: 0, Weight: 40},
				{Counter: "addToCartActions", Threshold: 0, Weight: 35},
				{Counter: "scrollCount", Threshold: 10, Weight: 15},
			},
		},
	}
}
