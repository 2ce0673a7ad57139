// Package risk turns a session's counters, mood, and age into a 0-100
// abandonment score and a green/amber/red zone. Scoring is a pure function
// over an explicit weight table so the same inputs always produce the same
// score.
package risk

// Zone is the banding of a risk score.
type Zone string

const (
	ZoneGreen Zone = "green"
	ZoneAmber Zone = "amber"
	ZoneRed   Zone = "red"
)

// Band boundaries, inclusive on the lower bound of each band.
const (
	AmberLowerBound = 31
	RedLowerBound   = 61
)

// ZoneFor maps a score to its zone: 0-30 green, 31-60 amber, 61-100 red.
func ZoneFor(score int) Zone {
	switch {
	case score >= RedLowerBound:
		return ZoneRed
	case score >= AmberLowerBound:
		return ZoneAmber
	default:
		return ZoneGreen
	}
}

// WeightTable is the versioned scoring configuration. Base contributions come
// from negative-signal counters; mood adds a bonus scaled by classifier
// confidence, and an engaged mood subtracts one.
type WeightTable struct {
	Version string

	// Per-unit weights for negative-signal counters.
	RageClick  int
	DeadClick  int
	Hesitation int
	MouseShake int
	Jiggle     int
	JiggleCap  int // cap on the total jiggle contribution

	// Idle seconds past IdleFloor contribute IdlePerSecond each, up to IdleCap.
	IdleFloor     float64
	IdlePerSecond float64
	IdleCap       int

	// Sessions older than StallAge with items in the cart but no checkout
	// attempt pick up StallBonus.
	StallAgeSeconds float64
	StallBonus      int

	// MoodBonus is scaled by confidence/100 for negative moods.
	MoodBonus map[string]int
	// EngagedRelief is subtracted, scaled by confidence/100.
	EngagedRelief int
}

// DefaultWeights returns the built-in scoring table.
func DefaultWeights() *WeightTable {
	return &WeightTable{
		Version: "v1",

		RageClick:  12,
		DeadClick:  6,
		Hesitation: 4,
		MouseShake: 5,
		Jiggle:     1,
		JiggleCap:  8,

		IdleFloor:     10,
		IdlePerSecond: 1,
		IdleCap:       15,

		StallAgeSeconds: 180,
		StallBonus:      8,

		MoodBonus: map[string]int{
			"frustrated":     25,
			"about_to_leave": 30,
			"confused":       20,
			"hesitating":     15,
		},
		EngagedRelief: 20,
	}
}
