// Package intervene decides when a session gets a save attempt. Each session
// runs a small state machine (idle → watching → intervened → cooled down →
// watching) so the system fires at most one intervention per cooldown window
// no matter how many red-zone batches arrive.
package intervene

import (
	"time"

	"github.com/exitguard/exitguard/internal/mood"
	"github.com/exitguard/exitguard/internal/risk"
)

// Intervention types the storefront knows how to render.
const (
	TypeDiscountPopup = "discount_popup"
	TypeChatBubble    = "chat_bubble"
	TypeHelpOverlay   = "help_overlay"
)

// Config holds the decider's tunables.
type Config struct {
	// TriggerThreshold is the score at which an intervention fires.
	TriggerThreshold int
	// Cooldown suppresses repeat interventions after one fires.
	Cooldown time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		TriggerThreshold: 65,
		Cooldown:         2 * time.Minute,
	}
}

// policy maps the current mood to the intervention most likely to save the
// session. Moods with no entry fall back to a chat bubble.
var policy = map[mood.Mood]string{
	mood.Hesitating:     TypeDiscountPopup,
	mood.PriceSensitive: TypeDiscountPopup,
	mood.Confused:       TypeHelpOverlay,
	mood.AboutToLeave:   TypeChatBubble,
	mood.Frustrated:     TypeChatBubble,
}

// TypeFor selects the intervention type for a mood.
func TypeFor(m mood.Mood) string {
	if t, ok := policy[m]; ok {
		return t
	}
	return TypeChatBubble
}

// SuggestedAction describes, for the tracker and dashboard, what the current
// score calls for.
func SuggestedAction(score int) string {
	switch {
	case score < risk.AmberLowerBound:
		return "monitor session - no intervention needed"
	case score < risk.RedLowerBound:
		return "prepare proactive outreach - mild frustration showing"
	default:
		return "intervene now - trigger save attempt"
	}
}
