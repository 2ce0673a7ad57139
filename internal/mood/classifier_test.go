package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exitguard/exitguard/internal/session"
)

func TestClassify_EmptyCountersAreNeutral(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(&session.BehaviorCounters{})

	assert.Equal(t, Neutral, res.Mood)
	assert.Equal(t, 0, res.Confidence)
}

func TestClassify_ThresholdIsStrict(t *testing.T) {
	c := NewClassifier(nil)

	// Exactly at the rage-click threshold: the rule requires strictly
	// greater, so nothing scores and the session stays neutral.
	res := c.Classify(&session.BehaviorCounters{RageClicks: 1})
	assert.Equal(t, Neutral, res.Mood)

	res = c.Classify(&session.BehaviorCounters{RageClicks: 2})
	assert.Equal(t, Frustrated, res.Mood)
	assert.Equal(t, 40, res.Confidence)
}

func TestClassify_Hesitating(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(&session.BehaviorCounters{
		CartRevisits: 3,
		Hesitations:  3,
	})

	assert.Equal(t, Hesitating, res.Mood)
	assert.Equal(t, 80, res.Confidence)
	assert.Equal(t, 80, res.Scores[Hesitating])
}

func TestClassify_Engaged(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(&session.BehaviorCounters{
		CheckoutAttempts: 1,
		AddToCartActions: 2,
		ScrollCount:      15,
	})

	assert.Equal(t, Engaged, res.Mood)
	assert.Equal(t, 90, res.Confidence)
	assert.False(t, res.Mood.Negative())
}

func TestClassify_TieBreaksByPriority(t *testing.T) {
	c := NewClassifier(nil)

	// AboutToLeave (idle + tab switching) and Hesitating (hesitations +
	// add/removes) both land on 55. The priority order puts about_to_leave
	// first, so it must win every time.
	counters := &session.BehaviorCounters{
		IdleTime:       25,
		TabSwitches:    4,
		Hesitations:    3,
		ItemAddRemoves: 2,
	}

	res := c.Classify(counters)
	require.Equal(t, res.Scores[AboutToLeave], res.Scores[Hesitating])
	assert.Equal(t, AboutToLeave, res.Mood)
	assert.Equal(t, 55, res.Confidence)
}

func TestClassify_ConfidenceCappedAt100(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(&session.BehaviorCounters{
		RageClicks:          5,
		DeadClicks:          3,
		MouseShakeIntensity: 5,
		MouseJiggles:        10,
	})

	assert.Equal(t, Frustrated, res.Mood)
	assert.Equal(t, 100, res.Confidence)
	assert.Equal(t, 110, res.Scores[Frustrated])
}

func TestClassify_ScoresBelowFloorAreNeutral(t *testing.T) {
	c := NewClassifier(nil)

	// Two cart revisits score price_sensitive exactly at the floor, which
	// is not enough to clear it.
	res := c.Classify(&session.BehaviorCounters{CartRevisits: 2})

	assert.Equal(t, ConfidenceFloor, res.Scores[PriceSensitive])
	assert.Equal(t, Neutral, res.Mood)
	assert.Equal(t, 0, res.Confidence)
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(nil)
	counters := &session.BehaviorCounters{
		RageClicks:  3,
		DeadClicks:  2,
		TabSwitches: 2,
		IdleTime:    12,
	}

	first := c.Classify(counters)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(counters))
	}
}

func TestNegative(t *testing.T) {
	assert.True(t, Frustrated.Negative())
	assert.True(t, AboutToLeave.Negative())
	assert.False(t, Engaged.Negative())
	assert.False(t, PriceSensitive.Negative())
	assert.False(t, Neutral.Negative())
}
