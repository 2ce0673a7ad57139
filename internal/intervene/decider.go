package intervene

import (
	"time"

	"github.com/exitguard/exitguard/internal/idgen"
	"github.com/exitguard/exitguard/internal/mood"
	"github.com/exitguard/exitguard/internal/risk"
	"github.com/exitguard/exitguard/internal/session"
)

// Decider applies the intervention state machine to a session. It mutates the
// session it is handed, so callers must invoke it inside the store's
// per-session update scope.
type Decider struct {
	cfg Config
}

// NewDecider creates a decider with the given config.
func NewDecider(cfg Config) *Decider {
	if cfg.TriggerThreshold <= 0 {
		cfg.TriggerThreshold = DefaultConfig().TriggerThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &Decider{cfg: cfg}
}

// Decide advances the session's state machine for a freshly computed score
// and returns the intervention fired this step, if any.
//
// Transitions:
//   - idle → watching on the first scored batch
//   - watching → intervened when the score reaches the trigger threshold and
//     no cooldown is active; the intervention record is appended here
//   - intervened → cooled down once the cooldown window is running
//   - cooled down → watching when the score drops below the amber band or the
//     cooldown lapses
func (d *Decider) Decide(s *session.Session, m mood.Result, score int, zone risk.Zone, now time.Time) *session.Intervention {
	if s.DeciderState == "" || s.DeciderState == session.StateIdle {
		s.DeciderState = session.StateWatching
	}

	cooling := now.Before(s.CooldownUntil)

	switch s.DeciderState {
	case session.StateIntervened:
		if cooling {
			s.DeciderState = session.StateCooledDown
		} else {
			s.DeciderState = session.StateWatching
		}
	case session.StateCooledDown:
		if !cooling || score < risk.AmberLowerBound {
			s.DeciderState = session.StateWatching
		}
	}

	if s.DeciderState != session.StateWatching {
		return nil
	}
	if score < d.cfg.TriggerThreshold || cooling {
		return nil
	}

	iv := session.Intervention{
		ID:          idgen.WithPrefix("ivn_"),
		Type:        TypeFor(m.Mood),
		TriggeredAt: now,
		RiskScore:   score,
		Zone:        string(zone),
	}
	s.Interventions = append(s.Interventions, iv)
	s.DeciderState = session.StateIntervened
	s.CooldownUntil = now.Add(d.cfg.Cooldown)
	return &iv
}
