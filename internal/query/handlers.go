// Package query serves read-only views of live sessions to the dashboard
// and the tracker.
package query

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/exitguard/exitguard/internal/risk"
	"github.com/exitguard/exitguard/internal/session"
)

// Handler provides session read endpoints.
type Handler struct {
	store session.Store
}

// NewHandler creates a new query handler.
func NewHandler(store session.Store) *Handler {
	return &Handler{store: store}
}

// RegisterDashboardRoutes sets up dashboard routes. Callers attach JWT auth.
func (h *Handler) RegisterDashboardRoutes(r *gin.RouterGroup) {
	r.GET("/sessions", h.ListSessions)
}

// RegisterTrackerRoutes sets up tracker-facing routes. Callers attach API
// key auth and session id validation.
func (h *Handler) RegisterTrackerRoutes(r *gin.RouterGroup) {
	r.GET("/session/:id", h.GetSession)
}

// sessionSummary is the dashboard list projection; the full event tail and
// mood trajectory stay behind the detail endpoint.
type sessionSummary struct {
	ID              string `json:"session_id"`
	StartedAt       int64  `json:"started_at"`
	LastSeen        int64  `json:"last_seen"`
	Mood            string `json:"mood"`
	MoodConfidence  int    `json:"mood_confidence"`
	RiskScore       int    `json:"risk_score"`
	Zone            string `json:"risk_zone"`
	RootCause       string `json:"root_cause"`
	SuggestedAction string `json:"suggested_action"`
	Interventions   int    `json:"interventions"`
	Outcome         string `json:"outcome"`
}

// ListSessions handles GET /api/sessions
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.store.ListActive(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list sessions.",
		})
		return
	}

	// Highest risk first; ties resolve by recency so the list is stable
	// enough to watch
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].RiskScore != sessions[j].RiskScore {
			return sessions[i].RiskScore > sessions[j].RiskScore
		}
		return sessions[i].LastSeen.After(sessions[j].LastSeen)
	})

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	highRisk := 0
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		if s.Zone == string(risk.ZoneRed) {
			highRisk++
		}
		summaries = append(summaries, sessionSummary{
			ID:              s.ID,
			StartedAt:       s.StartedAt.Unix(),
			LastSeen:        s.LastSeen.Unix(),
			Mood:            s.Mood,
			MoodConfidence:  s.MoodConfidence,
			RiskScore:       s.RiskScore,
			Zone:            s.Zone,
			RootCause:       s.RootCause,
			SuggestedAction: s.SuggestedAction,
			Interventions:   len(s.Interventions),
			Outcome:         string(s.Outcome),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":        summaries,
		"count":           len(summaries),
		"high_risk_count": highRisk,
	})
}

// GetSession handles GET /api/session/:id
func (h *Handler) GetSession(c *gin.Context) {
	id := c.Param("id")

	s, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Unknown session.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load session.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": s})
}
