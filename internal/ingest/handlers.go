package ingest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/exitguard/exitguard/internal/session"
)

// Handler provides the tracker-facing ingestion endpoint.
type Handler struct {
	service *Service
}

// NewHandler creates a new ingest handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up tracker routes. Callers attach API key auth.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/track", h.Track)
}

// TrackRequest is the tracker batch payload.
type TrackRequest struct {
	SessionID string             `json:"session_id" binding:"required"`
	Behaviors map[string]float64 `json:"behaviors"`
	Events    []session.RawEvent `json:"events"`
}

// Track handles POST /api/track
func (h *Handler) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "session_id is required",
		})
		return
	}

	result, err := h.service.Process(c.Request.Context(), Batch{
		SessionID: req.SessionID,
		Behaviors: req.Behaviors,
		Events:    req.Events,
	}, time.Now())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"field":   verr.Field,
				"message": verr.Message,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to process batch.",
		})
		return
	}

	resp := gin.H{
		"success":          true,
		"session_id":       result.Session.ID,
		"mood":             result.Session.Mood,
		"mood_confidence":  result.Session.MoodConfidence,
		"risk_score":       result.Session.RiskScore,
		"risk_zone":        result.Session.Zone,
		"root_cause":       result.Session.RootCause,
		"suggested_action": result.Session.SuggestedAction,
	}
	if result.Intervention != nil {
		resp["intervention"] = result.Intervention
	}

	c.JSON(http.StatusOK, resp)
}
