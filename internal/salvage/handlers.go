package salvage

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/exitguard/exitguard/internal/session"
)

// Handler provides HTTP endpoints for conversion and salvage reporting.
type Handler struct {
	service *Service
}

// NewHandler creates a new salvage handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterTrackerRoutes sets up tracker-facing routes. Callers attach API
// key auth.
func (h *Handler) RegisterTrackerRoutes(r *gin.RouterGroup) {
	r.POST("/convert", h.Convert)
	r.POST("/intervention", h.InterventionShown)
}

// RegisterDashboardRoutes sets up dashboard routes. Callers attach JWT auth.
func (h *Handler) RegisterDashboardRoutes(r *gin.RouterGroup) {
	r.GET("/salvage-stats", h.SalvageStats)
}

type convertRequest struct {
	SessionID  string  `json:"session_id" binding:"required"`
	OrderValue float64 `json:"order_value"`
}

// Convert handles POST /api/convert
func (h *Handler) Convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "session_id is required",
		})
		return
	}
	if req.OrderValue < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "order_value must not be negative",
		})
		return
	}

	result, err := h.service.Convert(c.Request.Context(), req.SessionID, req.OrderValue, time.Now())
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
			"message": "Failed to record conversion.",
		})
		return
	}

	status := "converted"
	if result.Repeat {
		status = "already_converted"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"session_id":        result.Session.ID,
		"conversion_status": status,
		"salvaged":          result.Salvaged,
		"order_value":       result.Value,
	})
}

type interventionShownRequest struct {
	SessionID      string `json:"session_id" binding:"required"`
	InterventionID string `json:"intervention_id"`
}

// InterventionShown handles POST /api/intervention
func (h *Handler) InterventionShown(c *gin.Context) {
	var req interventionShownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "session_id is required",
		})
		return
	}

	s, err := h.service.MarkShown(c.Request.Context(), req.SessionID, req.InterventionID, time.Now())
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
			"message": "Failed to record intervention.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"session_id":    s.ID,
		"interventions": len(s.Interventions),
	})
}

// SalvageStats handles GET /api/salvage-stats
func (h *Handler) SalvageStats(c *gin.Context) {
	stats, ids := h.service.WindowStats(time.Now())
	c.JSON(http.StatusOK, gin.H{
		"stats":                stats,
		"salvaged_session_ids": ids,
	})
}
