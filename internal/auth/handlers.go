package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/exitguard/exitguard/internal/logging"
)

// Handler serves dashboard login.
type Handler struct {
	manager *JWTManager
	user    string
	pass    string
}

// NewHandler creates an auth handler with the configured dashboard credentials.
func NewHandler(manager *JWTManager, user, pass string) *Handler {
	return &Handler{manager: manager, user: user, pass: pass}
}

// RegisterRoutes registers auth endpoints on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username and password are required",
		})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.pass)) == 1
	if !userOK || !passOK {
		logging.L(c.Request.Context()).Warn("dashboard login rejected", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid credentials.",
		})
		return
	}

	token, expiresAt, err := h.manager.IssueToken(req.Username, "admin")
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to issue token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to issue token.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
		"username":   req.Username,
	})
}
