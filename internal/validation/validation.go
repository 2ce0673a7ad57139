// Package validation provides input validation for the ExitGuard API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/exitguard/exitguard/internal/session"
)

// MaxRequestSize is the maximum request body size (256KB). Tracker batches
// are small; anything bigger is garbage or abuse.
const MaxRequestSize = 256 << 10

// MaxSessionIDLength bounds client-generated session ids.
const MaxSessionIDLength = 100

// sessionIDRegex allows alphanumerics, hyphens, and underscores only. The id
// is opaque but it is also untrusted input that ends up in logs and JSON.
var sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidSessionID checks the format of a client-generated session id.
func IsValidSessionID(id string) bool {
	if id == "" || len(id) > MaxSessionIDLength {
		return false
	}
	return sessionIDRegex.MatchString(id)
}

// CheckBehaviors verifies a raw behavior map against the counter allow-list.
// Returns the offending key and a message on failure.
func CheckBehaviors(behaviors map[string]float64) (string, string) {
	for name, v := range behaviors {
		if !session.IsCounterName(name) {
			return name, "unknown behavior type"
		}
		if v < 0 {
			return name, "behavior values must be non-negative"
		}
	}
	return "", ""
}

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SessionIDParamMiddleware validates the :id URL parameter on routes that
// use it, rejecting malformed ids before any handler runs.
func SessionIDParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id != "" && !IsValidSessionID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_session_id",
				"message": "session id must be 1-100 chars of [a-zA-Z0-9_-]",
			})
			return
		}
		c.Next()
	}
}

// SanitizeString trims, bounds, and strips null bytes from a string field.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}
