package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyClaims is the key for storing validated JWT claims in gin context
	ContextKeyClaims = "authClaims"
	// ContextKeyUsername is the key for storing the authenticated dashboard user
	ContextKeyUsername = "authUsername"
)

// RequireAPIKey rejects tracker requests that do not carry the site key.
// A missing header is 401; a wrong key is 403.
func RequireAPIKey(siteKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "API key required. Include 'X-API-Key' header.",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(siteKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Invalid API key.",
			})
			return
		}

		c.Next()
	}
}

// RequireJWT rejects dashboard requests without a valid bearer token
// Sets claims and username in context on success
func RequireJWT(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required. Include 'Authorization: Bearer <token>' header.",
			})
			return
		}

		claims, err := m.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token.",
			})
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// GetClaims returns the validated claims from context (if authenticated)
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	return v.(*Claims), true
}

// GetUsername returns the authenticated dashboard user's name
func GetUsername(c *gin.Context) string {
	v, exists := c.Get(ContextKeyUsername)
	if !exists {
		return ""
	}
	return v.(string)
}
