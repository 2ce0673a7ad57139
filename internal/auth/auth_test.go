package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTManager_IssueAndValidate(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	token, exp, err := m.IssueToken("admin", "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "exitguard", claims.Issuer)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)

	token, _, err := m.IssueToken("admin", "admin")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	// A negative expiration mints a token that expired a minute ago.
	m := NewJWTManager(testSecret, -time.Minute)

	token, _, err := m.IssueToken("admin", "admin")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestNewJWTManager_ZeroExpirationGetsDefault(t *testing.T) {
	m := NewJWTManager(testSecret, 0)

	_, exp, err := m.IssueToken("admin", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), exp, 5*time.Second)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	_, err := m.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestRequireAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequireAPIKey("site_key_123"))
	router.POST("/track", func(c *gin.Context) {
		c.String(200, "ok")
	})

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"valid key", "site_key_123", http.StatusOK},
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "wrong_key", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/track", nil)
			if tc.key != "" {
				req.Header.Set("X-API-Key", tc.key)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestRequireJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewJWTManager(testSecret, time.Hour)
	token, _, err := m.IssueToken("admin", "admin")
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequireJWT(m))
	router.GET("/sessions", func(c *gin.Context) {
		c.JSON(200, gin.H{"user": GetUsername(c)})
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin")
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewJWTManager(testSecret, time.Hour)
	h := NewHandler(m, "admin", "s3cret-passw0rd")

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))

	doLogin := func(body any) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("valid credentials", func(t *testing.T) {
		w := doLogin(gin.H{"username": "admin", "password": "s3cret-passw0rd"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["token"])

		claims, err := m.ValidateToken(resp["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doLogin(gin.H{"username": "admin", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doLogin(gin.H{"username": "admin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
