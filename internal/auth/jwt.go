// Package auth provides authentication for the ExitGuard API.
//
// Two schemes coexist: storefront tracker endpoints authenticate with a
// shared site key in the X-API-Key header, and dashboard endpoints
// authenticate with short-lived HS256 JWTs issued by the login endpoint.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the lifetime of a dashboard token.
const TokenTTL = 24 * time.Hour

// Claims extends jwt.RegisteredClaims with dashboard identity fields.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// JWTManager handles token creation and validation using HS256.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTManager creates a JWTManager with the given signing secret.
// A zero expiration falls back to TokenTTL; negative values are kept
// as-is so callers can mint already-expired tokens.
func NewJWTManager(secret string, expiration time.Duration) *JWTManager {
	if expiration == 0 {
		expiration = TokenTTL
	}
	return &JWTManager{secret: []byte(secret), expiration: expiration}
}

// IssueToken creates a signed JWT for a dashboard user.
func (m *JWTManager) IssueToken(username, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.expiration)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    "exitguard",
			Audience:  jwt.ClaimStrings{"exitguard"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Username: username,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithAudience("exitguard"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: validate token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if claims.Issuer != "exitguard" {
		return nil, fmt.Errorf("auth: invalid issuer: %s", claims.Issuer)
	}

	return claims, nil
}
