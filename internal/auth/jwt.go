package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/config"
	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/pkg/crypto"
)

// JWTManager issues and validates session tokens
type JWTManager struct {
	config *config.JWTConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.JWTConfig) *JWTManager {
	return &JWTManager{
		config: cfg,
	}
}

// Claims represents JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID   `json:"user_id"`
	TenantID *uuid.UUID  `json:"tenant_id,omitempty"`
	Role     models.Role `json:"role"`
}

// Principal returns the principal embedded in the claims
func (c *Claims) Principal() *Principal {
	return &Principal{
		UserID:   c.UserID,
		TenantID: c.TenantID,
		Role:     c.Role,
	}
}

// GenerateToken generates a signed session token for the user. Tokens are
// stateless and expire naturally; there is no refresh or revocation.
func (m *JWTManager) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "taskhive-server",
		},
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken validates a token and returns its claims. Callers must treat
// every failure uniformly; the reason is never surfaced to the client.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// TokenTTL returns the configured token lifetime
func (m *JWTManager) TokenTTL() time.Duration {
	return m.config.TokenTTL
}

// VerifyPassword verifies a password against a hash
func (m *JWTManager) VerifyPassword(password, hash string) bool {
	return crypto.VerifyPassword(password, hash)
}
