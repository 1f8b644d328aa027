package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-server/internal/config"
	"github.com/taskhive/taskhive-server/internal/models"
)

func newTestManager(ttl time.Duration) *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		Secret:   "test-secret",
		TokenTTL: ttl,
	})
}

func TestJWTRoundTrip(t *testing.T) {
	m := newTestManager(time.Hour)

	tenantID := uuid.New()
	user := &models.User{
		ID:       uuid.New(),
		TenantID: &tenantID,
		Email:    "alice@example.com",
		Role:     models.RoleTenantAdmin,
	}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID, claims.UserID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, tenantID, *claims.TenantID)
	assert.Equal(t, models.RoleTenantAdmin, claims.Role)

	p := claims.Principal()
	assert.Equal(t, user.ID, p.UserID)
	assert.False(t, p.IsSuperAdmin())
}

func TestJWTSuperAdminHasNoTenant(t *testing.T) {
	m := newTestManager(time.Hour)

	user := &models.User{ID: uuid.New(), Role: models.RoleSuperAdmin}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	assert.Nil(t, claims.TenantID)
	assert.True(t, claims.Principal().IsSuperAdmin())
}

func TestJWTExpired(t *testing.T) {
	m := newTestManager(-time.Minute)

	token, err := m.GenerateToken(&models.User{ID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTWrongKey(t *testing.T) {
	m := newTestManager(time.Hour)

	token, err := m.GenerateToken(&models.User{ID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)

	other := NewJWTManager(&config.JWTConfig{Secret: "another-secret", TokenTTL: time.Hour})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTMalformed(t *testing.T) {
	m := newTestManager(time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := m.ValidateToken(tok)
		assert.Error(t, err, "token %q should not validate", tok)
	}
}
