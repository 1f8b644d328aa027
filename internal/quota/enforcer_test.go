package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/taskhive/taskhive-server/internal/models"
)

type fakeCounter struct {
	users    int64
	projects int64
	err      error
}

func (f *fakeCounter) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return f.users, f.err
}

func (f *fakeCounter) CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return f.projects, f.err
}

func TestCheckUserQuota(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), MaxUsers: 5, MaxProjects: 3}

	e := NewEnforcer(&fakeCounter{users: 4})
	assert.NoError(t, e.CheckUserQuota(context.Background(), tenant))

	e = NewEnforcer(&fakeCounter{users: 5})
	err := e.CheckUserQuota(context.Background(), tenant)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "5 of 5 users")

	// Over the cap counts as exceeded too, e.g. after a plan downgrade
	e = NewEnforcer(&fakeCounter{users: 9})
	assert.ErrorIs(t, e.CheckUserQuota(context.Background(), tenant), ErrQuotaExceeded)
}

func TestCheckProjectQuota(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), MaxUsers: 5, MaxProjects: 3}

	e := NewEnforcer(&fakeCounter{projects: 2})
	assert.NoError(t, e.CheckProjectQuota(context.Background(), tenant))

	e = NewEnforcer(&fakeCounter{projects: 3})
	assert.ErrorIs(t, e.CheckProjectQuota(context.Background(), tenant), ErrQuotaExceeded)
}

func TestQuotaCounterErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	e := NewEnforcer(&fakeCounter{err: boom})

	tenant := &models.Tenant{ID: uuid.New(), MaxUsers: 5, MaxProjects: 3}

	assert.ErrorIs(t, e.CheckUserQuota(context.Background(), tenant), boom)
	assert.NotErrorIs(t, e.CheckUserQuota(context.Background(), tenant), ErrQuotaExceeded)
}
