package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/models"
)

// ErrQuotaExceeded is returned when a tenant is at its configured cap
var ErrQuotaExceeded = errors.New("quota exceeded")

// Counter provides the live per-tenant counts the enforcer compares against.
// Passing a transaction-bound store closes the window between the count and
// the subsequent insert.
type Counter interface {
	CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// Enforcer checks tenant resource counts against plan-derived limits
type Enforcer struct {
	counter Counter
}

// NewEnforcer creates an enforcer over the given counter
func NewEnforcer(counter Counter) *Enforcer {
	return &Enforcer{counter: counter}
}

// CheckUserQuota fails with ErrQuotaExceeded when the tenant already holds
// max_users users, active or not.
func (e *Enforcer) CheckUserQuota(ctx context.Context, tenant *models.Tenant) error {
	count, err := e.counter.CountUsers(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if count >= int64(tenant.MaxUsers) {
		return fmt.Errorf("%w: tenant has %d of %d users", ErrQuotaExceeded, count, tenant.MaxUsers)
	}

	return nil
}

// CheckProjectQuota fails with ErrQuotaExceeded when the tenant already
// holds max_projects projects.
func (e *Enforcer) CheckProjectQuota(ctx context.Context, tenant *models.Tenant) error {
	count, err := e.counter.CountProjects(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("count projects: %w", err)
	}

	if count >= int64(tenant.MaxProjects) {
		return fmt.Errorf("%w: tenant has %d of %d projects", ErrQuotaExceeded, count, tenant.MaxProjects)
	}

	return nil
}
