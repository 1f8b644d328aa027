package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/models"
)

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	tenant.Subdomain = strings.ToLower(tenant.Subdomain)

	query := `
		INSERT INTO tenants (
			id, created_at, updated_at, name, subdomain, status,
			subscription_plan, max_users, max_projects
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.Name,
		tenant.Subdomain, tenant.Status, tenant.Plan,
		tenant.MaxUsers, tenant.MaxProjects,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.getTenant(ctx, "id = $1", id)
}

// GetTenantBySubdomain gets a tenant by subdomain, case-insensitive
func (s *PostgresStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	return s.getTenant(ctx, "subdomain = LOWER($1)", subdomain)
}

func (s *PostgresStore) getTenant(ctx context.Context, where string, arg interface{}) (*models.Tenant, error) {
	query := `
		SELECT id, created_at, updated_at, name, subdomain, status,
		       subscription_plan, max_users, max_projects
		FROM tenants
		WHERE ` + where

	tenant := &models.Tenant{}
	err := s.getDB().QueryRowContext(ctx, query, arg).Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name,
		&tenant.Subdomain, &tenant.Status, &tenant.Plan,
		&tenant.MaxUsers, &tenant.MaxProjects,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return tenant, err
}

// UpdateTenant updates a tenant
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()
	tenant.Subdomain = strings.ToLower(tenant.Subdomain)

	query := `
		UPDATE tenants SET
			updated_at = $2, name = $3, subdomain = $4, status = $5,
			subscription_plan = $6, max_users = $7, max_projects = $8
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.Name, tenant.Subdomain,
		tenant.Status, tenant.Plan, tenant.MaxUsers, tenant.MaxProjects,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTenant deletes a tenant
func (s *PostgresStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTenants lists tenants with optional status/plan filters, each row
// annotated with live user/project/task counts.
func (s *PostgresStore) ListTenants(ctx context.Context, filter TenantFilter) ([]*models.TenantWithCounts, int64, error) {
	var where []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Plan != nil {
		args = append(args, *filter.Plan)
		where = append(where, fmt.Sprintf("t.subscription_plan = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tenants t"+clause, args...,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := filter.Normalize(20)
	query := `
		SELECT t.id, t.created_at, t.updated_at, t.name, t.subdomain, t.status,
		       t.subscription_plan, t.max_users, t.max_projects,
		       (SELECT COUNT(*) FROM users u WHERE u.tenant_id = t.id),
		       (SELECT COUNT(*) FROM projects p WHERE p.tenant_id = t.id),
		       (SELECT COUNT(*) FROM tasks k WHERE k.tenant_id = t.id)
		FROM tenants t` + clause +
		fmt.Sprintf(" ORDER BY t.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*models.TenantWithCounts
	for rows.Next() {
		t := &models.TenantWithCounts{}
		err := rows.Scan(
			&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Name, &t.Subdomain, &t.Status,
			&t.Plan, &t.MaxUsers, &t.MaxProjects,
			&t.Counts.Users, &t.Counts.Projects, &t.Counts.Tasks,
		)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}

	return tenants, count, rows.Err()
}

// GetTenantCounts returns live user/project/task counts for a tenant
func (s *PostgresStore) GetTenantCounts(ctx context.Context, id uuid.UUID) (models.TenantCounts, error) {
	var counts models.TenantCounts
	err := s.getDB().QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM projects WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM tasks WHERE tenant_id = $1)`,
		id,
	).Scan(&counts.Users, &counts.Projects, &counts.Tasks)

	return counts, err
}
