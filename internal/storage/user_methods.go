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

const userColumns = `id, created_at, updated_at, tenant_id, email, full_name,
	password_hash, role, is_active`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.TenantID,
		&user.Email, &user.FullName, &user.PasswordHash,
		&user.Role, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)

	query := `
		INSERT INTO users (
			id, created_at, updated_at, tenant_id, email, full_name,
			password_hash, role, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.TenantID, user.Email,
		user.FullName, user.PasswordHash, user.Role, user.IsActive,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.getDB().QueryRowContext(ctx, query, id))
}

// GetUserByEmail gets a user by email within a tenant. A nil tenantID looks
// up system-level accounts (super_admin rows with no tenant).
func (s *PostgresStore) GetUserByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (*models.User, error) {
	if tenantID == nil {
		query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id IS NULL AND email = LOWER($1)`
		return scanUser(s.getDB().QueryRowContext(ctx, query, email))
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND email = LOWER($2)`
	return scanUser(s.getDB().QueryRowContext(ctx, query, *tenantID, email))
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	user.Email = strings.ToLower(user.Email)

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, full_name = $4,
			password_hash = $5, role = $6, is_active = $7
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.FullName,
		user.PasswordHash, user.Role, user.IsActive,
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

// DeleteUser deletes a user. Callers run this inside a transaction together
// with UnassignUserTasks so no task is left pointing at a dangling id.
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
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

// UnassignUserTasks nulls assigned_to on every task assigned to the user
func (s *PostgresStore) UnassignUserTasks(ctx context.Context, userID uuid.UUID) error {
	_, err := s.getDB().ExecContext(ctx,
		"UPDATE tasks SET assigned_to = NULL, updated_at = $2 WHERE assigned_to = $1",
		userID, time.Now(),
	)
	return err
}

// ListUsers lists users with tenant scoping, role filter and name/email search
func (s *PostgresStore) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, int64, error) {
	var where []string
	var args []interface{}

	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, fmt.Sprintf("u.tenant_id = $%d", len(args)))
	}
	if filter.TenantSubdomain != "" {
		args = append(args, strings.ToLower(filter.TenantSubdomain))
		where = append(where, fmt.Sprintf("u.tenant_id IN (SELECT id FROM tenants WHERE subdomain = $%d)", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		where = append(where, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		where = append(where, fmt.Sprintf("(u.full_name ILIKE '%%' || $%d || '%%' OR u.email ILIKE '%%' || $%d || '%%')", len(args), len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u"+clause, args...,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := filter.Normalize(20)
	query := `
		SELECT u.id, u.created_at, u.updated_at, u.tenant_id, u.email,
		       u.full_name, u.password_hash, u.role, u.is_active
		FROM users u` + clause +
		fmt.Sprintf(" ORDER BY u.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, count, rows.Err()
}

// CountUsers counts all users belonging to a tenant, active or not
func (s *PostgresStore) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE tenant_id = $1", tenantID,
	).Scan(&count)
	return count, err
}
