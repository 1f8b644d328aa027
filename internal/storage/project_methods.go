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

// CreateProject creates a new project
func (s *PostgresStore) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (
			id, created_at, updated_at, tenant_id, name, description,
			status, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		project.ID, project.CreatedAt, project.UpdatedAt, project.TenantID,
		project.Name, project.Description, project.Status, project.CreatedBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetProject gets a project by ID
func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
		SELECT id, created_at, updated_at, tenant_id, name, description,
		       status, created_by
		FROM projects
		WHERE id = $1`

	project := &models.Project{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.TenantID,
		&project.Name, &project.Description, &project.Status, &project.CreatedBy,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return project, err
}

// UpdateProject updates a project
func (s *PostgresStore) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()

	query := `
		UPDATE projects SET
			updated_at = $2, name = $3, description = $4, status = $5
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		project.ID, project.UpdatedAt, project.Name,
		project.Description, project.Status,
	)

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

// DeleteProject deletes a project and, via cascade, its tasks
func (s *PostgresStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
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

// ListProjects lists projects with tenant scoping, status filter and name search
func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.Project, int64, error) {
	var where []string
	var args []interface{}

	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, fmt.Sprintf("p.tenant_id = $%d", len(args)))
	}
	if filter.TenantSubdomain != "" {
		args = append(args, strings.ToLower(filter.TenantSubdomain))
		where = append(where, fmt.Sprintf("p.tenant_id IN (SELECT id FROM tenants WHERE subdomain = $%d)", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		where = append(where, fmt.Sprintf("p.name ILIKE '%%' || $%d || '%%'", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects p"+clause, args...,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := filter.Normalize(20)
	query := `
		SELECT p.id, p.created_at, p.updated_at, p.tenant_id, p.name,
		       p.description, p.status, p.created_by
		FROM projects p` + clause +
		fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		err := rows.Scan(
			&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.TenantID,
			&project.Name, &project.Description, &project.Status, &project.CreatedBy,
		)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}

	return projects, count, rows.Err()
}

// CountProjects counts all projects belonging to a tenant
func (s *PostgresStore) CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE tenant_id = $1", tenantID,
	).Scan(&count)
	return count, err
}
