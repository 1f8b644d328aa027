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

// taskOrder ranks high before medium before low, then earliest due date with
// undated tasks last, then newest first as a stable tiebreaker.
const taskOrder = ` ORDER BY
	CASE t.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
	t.due_date ASC NULLS LAST,
	t.created_at DESC`

// CreateTask creates a new task
func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (
			id, created_at, updated_at, project_id, tenant_id, title,
			description, status, priority, assigned_to, due_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		task.ID, task.CreatedAt, task.UpdatedAt, task.ProjectID, task.TenantID,
		task.Title, task.Description, task.Status, task.Priority,
		task.AssignedTo, task.DueDate,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetTask gets a task by ID
func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `
		SELECT id, created_at, updated_at, project_id, tenant_id, title,
		       description, status, priority, assigned_to, due_date
		FROM tasks
		WHERE id = $1`

	task := &models.Task{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&task.ID, &task.CreatedAt, &task.UpdatedAt, &task.ProjectID,
		&task.TenantID, &task.Title, &task.Description, &task.Status,
		&task.Priority, &task.AssignedTo, &task.DueDate,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return task, err
}

// UpdateTask updates a task. The caller resolves set-if-provided semantics;
// the full row is written here.
func (s *PostgresStore) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()

	query := `
		UPDATE tasks SET
			updated_at = $2, title = $3, description = $4, status = $5,
			priority = $6, assigned_to = $7, due_date = $8
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		task.ID, task.UpdatedAt, task.Title, task.Description,
		task.Status, task.Priority, task.AssignedTo, task.DueDate,
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

// DeleteTask deletes a task
func (s *PostgresStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
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

// ListTasks lists tasks with tenant/project scoping, equality filters and
// title search, ordered by priority rank then due date.
func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, int64, error) {
	var where []string
	var args []interface{}

	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, fmt.Sprintf("t.tenant_id = $%d", len(args)))
	}
	if filter.TenantSubdomain != "" {
		args = append(args, strings.ToLower(filter.TenantSubdomain))
		where = append(where, fmt.Sprintf("t.tenant_id IN (SELECT id FROM tenants WHERE subdomain = $%d)", len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		where = append(where, fmt.Sprintf("t.project_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		where = append(where, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where = append(where, fmt.Sprintf("t.assigned_to = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		where = append(where, fmt.Sprintf("t.title ILIKE '%%' || $%d || '%%'", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks t"+clause, args...,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := filter.Normalize(50)
	query := `
		SELECT t.id, t.created_at, t.updated_at, t.project_id, t.tenant_id,
		       t.title, t.description, t.status, t.priority, t.assigned_to,
		       t.due_date
		FROM tasks t` + clause + taskOrder +
		fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		err := rows.Scan(
			&task.ID, &task.CreatedAt, &task.UpdatedAt, &task.ProjectID,
			&task.TenantID, &task.Title, &task.Description, &task.Status,
			&task.Priority, &task.AssignedTo, &task.DueDate,
		)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}

	return tasks, count, rows.Err()
}
