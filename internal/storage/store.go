package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Pagination holds page/limit list parameters
type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps the pagination to sane bounds and returns limit and
// offset. Limit is clamped to [1,100]; page to [1,inf).
func (p Pagination) Normalize(defaultLimit int) (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}

	page := p.Page
	if page < 1 {
		page = 1
	}

	return limit, (page - 1) * limit
}

// TenantFilter filters tenant listings
type TenantFilter struct {
	Status *models.TenantStatus
	Plan   *models.SubscriptionPlan
	Pagination
}

// UserFilter filters user listings
type UserFilter struct {
	TenantID        *uuid.UUID
	TenantSubdomain string
	Role            *models.Role
	Search          string
	Pagination
}

// ProjectFilter filters project listings
type ProjectFilter struct {
	TenantID        *uuid.UUID
	TenantSubdomain string
	Status          *models.ProjectStatus
	Search          string
	Pagination
}

// TaskFilter filters task listings
type TaskFilter struct {
	TenantID        *uuid.UUID
	TenantSubdomain string
	ProjectID       *uuid.UUID
	Status          *models.TaskStatus
	Priority        *models.TaskPriority
	AssignedTo      *uuid.UUID
	Search          string
	Pagination
}

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	ListTenants(ctx context.Context, filter TenantFilter) ([]*models.TenantWithCounts, int64, error)
	GetTenantCounts(ctx context.Context, id uuid.UUID) (models.TenantCounts, error)

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	UnassignUserTasks(ctx context.Context, userID uuid.UUID) error
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, int64, error)
	CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Project methods
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.Project, int64, error)
	CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Task methods
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, int64, error)

	// Audit log, append-only
	CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Close the store
	Close() error
}
