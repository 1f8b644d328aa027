package auth

import (
	"errors"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/models"
)

// ErrForbidden is returned when a valid principal lacks the rights for an
// operation. It is distinct from an authentication failure: the API boundary
// maps it to 403, never 401.
var ErrForbidden = errors.New("forbidden")

// Principal is the authenticated identity derived from a verified token.
// A nil TenantID marks a system-level super_admin.
type Principal struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     models.Role
}

// IsSuperAdmin reports whether the principal is a system-level administrator
func (p *Principal) IsSuperAdmin() bool {
	return p.Role == models.RoleSuperAdmin
}

// SameTenant reports whether the principal belongs to the given tenant
func (p *Principal) SameTenant(tenantID uuid.UUID) bool {
	return p.TenantID != nil && *p.TenantID == tenantID
}

// Operation is the kind of access being requested
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ResourceKind identifies the type of resource being accessed
type ResourceKind string

const (
	KindTenant  ResourceKind = "tenant"
	KindUser    ResourceKind = "user"
	KindProject ResourceKind = "project"
	KindTask    ResourceKind = "task"
)

// Resource describes the target of an operation: its kind, the tenant that
// owns it, and, where relevant, the user that owns it (a project's creator,
// or the subject of a user record).
type Resource struct {
	Kind     ResourceKind
	TenantID *uuid.UUID
	OwnerID  *uuid.UUID
}

// TenantResource describes a tenant itself as a resource
func TenantResource(tenantID uuid.UUID) Resource {
	return Resource{Kind: KindTenant, TenantID: &tenantID}
}

// UserResource describes a user record owned by a tenant
func UserResource(tenantID *uuid.UUID, userID uuid.UUID) Resource {
	return Resource{Kind: KindUser, TenantID: tenantID, OwnerID: &userID}
}

// ProjectResource describes a project and its creator
func ProjectResource(tenantID, createdBy uuid.UUID) Resource {
	return Resource{Kind: KindProject, TenantID: &tenantID, OwnerID: &createdBy}
}

// TaskResource describes a task owned by a tenant
func TaskResource(tenantID uuid.UUID) Resource {
	return Resource{Kind: KindTask, TenantID: &tenantID}
}

// ScopeResource describes a tenant-scoped collection, for list and create
// operations that target no single row.
func ScopeResource(kind ResourceKind, tenantID uuid.UUID) Resource {
	return Resource{Kind: kind, TenantID: &tenantID}
}

// Authorize decides whether the principal may perform op on the resource.
// It is a pure function: every rule lives here rather than in the handlers,
// and it never inspects the request or the database.
//
// Decision table:
//   - super_admin: allow everything.
//   - tenant_admin: allow within its own tenant; deleting its own user
//     record is denied.
//   - user: read anything in its own tenant; create projects and tasks
//     there; update tasks (status moves are everyday work) and resources it
//     owns; no deletes, no user management.
func Authorize(p *Principal, res Resource, op Operation) error {
	if p == nil {
		return ErrForbidden
	}

	if p.IsSuperAdmin() {
		return nil
	}

	// Everything below requires tenant ownership to match.
	if res.TenantID == nil || !p.SameTenant(*res.TenantID) {
		return ErrForbidden
	}

	switch p.Role {
	case models.RoleTenantAdmin:
		if res.Kind == KindUser && op == OpDelete && res.OwnerID != nil && *res.OwnerID == p.UserID {
			return ErrForbidden
		}
		return nil

	case models.RoleUser:
		switch op {
		case OpRead:
			return nil
		case OpCreate:
			if res.Kind == KindProject || res.Kind == KindTask {
				return nil
			}
		case OpUpdate:
			if res.OwnerID != nil && *res.OwnerID == p.UserID {
				return nil
			}
			if res.Kind == KindTask {
				return nil
			}
		}
		return ErrForbidden
	}

	return ErrForbidden
}
