package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user role
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// Valid reports whether the role is a known value
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// User represents a system user. A nil TenantID marks a system-level
// super_admin account.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`

	Email    string `json:"email" db:"email"`
	FullName string `json:"fullName" db:"full_name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role     Role `json:"role" db:"role"`
	IsActive bool `json:"isActive" db:"is_active"`
}
