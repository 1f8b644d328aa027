package models

import (
	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// Valid reports whether the status is a known value
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project represents a project owned by a tenant
type Project struct {
	TenantModel

	Name        string        `json:"name" db:"name"`
	Description string        `json:"description" db:"description"`
	Status      ProjectStatus `json:"status" db:"status"`

	CreatedBy uuid.UUID `json:"createdBy" db:"created_by"`
}
