package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusTrial     TenantStatus = "trial"
)

// Valid reports whether the status is a known value
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusTrial:
		return true
	}
	return false
}

// SubscriptionPlan represents a tenant billing plan
type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

// Valid reports whether the plan is a known value
func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Tenant represents a tenant/organization
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name      string `json:"name" db:"name"`
	Subdomain string `json:"subdomain" db:"subdomain"`

	Status TenantStatus     `json:"status" db:"status"`
	Plan   SubscriptionPlan `json:"subscriptionPlan" db:"subscription_plan"`

	// Limits, derived from the plan unless overridden
	MaxUsers    int `json:"maxUsers" db:"max_users"`
	MaxProjects int `json:"maxProjects" db:"max_projects"`
}

// TenantCounts holds live resource counts for a tenant
type TenantCounts struct {
	Users    int64 `json:"users"`
	Projects int64 `json:"projects"`
	Tasks    int64 `json:"tasks"`
}

// TenantWithCounts is a tenant annotated with live resource counts
type TenantWithCounts struct {
	Tenant
	Counts TenantCounts `json:"counts"`
}
