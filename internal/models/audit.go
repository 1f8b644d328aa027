package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only record of a mutating action. Writes are
// best-effort: a failed audit write never fails the triggering operation.
type AuditEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`
	UserID   *uuid.UUID `json:"userId,omitempty" db:"user_id"`

	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entityType" db:"entity_type"`
	EntityID   uuid.UUID `json:"entityId" db:"entity_id"`

	IP string `json:"ip" db:"ip"`

	Metadata Variables `json:"metadata,omitempty" db:"metadata"`
}
