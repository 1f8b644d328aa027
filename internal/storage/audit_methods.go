package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/models"
)

// CreateAuditEntry appends an audit record. Callers treat failures as
// non-fatal; this method just reports them.
func (s *PostgresStore) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_log (
			id, created_at, tenant_id, user_id, action, entity_type,
			entity_id, ip, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.CreatedAt, entry.TenantID, entry.UserID,
		entry.Action, entry.EntityType, entry.EntityID, entry.IP,
		entry.Metadata,
	)

	return err
}
