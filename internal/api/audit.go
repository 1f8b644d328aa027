package api

import (
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/models"
)

// audit appends a best-effort audit entry for a committed mutation. Failures
// are logged and swallowed: a broken audit trail never fails the business
// operation. The write completes before the handler returns; nothing runs
// detached.
func (s *RESTServer) audit(r *http.Request, p *auth.Principal, action, entityType string, entityID uuid.UUID, tenantID *uuid.UUID) {
	entry := &models.AuditEntry{
		TenantID:   tenantID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IP:         clientIP(r),
	}
	if p != nil {
		entry.UserID = &p.UserID
		if entry.TenantID == nil {
			entry.TenantID = p.TenantID
		}
	}

	if err := s.store.CreateAuditEntry(r.Context(), entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit entry")
		return
	}

	if s.publisher != nil {
		s.publisher.PublishAudit(entry)
	}
}

// clientIP returns the request address without the port. RealIP middleware
// has already resolved forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
