package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/models"
)

// Publisher publishes audit events to interested consumers. Publishing is
// fire-and-forget: implementations log failures and move on.
type Publisher interface {
	PublishAudit(entry *models.AuditEntry)
}

// NATSPublisher publishes audit events to NATS subjects
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher creates a publisher over an established connection
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// PublishAudit publishes an audit entry to audit.<entity_type>
func (p *NATSPublisher) PublishAudit(entry *models.AuditEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal audit event")
		return
	}

	if err := p.nc.Publish("audit."+entry.EntityType, data); err != nil {
		log.Warn().Err(err).Str("entity", entry.EntityType).Msg("Failed to publish audit event")
	}
}
