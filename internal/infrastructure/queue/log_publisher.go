package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// LogPublisher writes audit events to a zerolog logger. It is the default
// destination when no broker is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("stream", "audit").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e domain.AuditEvent) error {
	p.log.Info().
		Str("type", string(e.Type)).
		Str("user_id", e.UserID).
		Str("account_id", e.AccountID).
		Str("action", string(e.Action)).
		Str("resource_type", e.ResourceType).
		Str("resource_id", e.ResourceID).
		Str("detail", e.Detail).
		Time("occurred_at", e.OccurredAt).
		Msg("audit")
	return nil
}
