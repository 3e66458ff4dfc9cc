package ports

import (
	"context"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// AuditSink receives security events. Record must not block the caller for long.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent)
}
