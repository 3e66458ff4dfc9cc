package service

import (
	"context"
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
)

// recordAudit forwards e to sink when one is configured.
func recordAudit(ctx context.Context, sink ports.AuditSink, e domain.AuditEvent) {
	if sink == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	sink.Record(ctx, e)
}
