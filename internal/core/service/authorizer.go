package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/metrics"
)

// Authorizer is the decision point for one request. It memoizes the effective
// permission set for its own lifetime and must not be shared between
// requests or used from several goroutines.
type Authorizer struct {
	resolver *PermissionResolver
	user     *domain.UserContext
	audit    ports.AuditSink
	log      zerolog.Logger

	effective []domain.Permission
	resolved  bool
}

// NewAuthorizer binds a decision point to uc. A nil uc denies everything.
// audit may be nil.
func NewAuthorizer(resolver *PermissionResolver, uc *domain.UserContext, audit ports.AuditSink, log zerolog.Logger) *Authorizer {
	return &Authorizer{resolver: resolver, user: uc, audit: audit, log: log}
}

// UserContext returns the context the authorizer is bound to, or nil.
func (a *Authorizer) UserContext() *domain.UserContext {
	if a == nil {
		return nil
	}
	return a.user
}

// EffectivePermissions resolves once and returns the cached set afterwards.
// A failed resolution is not cached.
func (a *Authorizer) EffectivePermissions(ctx context.Context) ([]domain.Permission, error) {
	if a == nil || a.user == nil {
		return nil, nil
	}
	if a.resolved {
		return a.effective, nil
	}
	perms, err := a.resolver.Resolve(ctx, a.user)
	if err != nil {
		return nil, err
	}
	a.effective, a.resolved = perms, true
	return perms, nil
}

// IsAuthorized reports whether the bound user may perform action on the
// resource. It denies without a user context, and denies on storage failure
// while returning the error. Every denial is logged for audit.
func (a *Authorizer) IsAuthorized(ctx context.Context, action domain.Action, resourceType string, resourceID domain.ResourceID) (bool, error) {
	if a == nil || a.user == nil {
		a.deny(ctx, action, resourceType, resourceID, "no user context")
		return false, nil
	}
	perms, err := a.EffectivePermissions(ctx)
	if err != nil {
		a.deny(ctx, action, resourceType, resourceID, "permission resolution failed")
		return false, err
	}
	for _, p := range perms {
		if p.Matches(action, resourceType, resourceID) {
			metrics.AuthorizationDecisionsTotal.WithLabelValues(string(action), "allow").Inc()
			return true, nil
		}
	}
	a.deny(ctx, action, resourceType, resourceID, "no matching permission")
	return false, nil
}

// IsAuthorizedForSelf reports whether the bound user is userID. Role grants
// play no part.
func (a *Authorizer) IsAuthorizedForSelf(userID string) bool {
	return a != nil && a.user != nil && userID != "" && a.user.UserID == userID
}

func (a *Authorizer) deny(ctx context.Context, action domain.Action, resourceType string, resourceID domain.ResourceID, reason string) {
	metrics.AuthorizationDecisionsTotal.WithLabelValues(string(action), "deny").Inc()

	event := domain.AuditEvent{
		Type:         domain.AuditAccessDenied,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID.String(),
		Detail:       reason,
		OccurredAt:   time.Now().UTC(),
	}
	// Without an authorizer fall back to the logger carried by ctx.
	log := *zerolog.Ctx(ctx)
	if a != nil {
		log = a.log
		if a.user != nil {
			event.UserID = a.user.UserID
			event.AccountID = a.user.AccountID
		}
	}
	log.Warn().
		Bool("audit", true).
		Str("user_id", event.UserID).
		Str("account_id", event.AccountID).
		Str("action", string(action)).
		Str("resource_type", resourceType).
		Str("resource_id", event.ResourceID).
		Str("reason", reason).
		Msg("authorization denied")
	if a != nil && a.audit != nil {
		a.audit.Record(ctx, event)
	}
}
