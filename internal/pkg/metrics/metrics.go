// Package metrics defines and registers all custom Prometheus metrics for the
// IAM engine. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics register with the default Prometheus registry on package load and
// are exposed by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "iam"

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokensIssuedTotal counts issuance attempts.
// Label:
//   - result: "success", "user_not_found", "signature_key_not_found", "account_not_found" or "error"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of token issuance attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts validation outcomes.
// Label:
//   - result: "success", "invalid_token_format", "missing_user_id_claim", "token_validation_failed" or "error"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of token validations, by result.",
	},
	[]string{"result"},
)

// TokensRevokedTotal counts tokens moved to the revoked state.
// Label:
//   - scope: "one" (single sign-out) or "all" (sign-out everywhere)
var TokensRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Total number of tracked tokens revoked.",
	},
	[]string{"scope"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthorizationDecisionsTotal counts decisions of the authorization point.
// Labels:
//   - action: create, read, update, delete or execute
//   - decision: "allow" or "deny"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of authorization decisions, by action and decision.",
	},
	[]string{"action", "decision"},
)

// PermissionResolutionDuration measures one effective-permission resolution.
var PermissionResolutionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "permission_resolution_duration_seconds",
		Help:      "Duration of effective permission resolution, storage reads included.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events accepted by the dispatcher.
// Label:
//   - type: the audit event type (e.g. "access.denied")
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events queued for delivery.",
	},
	[]string{"type"},
)

// AuditEventsDroppedTotal counts audit events dropped because a worker queue was
// full or the dispatcher had stopped.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped on a full or stopped dispatcher queue.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
