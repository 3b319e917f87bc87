// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "banju",
		Name:      "requests_created_total",
		Help:      "Service requests persisted after validation.",
	})

	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "banju",
		Name:      "request_transitions_total",
		Help:      "Lifecycle transitions applied, by resulting status.",
	}, []string{"status"})

	ContactFilterRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "banju",
		Name:      "contact_filter_rejections_total",
		Help:      "Submissions rejected because a field contained contact details, by pattern class.",
	}, []string{"class"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "banju",
		Name:      "payment_webhook_events_total",
		Help:      "Payment webhook deliveries, by outcome.",
	}, []string{"result"})
)

// Webhook outcomes.
const (
	WebhookApplied      = "applied"
	WebhookIgnored      = "ignored"
	WebhookDuplicate    = "duplicate"
	WebhookBadSignature = "bad_signature"
	WebhookFailed       = "failed"
	WebhookUnconfigured = "unconfigured"
)
