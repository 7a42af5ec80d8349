// Package metrics defines the custom Prometheus metrics of the account
// service. It is the single source of truth for metric names, labels, and
// help strings; every metric is registered with the default registry on
// package init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// Result label values shared by the lifecycle counters.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Mail-only result label values.
const (
	ResultSkipped = "skipped"
	ResultDropped = "dropped"
)

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "ok", "invalid", "conflict" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// ConfirmationsTotal counts account confirmation attempts.
var ConfirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Total number of account confirmation attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid", "not_found", "rejected" (unconfirmed or wrong password) or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts steps of the forgot/reset password flow.
// Labels:
//   - stage: "request", "validate" or "complete"
//   - result: see RegistrationsTotal
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset steps, by stage and result.",
	},
	[]string{"stage", "result"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailDispatchedTotal counts account emails handed to the transport.
// Labels:
//   - kind: "confirmation" or "password_reset"
//   - result: "ok", "skipped" (already delivered), "dropped" (queue full or
//     dispatcher closed) or "error"
//
// Only the mail dispatcher increments it, so each email is counted once.
var MailDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dispatched_total",
		Help:      "Total number of account emails dispatched, by kind and result.",
	},
	[]string{"kind", "result"},
)

// MailQueueDepth tracks the number of emails waiting in each dispatcher worker channel.
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of emails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures how long delivering one email takes, retries included.
var MailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of email delivery from dequeue to transport acknowledgement.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)
