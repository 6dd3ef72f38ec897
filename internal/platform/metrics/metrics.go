// Package metrics holds all Prometheus metrics for the application. The
// struct satisfies the metrics hooks of the verification service and the
// audit pipeline so one registry serves both.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	VerificationsInitiated prometheus.Counter
	VerificationsVerified  prometheus.Counter
	VerificationsFailed    *prometheus.CounterVec
	OtpRejected            prometheus.Counter
	RequestsArchived       prometheus.Counter
	AuthorityLatency       prometheus.Histogram

	AuditEmitted prometheus.Counter
	AuditDropped prometheus.Counter
	AuditRetried prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		VerificationsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_verifications_initiated_total",
			Help: "Total number of verification requests accepted at intake",
		}),
		VerificationsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_verifications_verified_total",
			Help: "Total number of verification requests that reached VERIFIED",
		}),
		VerificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_verifications_failed_total",
			Help: "Total number of verification requests that reached FAILED",
		}, []string{"reason"}),
		OtpRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_otp_rejected_total",
			Help: "Total number of OTP submissions rejected locally",
		}),
		RequestsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_requests_archived_total",
			Help: "Total number of requests scrubbed and archived by retention",
		}),
		AuthorityLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_authority_call_duration_seconds",
			Help:    "Latency of identity-authority calls",
			Buckets: prometheus.DefBuckets,
		}),
		AuditEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_emitted_total",
			Help: "Total number of audit entries persisted",
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_dropped_total",
			Help: "Total number of audit entries dropped under pressure",
		}),
		AuditRetried: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_retried_total",
			Help: "Total number of audit persistence retries",
		}),
	}
}

func (m *Metrics) IncInitiated() { m.VerificationsInitiated.Inc() }

func (m *Metrics) IncVerified() { m.VerificationsVerified.Inc() }

func (m *Metrics) IncFailed(reason string) {
	m.VerificationsFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncOtpRejected() { m.OtpRejected.Inc() }

func (m *Metrics) IncArchived(n int) { m.RequestsArchived.Add(float64(n)) }

func (m *Metrics) ObserveAuthorityLatency(seconds float64) {
	m.AuthorityLatency.Observe(seconds)
}

func (m *Metrics) IncAuditEmitted() { m.AuditEmitted.Inc() }

func (m *Metrics) IncAuditDropped() { m.AuditDropped.Inc() }

func (m *Metrics) IncAuditRetried() { m.AuditRetried.Inc() }
