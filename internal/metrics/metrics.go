// Package metrics exposes Prometheus collectors for the authentication core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	LoginSuccess   = "success"
	LoginInvalid   = "invalid"
	LoginThrottled = "throttled"
	LoginError     = "error"
)

// Authorization denial reasons.
const (
	DeniedMissing = "missing"
	DeniedInvalid = "invalid"
	DeniedRole    = "role"
)

// Audit results.
const (
	AuditWritten = "written"
	AuditFailed  = "failed"
	AuditDropped = "dropped"
)

// Metrics holds the auth core's collectors.
type Metrics struct {
	LoginAttempts      *prometheus.CounterVec
	TokenVerifications *prometheus.CounterVec
	AuthzDenied        *prometheus.CounterVec
	AuditEntries       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homeinv_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homeinv_token_verifications_total",
				Help: "Session token verifications by result",
			},
			[]string{"result"},
		),
		AuthzDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homeinv_authz_denied_total",
				Help: "Requests denied by the authorization middleware",
			},
			[]string{"reason"},
		),
		AuditEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homeinv_audit_entries_total",
				Help: "Audit entries by persistence result",
			},
			[]string{"result"},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.LoginAttempts,
		m.TokenVerifications,
		m.AuthzDenied,
		m.AuditEntries,
	)
	return m
}

// NewNop returns collectors registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenVerified(result string) {
	if m == nil {
		return
	}
	m.TokenVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Denied(reason string) {
	if m == nil {
		return
	}
	m.AuthzDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) Audit(result string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(result).Inc()
}
