package authapi

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes. A nil *Metrics records nothing.
type Metrics struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	registrations *prometheus.CounterVec
	gate          *prometheus.CounterVec
}

// NewMetrics creates the auth counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_auth_refreshes_total",
			Help: "Refresh-token rotations by result.",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_auth_registrations_total",
			Help: "Registrations by result.",
		}, []string{"result"}),
		gate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_auth_gate_rejections_total",
			Help: "Bearer authentication rejections by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.logins, m.refreshes, m.registrations, m.gate)
	}
	return m
}

const (
	resultSuccess     = "success"
	resultInvalid     = "invalid"
	resultRejected    = "rejected"
	resultRateLimited = "rate_limited"
	resultError       = "error"
)

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) registration(result string) {
	if m != nil {
		m.registrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) gateRejected(reason string) {
	if m != nil {
		m.gate.WithLabelValues(reason).Inc()
	}
}
