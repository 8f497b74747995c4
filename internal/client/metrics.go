package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client's prometheus counters. A nil *Metrics records nothing.
type Metrics struct {
	Requests *prometheus.CounterVec
	Renewals *prometheus.CounterVec
	Waiters  prometheus.Counter
}

// NewMetrics creates the client counters and registers them with reg.
// A nil reg creates unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stx_client_requests_total",
			Help: "Requests dispatched by the API client, by outcome",
		}, []string{"outcome"}),
		Renewals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stx_client_renewals_total",
			Help: "Access token renewals, by result",
		}, []string{"result"}),
		Waiters: factory.NewCounter(prometheus.CounterOpts{
			Name: "stx_client_renewal_waiters_total",
			Help: "Requests that waited on an in-flight renewal",
		}),
	}
}

func (m *Metrics) request(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) renewal(result string) {
	if m == nil {
		return
	}
	m.Renewals.WithLabelValues(result).Inc()
}

func (m *Metrics) waiter() {
	if m == nil {
		return
	}
	m.Waiters.Inc()
}
