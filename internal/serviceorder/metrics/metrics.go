package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions        *prometheus.CounterVec
	InvalidTransitions prometheus.Counter
	OrdersCreated      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shopcore_order_transitions_total",
			Help: "Successful service order transitions by target status",
		}, []string{"target"}),
		InvalidTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopcore_order_invalid_transitions_total",
			Help: "Rejected service order transition attempts",
		}),
		OrdersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopcore_orders_created_total",
			Help: "Total service orders created",
		}),
	}
}

func (m *Metrics) RecordTransition(target string) {
	m.Transitions.WithLabelValues(target).Inc()
}

func (m *Metrics) RecordInvalidTransition() {
	m.InvalidTransitions.Inc()
}

func (m *Metrics) RecordOrderCreated() {
	m.OrdersCreated.Inc()
}
