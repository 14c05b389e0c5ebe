package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Created prometheus.Counter
	Deleted prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopcore_tenants_created_total",
			Help: "Total tenants created",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopcore_tenants_deleted_total",
			Help: "Total tenants deleted",
		}),
	}
}
