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
			Name: "finflow_products_created_total",
			Help: "Number of loan products created.",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "finflow_products_deleted_total",
			Help: "Number of loan products deleted.",
		}),
	}
}
