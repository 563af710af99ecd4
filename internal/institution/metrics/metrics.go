package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the institution workflow counters.
type Metrics struct {
	Created prometheus.Counter
	Deleted prometheus.Counter
}

// New creates and registers the institution metrics.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "finflow_institutions_created_total",
			Help: "Total number of institutions registered",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "finflow_institutions_deleted_total",
			Help: "Total number of institutions deleted",
		}),
	}
}
