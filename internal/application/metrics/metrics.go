package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submitted prometheus.Counter
	Decided   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "finflow_applications_submitted_total",
			Help: "Number of financing applications submitted.",
		}),
		Decided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "finflow_applications_decided_total",
			Help: "Number of application decisions by outcome.",
		}, []string{"outcome"}),
	}
}
