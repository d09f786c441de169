package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundbook_jobs_completed_total",
			Help: "Completed jobs by payment outcome",
		},
		[]string{"outcome"}, // paid|unpaid
	)

	NoticesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundbook_notices_total",
			Help: "Payment notices lifecycle counter by stage",
		},
		[]string{"stage"}, // queued|sent|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		JobsCompletedTotal,
		NoticesTotal,
	)
}
