package generate

import "github.com/prometheus/client_golang/prometheus"

var (
	resultsStreamedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hfserve",
			Subsystem: "generate",
			Name:      "results_streamed_total",
			Help:      "Total incremental results emitted to streaming clients",
		},
	)

	sessionAbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfserve",
			Subsystem: "generate",
			Name:      "session_aborts_total",
			Help:      "Total generation sessions aborted, by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(resultsStreamedTotal, sessionAbortsTotal)
}
