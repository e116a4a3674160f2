package gate

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launch_gate_decisions_total",
			Help: "Launch gate decisions by outcome and rule",
		},
		[]string{"decision", "reason"},
	)
	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "launch_gate_probe_duration_seconds",
			Help:    "Latency of the launch probe request",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(probeDuration)
}
