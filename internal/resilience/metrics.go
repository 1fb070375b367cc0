package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker telemetry, labelled by dependency target.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breaker_state",
		Help: "Breaker position: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_transition_total",
		Help: "State transitions, by origin and destination state.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_open_total",
		Help: "Times a breaker tripped open.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
