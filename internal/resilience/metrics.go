package resilience

import "github.com/prometheus/client_golang/prometheus"

// Collectors for the breakers guarding outbound collaborators (the order
// tracker today). Labelled by breaker target so one dashboard covers every
// outbound dependency this service grows.
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbound_breaker_state",
			Help: "State of the breaker guarding an outbound collaborator: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_breaker_transitions_total",
			Help: "Breaker state transitions per outbound collaborator",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_breaker_opened_total",
			Help: "Times an outbound collaborator tripped its breaker open",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
