package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
	retryAttempts      *prometheus.CounterVec
)

// MustRegisterMetrics registers breaker and retry collectors. Until it is called the
// package records nothing.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open.",
		}, []string{"target"})
		breakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions.",
		}, []string{"target", "from", "to"})
		retryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_retry_total",
			Help:      "Retried dependency calls by target.",
		}, []string{"target"})
		reg.MustRegister(breakerState, breakerTransitions, retryAttempts)
	})
}
