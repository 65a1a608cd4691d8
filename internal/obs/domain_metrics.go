package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartCommandsTotal counts cart commands by outcome.
	CartCommandsTotal *prometheus.CounterVec
	// CartQuantityClampedTotal counts quantity updates capped at the stock ceiling.
	CartQuantityClampedTotal prometheus.Counter
	// CartCouponApplicationsTotal counts coupon applications by coupon type.
	CartCouponApplicationsTotal *prometheus.CounterVec
	// CartTotalsComputedTotal counts totals computations served to clients.
	CartTotalsComputedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers cart Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_commands_total",
			Help:      "Count of cart commands by command and result.",
		}, []string{"command", "result"})
		CartQuantityClampedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_quantity_clamped_total",
			Help:      "Number of quantity updates capped at the product stock.",
		})
		CartCouponApplicationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_coupon_applications_total",
			Help:      "Count of coupon applications by coupon type.",
		}, []string{"type"})
		CartTotalsComputedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_totals_computed_total",
			Help:      "Number of cart totals computations.",
		})

		mustRegisterCollector(reg, CartCommandsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartCommandsTotal = v
			}
		})
		mustRegisterCollector(reg, CartQuantityClampedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartQuantityClampedTotal = v
			}
		})
		mustRegisterCollector(reg, CartCouponApplicationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartCouponApplicationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartTotalsComputedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartTotalsComputedTotal = v
			}
		})
	})
}

// RecordCartCommand increments the command counter when domain metrics are registered.
func RecordCartCommand(command string, err error) {
	if CartCommandsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	CartCommandsTotal.WithLabelValues(command, result).Inc()
}

// RecordQuantityClamped increments the clamp counter when domain metrics are registered.
func RecordQuantityClamped() {
	if CartQuantityClampedTotal != nil {
		CartQuantityClampedTotal.Inc()
	}
}

// RecordCouponApplied increments the coupon application counter when registered.
func RecordCouponApplied(kind string) {
	if CartCouponApplicationsTotal != nil {
		CartCouponApplicationsTotal.WithLabelValues(kind).Inc()
	}
}

// RecordTotalsComputed increments the totals counter when registered.
func RecordTotalsComputed() {
	if CartTotalsComputedTotal != nil {
		CartTotalsComputedTotal.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
