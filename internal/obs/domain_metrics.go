package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ItemsAddedTotal counts items added to carts, by category.
	ItemsAddedTotal *prometheus.CounterVec
	// SalesCompletedTotal counts completed checkouts.
	SalesCompletedTotal prometheus.Counter
	// SaleValue records completed sale totals in minor units.
	SaleValue prometheus.Histogram
	// SessionsActive tracks the number of open terminal sessions.
	SessionsActive prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ItemsAddedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_added_total",
			Help:      "Count of items added to carts by category.",
		}, []string{"category"})
		SalesCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_completed_total",
			Help:      "Total number of completed checkouts.",
		})
		SaleValue = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_value_minor_units",
			Help:      "Distribution of completed sale totals in minor currency units.",
			Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		})
		SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently open terminal sessions.",
		})

		mustRegisterCollector(reg, ItemsAddedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ItemsAddedTotal = v
			}
		})
		mustRegisterCollector(reg, SalesCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SalesCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleValue, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleValue = v
			}
		})
		mustRegisterCollector(reg, SessionsActive, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				SessionsActive = v
			}
		})
	})
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
