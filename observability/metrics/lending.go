package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LendingMetrics struct {
	operations      *prometheus.CounterVec
	flashVolume     *prometheus.CounterVec
	liquidations    prometheus.Counter
	poolDeposited   *prometheus.GaugeVec
	poolBorrowed    *prometheus.GaugeVec
	borrowRateBps   *prometheus.GaugeVec
	activePositions prometheus.Gauge
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the metrics registry tracking pool activity.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arclend_operations_total",
				Help: "Count of ledger operations segmented by kind and result.",
			}, []string{"op", "result"}),
			flashVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "arclend_flash_volume_total",
				Help: "Sum of flash-loan principal in base units by asset.",
			}, []string{"asset"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "arclend_liquidations_total",
				Help: "Count of positions closed by liquidators.",
			}),
			poolDeposited: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "arclend_pool_deposited",
				Help: "Total supplier deposits per asset in base units.",
			}, []string{"asset"}),
			poolBorrowed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "arclend_pool_borrowed",
				Help: "Outstanding loan principal per asset in base units.",
			}, []string{"asset"}),
			borrowRateBps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "arclend_borrow_rate_bps",
				Help: "Current borrow rate per asset in basis points.",
			}, []string{"asset"}),
			activePositions: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "arclend_active_positions",
				Help: "Number of positions currently in the Active state.",
			}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.flashVolume,
			lendingRegistry.liquidations,
			lendingRegistry.poolDeposited,
			lendingRegistry.poolBorrowed,
			lendingRegistry.borrowRateBps,
			lendingRegistry.activePositions,
		)
	})
	return lendingRegistry
}

// RecordOperation increments the operation counter for the given kind and
// outcome ("ok" or "error").
func (m *LendingMetrics) RecordOperation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// RecordFlashVolume adds the borrowed principal to the per-asset volume
// counter. Amounts beyond float precision saturate rather than error.
func (m *LendingMetrics) RecordFlashVolume(asset string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.flashVolume.WithLabelValues(asset).Add(amount)
}

// RecordLiquidation increments the liquidation counter.
func (m *LendingMetrics) RecordLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// SetPoolGauges publishes the per-asset aggregates.
func (m *LendingMetrics) SetPoolGauges(asset string, deposited, borrowed float64, borrowRateBps uint64) {
	if m == nil {
		return
	}
	m.poolDeposited.WithLabelValues(asset).Set(deposited)
	m.poolBorrowed.WithLabelValues(asset).Set(borrowed)
	m.borrowRateBps.WithLabelValues(asset).Set(float64(borrowRateBps))
}

// SetActivePositions publishes the live position count.
func (m *LendingMetrics) SetActivePositions(n int) {
	if m == nil {
		return
	}
	m.activePositions.Set(float64(n))
}
