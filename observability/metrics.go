package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// POSMetrics tracks the register, checkout lifecycle and treasury.
type POSMetrics struct {
	checkoutsStarted prometheus.Counter
	settlements      *prometheus.CounterVec
	settleLatency    prometheus.Histogram
	sweeps           *prometheus.CounterVec
	sweptBCH         *prometheus.CounterVec
	tokens           *prometheus.CounterVec
	exchangeRate     prometheus.Gauge
	wallets          *prometheus.GaugeVec
	availableSupply  prometheus.Gauge
	rejections       *prometheus.CounterVec
}

var (
	posMetricsOnce sync.Once
	posRegistry    *POSMetrics
)

// POS returns the lazily-initialised POS metrics registered against the
// default Prometheus registry.
func POS() *POSMetrics {
	posMetricsOnce.Do(func() {
		posRegistry = NewPOSMetrics(prometheus.DefaultRegisterer)
	})
	return posRegistry
}

// NewPOSMetrics builds and registers a fresh collector set. Tests pass their
// own registry to keep counters isolated.
func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	m := &POSMetrics{
		checkoutsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "checkout",
			Name:      "started_total",
			Help:      "Checkout sessions opened at the register.",
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "checkout",
			Name:      "settlements_total",
			Help:      "Checkout sessions reaching a terminal status.",
		}, []string{"status"}),
		settleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nexuscash",
			Subsystem: "checkout",
			Name:      "settle_seconds",
			Help:      "Time from payment submission to settlement.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 30},
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "treasury",
			Name:      "sweeps_total",
			Help:      "Hot to cold wallet sweeps segmented by trigger.",
		}, []string{"trigger"}),
		sweptBCH: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "treasury",
			Name:      "swept_bch_total",
			Help:      "BCH moved to the cold wallet segmented by trigger.",
		}, []string{"trigger"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "treasury",
			Name:      "tokens_total",
			Help:      "Loyalty tokens segmented by supply operation (mint, burn).",
		}, []string{"operation"}),
		exchangeRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuscash",
			Subsystem: "rate",
			Name:      "bch_usd",
			Help:      "Current simulated BCH/USD exchange rate.",
		}),
		wallets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nexuscash",
			Subsystem: "treasury",
			Name:      "wallet_bch",
			Help:      "Treasury wallet balances in BCH.",
		}, []string{"wallet"}),
		availableSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuscash",
			Subsystem: "treasury",
			Name:      "available_supply",
			Help:      "Loyalty tokens neither distributed nor burned.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscash",
			Subsystem: "pos",
			Name:      "rejections_total",
			Help:      "Operations refused without a state change, by operation.",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.checkoutsStarted,
			m.settlements,
			m.settleLatency,
			m.sweeps,
			m.sweptBCH,
			m.tokens,
			m.exchangeRate,
			m.wallets,
			m.availableSupply,
			m.rejections,
		)
	}
	return m
}

// RecordCheckoutStarted counts a new session.
func (m *POSMetrics) RecordCheckoutStarted() {
	if m == nil {
		return
	}
	m.checkoutsStarted.Inc()
}

// RecordSettlement counts a terminal status and, when the payment was
// submitted, the time it took to settle.
func (m *POSMetrics) RecordSettlement(status string, sincePaid time.Duration) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(label(status)).Inc()
	if sincePaid > 0 {
		m.settleLatency.Observe(sincePaid.Seconds())
	}
}

// RecordSweep counts a sweep and its amount.
func (m *POSMetrics) RecordSweep(trigger string, amountBCH float64) {
	if m == nil {
		return
	}
	trigger = label(trigger)
	m.sweeps.WithLabelValues(trigger).Inc()
	if amountBCH > 0 {
		m.sweptBCH.WithLabelValues(trigger).Add(amountBCH)
	}
}

// RecordTokens counts minted or burned tokens.
func (m *POSMetrics) RecordTokens(operation string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.tokens.WithLabelValues(label(operation)).Add(float64(amount))
}

// SetExchangeRate publishes the current rate.
func (m *POSMetrics) SetExchangeRate(rate float64) {
	if m == nil {
		return
	}
	m.exchangeRate.Set(rate)
}

// SetTreasury publishes wallet balances and the available supply.
func (m *POSMetrics) SetTreasury(hotBCH, coldBCH float64, available int64) {
	if m == nil {
		return
	}
	m.wallets.WithLabelValues("hot").Set(hotBCH)
	m.wallets.WithLabelValues("cold").Set(coldBCH)
	m.availableSupply.Set(float64(available))
}

// RecordRejection counts an operation refused without a state change.
func (m *POSMetrics) RecordRejection(operation string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(label(operation)).Inc()
}

// Settlements exposes the settlement counter for tests.
func (m *POSMetrics) Settlements() *prometheus.CounterVec { return m.settlements }

// Sweeps exposes the sweep counter for tests.
func (m *POSMetrics) Sweeps() *prometheus.CounterVec { return m.sweeps }

// Tokens exposes the token counter for tests.
func (m *POSMetrics) Tokens() *prometheus.CounterVec { return m.tokens }

// CheckoutsStarted exposes the started counter for tests.
func (m *POSMetrics) CheckoutsStarted() prometheus.Counter { return m.checkoutsStarted }

// Rejections exposes the rejection counter for tests.
func (m *POSMetrics) Rejections() *prometheus.CounterVec { return m.rejections }

func label(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
