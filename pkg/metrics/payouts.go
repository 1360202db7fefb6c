package metrics

import "github.com/prometheus/client_golang/prometheus"

// PayoutSweepMetrics counts per-store outcomes of payout sweeps.
type PayoutSweepMetrics struct {
	processed prometheus.Counter
	skipped   prometheus.Counter
	failed    prometheus.Counter
	amount    prometheus.Counter
}

// NewPayoutSweepMetrics registers the sweep counters on the provided registerer.
func NewPayoutSweepMetrics(reg prometheus.Registerer) *PayoutSweepMetrics {
	if reg == nil {
		return &PayoutSweepMetrics{}
	}
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_sweep_processed_total",
		Help: "Stores for which a payout was dispatched during sweeps.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_sweep_skipped_total",
		Help: "Stores skipped by an executor gate during sweeps.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_sweep_failed_total",
		Help: "Stores whose payout attempt errored during sweeps.",
	})
	amount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_sweep_amount_cents_total",
		Help: "Total cents dispatched by payout sweeps.",
	})
	reg.MustRegister(processed, skipped, failed, amount)
	return &PayoutSweepMetrics{
		processed: processed,
		skipped:   skipped,
		failed:    failed,
		amount:    amount,
	}
}

// AddProcessed counts a dispatched payout and its amount.
func (m *PayoutSweepMetrics) AddProcessed(amountCents int64) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.Inc()
	if amountCents > 0 {
		m.amount.Add(float64(amountCents))
	}
}

// IncSkipped counts a store skipped by an executor gate.
func (m *PayoutSweepMetrics) IncSkipped() {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.Inc()
}

// IncFailed counts a store whose payout attempt errored.
func (m *PayoutSweepMetrics) IncFailed() {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Inc()
}
