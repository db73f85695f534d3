// Package metrics holds the Prometheus collectors shared by both binaries.
// All methods are safe on a nil *Metrics so components can run without it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Mutations          *prometheus.CounterVec
	MutationRetries    *prometheus.CounterVec
	MutationDuration   prometheus.Histogram
	Operations         *prometheus.CounterVec
	StakesSettled      *prometheus.CounterVec
	SettlementRuns     *prometheus.CounterVec
	SettlementDuration prometheus.Histogram
	PayoutAmount       prometheus.Counter
	OddsCache          *prometheus.CounterVec
	OutboxPublished    *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_account_mutations_total",
				Help: "Account mutations by outcome category.",
			},
			[]string{"outcome"},
		),
		MutationRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_account_mutation_retries_total",
				Help: "Mutation attempts repeated after a version conflict or transient storage error.",
			},
			[]string{"reason"},
		),
		MutationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_account_mutation_duration_seconds",
				Help:    "Duration of a complete mutation including retries.",
				Buckets: prometheus.DefBuckets,
			},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger engine operations by name and outcome category.",
			},
			[]string{"operation", "outcome"},
		),
		StakesSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_stakes_total",
				Help: "Stakes moved to a terminal status.",
			},
			[]string{"status"},
		),
		SettlementRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_runs_total",
				Help: "Settlement runs by result.",
			},
			[]string{"result"},
		),
		SettlementDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "settlement_duration_seconds",
				Help:    "Duration of one event settlement run.",
				Buckets: prometheus.DefBuckets,
			},
		),
		PayoutAmount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "settlement_payout_minor_units_total",
				Help: "Sum of payouts credited, in minor units.",
			},
		),
		OddsCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_cache_requests_total",
				Help: "Odds cache lookups by result.",
			},
			[]string{"result"},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_messages_total",
				Help: "Outbox messages handled by the poller, by status.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.Mutations,
		m.MutationRetries,
		m.MutationDuration,
		m.Operations,
		m.StakesSettled,
		m.SettlementRuns,
		m.SettlementDuration,
		m.PayoutAmount,
		m.OddsCache,
		m.OutboxPublished,
	)
	return m
}

func (m *Metrics) ObserveMutation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(outcome).Inc()
	m.MutationDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncMutationRetry(reason string) {
	if m == nil {
		return
	}
	m.MutationRetries.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncStakeSettled(status string, payout int64) {
	if m == nil {
		return
	}
	m.StakesSettled.WithLabelValues(status).Inc()
	if payout > 0 {
		m.PayoutAmount.Add(float64(payout))
	}
}

func (m *Metrics) ObserveSettlement(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SettlementRuns.WithLabelValues(result).Inc()
	m.SettlementDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncOddsCache(result string) {
	if m == nil {
		return
	}
	m.OddsCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncOutbox(status string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(status).Inc()
}
