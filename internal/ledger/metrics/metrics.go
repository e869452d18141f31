package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module. All methods are
// nil-safe so the service can run without metrics wired.
type Metrics struct {
	Deposits    prometheus.Counter
	Withdrawals prometheus.Counter
	Recoveries  prometheus.Counter
	Allocations prometheus.Counter

	// Operation failures by operation and error code
	OperationFailures *prometheus.CounterVec

	// Operation latency by operation
	OperationDuration *prometheus.HistogramVec

	TotalFunds    prometheus.Gauge
	WhitelistSize prometheus.Gauge
	BlacklistSize prometheus.Gauge
}

// New creates a new Metrics instance with all ledger module metrics registered.
func New() *Metrics {
	return &Metrics{
		Deposits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escrowd_ledger_deposits_total",
			Help: "Total number of committed deposits and credits",
		}),
		Withdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escrowd_ledger_withdrawals_total",
			Help: "Total number of committed withdrawals",
		}),
		Recoveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escrowd_ledger_recoveries_total",
			Help: "Total number of committed blacklist recoveries",
		}),
		Allocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escrowd_ledger_allocations_total",
			Help: "Total number of committed distributions and custom allocations",
		}),
		OperationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowd_ledger_operation_failures_total",
			Help: "Total rejected ledger operations by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrowd_ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		TotalFunds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "escrowd_ledger_total_funds",
			Help: "Pooled funds currently tracked by the ledger",
		}),
		WhitelistSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "escrowd_ledger_whitelist_size",
			Help: "Number of whitelisted accounts",
		}),
		BlacklistSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "escrowd_ledger_blacklist_size",
			Help: "Number of blacklisted accounts",
		}),
	}
}

// IncrementDeposits records a committed deposit or credit.
func (m *Metrics) IncrementDeposits() {
	if m != nil {
		m.Deposits.Inc()
	}
}

// IncrementWithdrawals records a committed withdrawal.
func (m *Metrics) IncrementWithdrawals() {
	if m != nil {
		m.Withdrawals.Inc()
	}
}

// IncrementRecoveries records a committed blacklist recovery.
func (m *Metrics) IncrementRecoveries() {
	if m != nil {
		m.Recoveries.Inc()
	}
}

// IncrementAllocations records a committed distribution or custom allocation.
func (m *Metrics) IncrementAllocations() {
	if m != nil {
		m.Allocations.Inc()
	}
}

// IncrementFailure records a rejected operation.
func (m *Metrics) IncrementFailure(operation, code string) {
	if m != nil {
		m.OperationFailures.WithLabelValues(operation, code).Inc()
	}
}

// ObserveDuration records an operation's duration. Call with time.Now() at
// the start of the operation.
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// SetLedgerState updates the state gauges after a committed operation.
func (m *Metrics) SetLedgerState(totalFunds uint64, whitelistSize, blacklistSize int) {
	if m != nil {
		m.TotalFunds.Set(float64(totalFunds))
		m.WhitelistSize.Set(float64(whitelistSize))
		m.BlacklistSize.Set(float64(blacklistSize))
	}
}
