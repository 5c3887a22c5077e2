// Package reporting builds strategy reports from the trade journal and
// reconciles them against the on-ledger performance rollups.
package reporting

import "time"

// Report represents the strategy report structure.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	StrategyCount int

	// Strategy Metrics (sorted by strategy)
	Strategies []StrategyRow

	// Ledger rollup vs journal
	Reconciliation []ReconciliationCheck
	AllReconciled  bool
}

// StrategyRow represents one row in the strategy metrics table.
// Outcome statistics are over realized profit/loss in settlement currency units.
type StrategyRow struct {
	Strategy string

	// Ledger rollup
	TotalTrades       uint64
	WinningTrades     uint64
	TotalProfit       int64
	AvgReturn         int64
	AvgExpectedReturn int64 // bps
	LastUpdated       int64 // unix ms

	// Journal
	JournalTrades        int
	Losses               int
	WinRate              float64
	OutcomeMean          float64
	OutcomeMedian        float64
	OutcomeP10           float64
	OutcomeP90           float64
	OutcomeStddev        float64
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}

// ReconciliationCheck compares one rollup field with the value derived from
// the journal.
type ReconciliationCheck struct {
	Strategy string
	Name     string
	Ledger   string
	Journal  string
	Pass     bool
}
