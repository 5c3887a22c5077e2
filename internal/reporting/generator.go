package reporting

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"treasury-vault/internal/domain"
)

// Source provides the ledger rollup and the journaled trades of a strategy.
// *vault.Vault satisfies it.
type Source interface {
	GetStrategyPerformance(ctx context.Context, strategy string) (*domain.StrategyPerformance, error)
	StrategyTrades(ctx context.Context, strategy string) ([]*domain.TradeRecord, error)
}

// Reconciliation check names
const (
	CheckTotalTrades   = "Total trades"
	CheckWinningTrades = "Winning trades"
	CheckTotalProfit   = "Total profit"
)

// Generator produces reports from a Source.
type Generator struct {
	source Source
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for the named strategies. Duplicates are
// ignored; rows are sorted by strategy.
func (g *Generator) Generate(ctx context.Context, strategies []string) (*Report, error) {
	names := uniqueSorted(strategies)

	report := &Report{
		GeneratedAt:   g.now(),
		StrategyCount: len(names),
		AllReconciled: true,
	}

	for _, name := range names {
		perf, err := g.source.GetStrategyPerformance(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("strategy %q performance: %w", name, err)
		}
		trades, err := g.source.StrategyTrades(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("strategy %q trades: %w", name, err)
		}

		row := StrategyRow{
			Strategy:          name,
			TotalTrades:       perf.TotalTrades,
			WinningTrades:     perf.WinningTrades,
			TotalProfit:       perf.TotalProfit,
			AvgReturn:         perf.AvgReturn,
			AvgExpectedReturn: perf.AvgExpectedReturn(),
			LastUpdated:       perf.LastUpdated,
		}
		fillJournalStats(&row, sortTrades(trades))
		report.Strategies = append(report.Strategies, row)

		for _, check := range reconcile(perf, trades) {
			if !check.Pass {
				report.AllReconciled = false
			}
			report.Reconciliation = append(report.Reconciliation, check)
		}
	}

	return report, nil
}

// reconcile compares the rollup with the journal. A mismatch means the journal
// missed a trade (audit write failure) or the rollup drifted.
func reconcile(perf *domain.StrategyPerformance, trades []*domain.TradeRecord) []ReconciliationCheck {
	var wins uint64
	var profit int64
	for _, t := range trades {
		if t.IsWin() {
			wins++
		}
		profit += t.ProfitLoss
	}

	return []ReconciliationCheck{
		{
			Strategy: perf.Strategy,
			Name:     CheckTotalTrades,
			Ledger:   strconv.FormatUint(perf.TotalTrades, 10),
			Journal:  strconv.Itoa(len(trades)),
			Pass:     perf.TotalTrades == uint64(len(trades)),
		},
		{
			Strategy: perf.Strategy,
			Name:     CheckWinningTrades,
			Ledger:   strconv.FormatUint(perf.WinningTrades, 10),
			Journal:  strconv.FormatUint(wins, 10),
			Pass:     perf.WinningTrades == wins,
		},
		{
			Strategy: perf.Strategy,
			Name:     CheckTotalProfit,
			Ledger:   strconv.FormatInt(perf.TotalProfit, 10),
			Journal:  strconv.FormatInt(profit, 10),
			Pass:     perf.TotalProfit == profit,
		},
	}
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
