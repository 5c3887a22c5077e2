package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Strategy Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategies: %d\n\n", r.StrategyCount))

	// Ledger rollup
	sb.WriteString("## Ledger Performance\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Strategy | Trades | Wins | WinRate | TotalProfit | AvgReturn | AvgExpected(bps) |\n")
		sb.WriteString("|----------|--------|------|---------|-------------|-----------|------------------|\n")
		for _, s := range r.Strategies {
			winRate := 0.0
			if s.TotalTrades > 0 {
				winRate = float64(s.WinningTrades) / float64(s.TotalTrades)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %d | %d | %d |\n",
				s.Strategy, s.TotalTrades, s.WinningTrades, winRate,
				s.TotalProfit, s.AvgReturn, s.AvgExpectedReturn))
		}
	} else {
		sb.WriteString("No strategies requested.\n")
	}
	sb.WriteString("\n")

	// Journal distribution
	sb.WriteString("## Outcome Distribution\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Strategy | Trades | Losses | Mean | Median | P10 | P90 | Stddev | MaxDD | MaxLoss |\n")
		sb.WriteString("|----------|--------|--------|------|--------|-----|-----|--------|-------|---------|\n")
		for _, s := range r.Strategies {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %d |\n",
				s.Strategy, s.JournalTrades, s.Losses,
				s.OutcomeMean, s.OutcomeMedian, s.OutcomeP10, s.OutcomeP90,
				s.OutcomeStddev, s.MaxDrawdown, s.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No journaled trades.\n")
	}
	sb.WriteString("\n")

	// Reconciliation
	sb.WriteString("## Reconciliation\n\n")
	if len(r.Reconciliation) > 0 {
		sb.WriteString("| Strategy | Check | Ledger | Journal | Status |\n")
		sb.WriteString("|----------|-------|--------|---------|--------|\n")
		for _, c := range r.Reconciliation {
			status := "FAIL"
			if c.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				c.Strategy, c.Name, c.Ledger, c.Journal, status))
		}
		sb.WriteString("\n")

		if r.AllReconciled {
			sb.WriteString("**Ledger and journal agree.**\n")
		} else {
			sb.WriteString("**Ledger and journal disagree.** Check audit write errors.\n")
		}
	} else {
		sb.WriteString("Nothing to reconcile.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
