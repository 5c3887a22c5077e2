package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"strategy", "total_trades", "winning_trades", "total_profit", "avg_return", "avg_expected_return",
	"journal_trades", "losses", "win_rate",
	"outcome_mean", "outcome_median", "outcome_p10", "outcome_p90", "outcome_stddev",
	"max_drawdown", "max_consecutive_losses", "reconciled",
}

// RenderCSV renders strategy rows as CSV string.
func RenderCSV(r *Report) (string, error) {
	failed := make(map[string]bool)
	for _, c := range r.Reconciliation {
		if !c.Pass {
			failed[c.Strategy] = true
		}
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, s := range r.Strategies {
		record := []string{
			s.Strategy,
			strconv.FormatUint(s.TotalTrades, 10),
			strconv.FormatUint(s.WinningTrades, 10),
			strconv.FormatInt(s.TotalProfit, 10),
			strconv.FormatInt(s.AvgReturn, 10),
			strconv.FormatInt(s.AvgExpectedReturn, 10),
			strconv.Itoa(s.JournalTrades),
			strconv.Itoa(s.Losses),
			f(s.WinRate),
			f(s.OutcomeMean),
			f(s.OutcomeMedian),
			f(s.OutcomeP10),
			f(s.OutcomeP90),
			f(s.OutcomeStddev),
			f(s.MaxDrawdown),
			strconv.Itoa(s.MaxConsecutiveLosses),
			strconv.FormatBool(!failed[s.Strategy]),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
