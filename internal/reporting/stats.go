package reporting

import (
	"math"
	"sort"

	"treasury-vault/internal/domain"
)

// sortTrades returns trades ordered by ExecutedAt ASC, TradeID ASC.
func sortTrades(trades []*domain.TradeRecord) []*domain.TradeRecord {
	sorted := make([]*domain.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ExecutedAt != sorted[j].ExecutedAt {
			return sorted[i].ExecutedAt < sorted[j].ExecutedAt
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})
	return sorted
}

// fillJournalStats computes the journal columns of row. trades must be in
// chronological order.
func fillJournalStats(row *StrategyRow, trades []*domain.TradeRecord) {
	n := len(trades)
	row.JournalTrades = n
	if n == 0 {
		return
	}

	wins := 0
	outcomes := make([]float64, n)
	for i, t := range trades {
		if t.IsWin() {
			wins++
		}
		outcomes[i] = float64(t.ProfitLoss)
	}
	row.Losses = n - wins
	row.WinRate = float64(wins) / float64(n)

	sorted := make([]float64, n)
	copy(sorted, outcomes)
	sort.Float64s(sorted)

	row.OutcomeMean = mean(outcomes)
	row.OutcomeMedian = percentile(sorted, 0.50)
	row.OutcomeP10 = percentile(sorted, 0.10)
	row.OutcomeP90 = percentile(sorted, 0.90)
	row.OutcomeStddev = stddev(outcomes, row.OutcomeMean)
	row.MaxDrawdown = maxDrawdown(outcomes)
	row.MaxConsecutiveLosses = maxConsecutiveLosses(trades)
}

func mean(outcomes []float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range outcomes {
		sum += o
	}
	return sum / float64(len(outcomes))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(outcomes []float64, mean float64) float64 {
	n := len(outcomes)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, o := range outcomes {
		diff := o - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// percentile uses linear interpolation. sorted must be ASC.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// maxDrawdown is the worst peak-to-trough of cumulative profit/loss.
// Outcomes must be in chronological order.
func maxDrawdown(outcomes []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	worst := 0.0
	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}

// maxConsecutiveLosses finds the longest streak of non-winning trades.
func maxConsecutiveLosses(trades []*domain.TradeRecord) int {
	longest, current := 0, 0
	for _, t := range trades {
		if t.IsWin() {
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
	}
	return longest
}
