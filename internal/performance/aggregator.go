// Package performance rolls executed trades up into per-strategy statistics.
package performance

import "treasury-vault/internal/domain"

// Apply returns prev updated with one executed trade.
// prev may be nil for a strategy with no history. prev is not modified.
//
// AvgReturn is TotalProfit / TotalTrades with Go integer division, which
// truncates toward zero. expectedReturn is accumulated into ExpectedReturnSum
// and does not affect AvgReturn.
func Apply(prev *domain.StrategyPerformance, strategy string, profitLoss int64, expectedReturn int32, now int64) *domain.StrategyPerformance {
	next := domain.StrategyPerformance{Strategy: strategy}
	if prev != nil {
		next = *prev
		next.Strategy = strategy
	}

	next.TotalTrades++
	if profitLoss > 0 {
		next.WinningTrades++
	}
	next.TotalProfit += profitLoss
	next.AvgReturn = next.TotalProfit / int64(next.TotalTrades)
	next.ExpectedReturnSum += int64(expectedReturn)
	next.LastUpdated = now

	return &next
}
