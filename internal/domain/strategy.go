package domain

// StrategyPerformance is the running rollup of executed trades per strategy label.
type StrategyPerformance struct {
	Strategy string

	// Counts
	TotalTrades   uint64
	WinningTrades uint64 // trades with profit_loss > 0

	// Outcome
	TotalProfit int64
	AvgReturn   int64 // TotalProfit / TotalTrades, truncated toward zero

	// ExpectedReturnSum accumulates the signals' expected returns (bps).
	// Compared against realized results for forecast accuracy; not part of AvgReturn.
	ExpectedReturnSum int64

	LastUpdated int64 // unix ms
}

// WinRate returns WinningTrades / TotalTrades, or 0 when no trades exist.
func (p *StrategyPerformance) WinRate() float64 {
	if p.TotalTrades == 0 {
		return 0
	}
	return float64(p.WinningTrades) / float64(p.TotalTrades)
}

// AvgExpectedReturn returns the mean expected return in bps, truncated.
func (p *StrategyPerformance) AvgExpectedReturn() int64 {
	if p.TotalTrades == 0 {
		return 0
	}
	return p.ExpectedReturnSum / int64(p.TotalTrades)
}
