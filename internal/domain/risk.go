package domain

// RiskMetrics is the snapshot a risk agent submits with an approval request.
// The most recent one is kept as the vault's latest risk metrics.
type RiskMetrics struct {
	VaR95               int32  // basis points
	SharpeRatio         int32  // scaled by 100
	MaxDrawdown         int32  // basis points, negative = loss
	PortfolioVolatility uint32 // basis points
	StopLossLevel       int32  // basis points, negative = loss
}

// RiskEvaluation is one audit entry of the risk gate.
type RiskEvaluation struct {
	SignalID    uint64
	Metrics     RiskMetrics
	Approved    bool
	Failed      []string // names of failed criteria
	EvaluatedAt int64    // unix ms
	Evaluator   string   // risk agent identity
}
