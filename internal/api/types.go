package api

import (
	"strconv"

	"treasury-vault/internal/domain"
)

// Request bodies of the mutating endpoints. Args returns the canonical
// invocation arguments the caller signs, in a fixed order. Server and
// client build the signed digest from the same Args.

// InitializeRequest is the body of POST /initialize.
type InitializeRequest struct {
	Admin          string `json:"admin"`
	TradingAgent   string `json:"trading_agent"`
	RiskAgent      string `json:"risk_agent"`
	PaymentAgent   string `json:"payment_agent"`
	MaxSingleTrade int64  `json:"max_single_trade"`
}

func (r InitializeRequest) Args() []string {
	return []string{r.Admin, r.TradingAgent, r.RiskAgent, r.PaymentAgent, i64(r.MaxSingleTrade)}
}

// RiskLimitsRequest is the body of PUT /config/risk-limits.
type RiskLimitsRequest struct {
	MaxVaR95       int32 `json:"max_var_95"`
	MinSharpeRatio int32 `json:"min_sharpe_ratio"`
}

func (r RiskLimitsRequest) Args() []string {
	return []string{i32(r.MaxVaR95), i32(r.MinSharpeRatio)}
}

// TradingLimitRequest is the body of PUT /config/trading-limit.
type TradingLimitRequest struct {
	MaxSingleTrade int64 `json:"max_single_trade"`
}

func (r TradingLimitRequest) Args() []string {
	return []string{i64(r.MaxSingleTrade)}
}

// DynamicStopLossRequest is the body of PUT /config/dynamic-stop-loss.
type DynamicStopLossRequest struct {
	Enabled bool `json:"enabled"`
}

func (r DynamicStopLossRequest) Args() []string {
	return []string{strconv.FormatBool(r.Enabled)}
}

// RotateAgentRequest is the body of PUT /config/agents/:role.
type RotateAgentRequest struct {
	Role     domain.Role `json:"-"`
	Identity string      `json:"identity"`
}

func (r RotateAgentRequest) Args() []string {
	return []string{string(r.Role), r.Identity}
}

// SignalRequest is the body of POST /signals.
type SignalRequest struct {
	Asset          string        `json:"asset"`
	Action         domain.Action `json:"action"`
	Amount         int64         `json:"amount"`
	Strategy       string        `json:"strategy"`
	Confidence     uint32        `json:"confidence"`
	ExpectedReturn int32         `json:"expected_return"`
}

func (r SignalRequest) Args() []string {
	return []string{
		r.Asset,
		string(r.Action),
		i64(r.Amount),
		r.Strategy,
		strconv.FormatUint(uint64(r.Confidence), 10),
		i32(r.ExpectedReturn),
	}
}

// RiskMetricsBody carries risk metrics in requests and responses.
type RiskMetricsBody struct {
	VaR95               int32  `json:"var_95"`
	SharpeRatio         int32  `json:"sharpe_ratio"`
	MaxDrawdown         int32  `json:"max_drawdown"`
	PortfolioVolatility uint32 `json:"portfolio_volatility"`
	StopLossLevel       int32  `json:"stop_loss_level"`
}

func (m RiskMetricsBody) toDomain() domain.RiskMetrics {
	return domain.RiskMetrics{
		VaR95:               m.VaR95,
		SharpeRatio:         m.SharpeRatio,
		MaxDrawdown:         m.MaxDrawdown,
		PortfolioVolatility: m.PortfolioVolatility,
		StopLossLevel:       m.StopLossLevel,
	}
}

// ApproveRequest is the body of POST /signals/:id/approve.
type ApproveRequest struct {
	SignalID uint64          `json:"-"`
	Metrics  RiskMetricsBody `json:"metrics"`
}

func (r ApproveRequest) Args() []string {
	m := r.Metrics
	return []string{
		u64(r.SignalID),
		i32(m.VaR95),
		i32(m.SharpeRatio),
		i32(m.MaxDrawdown),
		strconv.FormatUint(uint64(m.PortfolioVolatility), 10),
		i32(m.StopLossLevel),
	}
}

// ExecuteRequest is the body of POST /signals/:id/execute.
type ExecuteRequest struct {
	SignalID      uint64 `json:"-"`
	ExecutedPrice int64  `json:"executed_price"`
	ProfitLoss    int64  `json:"profit_loss"`
}

func (r ExecuteRequest) Args() []string {
	return []string{u64(r.SignalID), i64(r.ExecutedPrice), i64(r.ProfitLoss)}
}

// SnapshotRequest is the body of POST /snapshots.
type SnapshotRequest struct {
	TotalValue       int64  `json:"total_value"`
	NumAssets        uint32 `json:"num_assets"`
	CumulativeReturn int32  `json:"cumulative_return"`
}

func (r SnapshotRequest) Args() []string {
	return []string{i64(r.TotalValue), strconv.FormatUint(uint64(r.NumAssets), 10), i32(r.CumulativeReturn)}
}

// noArgs is the request of operations without arguments (halt, resume).
type noArgs struct{}

func (noArgs) Args() []string { return nil }

// Responses

type SignalIDResponse struct {
	SignalID uint64 `json:"signal_id"`
}

type ApproveResponse struct {
	Approved bool `json:"approved"`
}

type TradeIDResponse struct {
	TradeID uint64 `json:"trade_id"`
}

type SnapshotIDResponse struct {
	SnapshotID uint64 `json:"snapshot_id"`
}

type StatusResponse struct {
	Operational bool   `json:"operational"`
	TotalTrades uint64 `json:"total_trades"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ConfigView renders the configuration. Fixed-point fields carry a
// human-readable companion.
type ConfigView struct {
	Admin           string `json:"admin"`
	TradingAgent    string `json:"trading_agent"`
	RiskAgent       string `json:"risk_agent"`
	PaymentAgent    string `json:"payment_agent"`
	MaxSingleTrade  int64  `json:"max_single_trade"`
	MaxVaR95        int32  `json:"max_var_95"`
	MaxVaR95Pct     string `json:"max_var_95_pct"`
	MinSharpeRatio  int32  `json:"min_sharpe_ratio"`
	MinSharpe       string `json:"min_sharpe"`
	DynamicStopLoss bool   `json:"dynamic_stop_loss"`
	Halted          bool   `json:"halted"`
	CreatedAt       int64  `json:"created_at"`
	Version         uint32 `json:"version"`
}

func newConfigView(c *domain.VaultConfig) ConfigView {
	return ConfigView{
		Admin:           c.Admin,
		TradingAgent:    c.TradingAgent,
		RiskAgent:       c.RiskAgent,
		PaymentAgent:    c.PaymentAgent,
		MaxSingleTrade:  c.MaxSingleTrade,
		MaxVaR95:        c.MaxVaR95,
		MaxVaR95Pct:     domain.FormatBps(c.MaxVaR95),
		MinSharpeRatio:  c.MinSharpeRatio,
		MinSharpe:       domain.FormatRatio(c.MinSharpeRatio),
		DynamicStopLoss: c.DynamicStopLoss,
		Halted:          c.Halted,
		CreatedAt:       c.CreatedAt,
		Version:         c.Version,
	}
}

type SignalView struct {
	SignalID       uint64 `json:"signal_id"`
	Asset          string `json:"asset"`
	Action         string `json:"action"`
	Amount         int64  `json:"amount"`
	Strategy       string `json:"strategy"`
	Confidence     uint32 `json:"confidence"`
	ExpectedReturn int32  `json:"expected_return"`
	CreatedAt      int64  `json:"created_at"`
	Status         string `json:"status"`
	EvaluatedAt    int64  `json:"evaluated_at,omitempty"`
}

func newSignalView(s *domain.TradingSignal) SignalView {
	return SignalView{
		SignalID:       s.SignalID,
		Asset:          s.Asset,
		Action:         string(s.Action),
		Amount:         s.Amount,
		Strategy:       s.Strategy,
		Confidence:     s.Confidence,
		ExpectedReturn: s.ExpectedReturn,
		CreatedAt:      s.CreatedAt,
		Status:         string(s.Status),
		EvaluatedAt:    s.EvaluatedAt,
	}
}

func newRiskMetricsBody(m *domain.RiskMetrics) RiskMetricsBody {
	return RiskMetricsBody{
		VaR95:               m.VaR95,
		SharpeRatio:         m.SharpeRatio,
		MaxDrawdown:         m.MaxDrawdown,
		PortfolioVolatility: m.PortfolioVolatility,
		StopLossLevel:       m.StopLossLevel,
	}
}

type EvaluationView struct {
	SignalID    uint64          `json:"signal_id"`
	Metrics     RiskMetricsBody `json:"metrics"`
	Approved    bool            `json:"approved"`
	Failed      []string        `json:"failed"`
	EvaluatedAt int64           `json:"evaluated_at"`
	Evaluator   string          `json:"evaluator"`
}

func newEvaluationView(e *domain.RiskEvaluation) EvaluationView {
	failed := e.Failed
	if failed == nil {
		failed = []string{}
	}
	return EvaluationView{
		SignalID:    e.SignalID,
		Metrics:     newRiskMetricsBody(&e.Metrics),
		Approved:    e.Approved,
		Failed:      failed,
		EvaluatedAt: e.EvaluatedAt,
		Evaluator:   e.Evaluator,
	}
}

type TradeView struct {
	TradeID       uint64 `json:"trade_id"`
	SignalID      uint64 `json:"signal_id"`
	Asset         string `json:"asset"`
	Action        string `json:"action"`
	Amount        int64  `json:"amount"`
	Strategy      string `json:"strategy"`
	ExecutedPrice int64  `json:"executed_price"`
	ExecutedAt    int64  `json:"executed_at"`
	ProfitLoss    int64  `json:"profit_loss"`
}

func newTradeView(t *domain.TradeRecord) TradeView {
	return TradeView{
		TradeID:       t.TradeID,
		SignalID:      t.SignalID,
		Asset:         t.Asset,
		Action:        string(t.Action),
		Amount:        t.Amount,
		Strategy:      t.Strategy,
		ExecutedPrice: t.ExecutedPrice,
		ExecutedAt:    t.ExecutedAt,
		ProfitLoss:    t.ProfitLoss,
	}
}

type StrategyView struct {
	Strategy          string  `json:"strategy"`
	TotalTrades       uint64  `json:"total_trades"`
	WinningTrades     uint64  `json:"winning_trades"`
	TotalProfit       int64   `json:"total_profit"`
	AvgReturn         int64   `json:"avg_return"`
	ExpectedReturnSum int64   `json:"expected_return_sum"`
	WinRate           float64 `json:"win_rate"`
	LastUpdated       int64   `json:"last_updated"`
}

func newStrategyView(p *domain.StrategyPerformance) StrategyView {
	return StrategyView{
		Strategy:          p.Strategy,
		TotalTrades:       p.TotalTrades,
		WinningTrades:     p.WinningTrades,
		TotalProfit:       p.TotalProfit,
		AvgReturn:         p.AvgReturn,
		ExpectedReturnSum: p.ExpectedReturnSum,
		WinRate:           p.WinRate(),
		LastUpdated:       p.LastUpdated,
	}
}

type SnapshotView struct {
	SnapshotID          uint64 `json:"snapshot_id"`
	Timestamp           int64  `json:"timestamp"`
	TotalValue          int64  `json:"total_value"`
	NumAssets           uint32 `json:"num_assets"`
	TotalTrades         uint64 `json:"total_trades"`
	CumulativeReturn    int32  `json:"cumulative_return"`
	CumulativeReturnPct string `json:"cumulative_return_pct"`
}

func newSnapshotView(s *domain.PortfolioSnapshot) SnapshotView {
	return SnapshotView{
		SnapshotID:          s.SnapshotID,
		Timestamp:           s.Timestamp,
		TotalValue:          s.TotalValue,
		NumAssets:           s.NumAssets,
		TotalTrades:         s.TotalTrades,
		CumulativeReturn:    s.CumulativeReturn,
		CumulativeReturnPct: domain.FormatBps(s.CumulativeReturn),
	}
}

func i32(v int32) string  { return strconv.FormatInt(int64(v), 10) }
func i64(v int64) string  { return strconv.FormatInt(v, 10) }
func u64(v uint64) string { return strconv.FormatUint(v, 10) }
