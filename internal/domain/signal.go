package domain

// Action is the direction of a proposed trade.
type Action string

// Action constants
const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionBuy, ActionSell, ActionHold:
		return Action(s), true
	}
	return "", false
}

// SignalStatus tracks a pending signal through the risk gate.
type SignalStatus string

// Signal status constants
const (
	SignalPending  SignalStatus = "PENDING"
	SignalApproved SignalStatus = "APPROVED"
	SignalRejected SignalStatus = "REJECTED"
)

// MaxConfidence is the upper bound of TradingSignal.Confidence.
const MaxConfidence uint32 = 100

// TradingSignal is a proposed trade awaiting risk evaluation and execution.
// Removed from storage once executed.
type TradingSignal struct {
	SignalID       uint64
	Asset          string
	Action         Action
	Amount         int64
	Strategy       string // "LSTM", "DQN", "MACD", ...
	Confidence     uint32 // 0-100
	ExpectedReturn int32  // basis points
	CreatedAt      int64  // unix ms

	Status      SignalStatus
	EvaluatedAt int64 // unix ms of the last risk evaluation, 0 if none
}
