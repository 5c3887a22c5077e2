package domain

// TradeRecord is the immutable audit entry of an executed trade.
type TradeRecord struct {
	TradeID  uint64
	SignalID uint64 // weak reference, the signal is consumed on execution

	Asset    string
	Action   Action
	Amount   int64
	Strategy string

	ExecutedPrice int64 // quote units, scaled by the asset's precision
	ExecutedAt    int64 // unix ms
	ProfitLoss    int64 // realized, settlement currency units
}

// IsWin reports whether the trade realized a strictly positive profit.
func (t *TradeRecord) IsWin() bool {
	return t.ProfitLoss > 0
}
