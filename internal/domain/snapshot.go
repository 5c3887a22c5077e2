package domain

// PortfolioSnapshot is an append-only point-in-time portfolio summary.
type PortfolioSnapshot struct {
	SnapshotID       uint64
	Timestamp        int64 // unix ms
	TotalValue       int64 // settlement currency units
	NumAssets        uint32
	TotalTrades      uint64 // copy of the trade counter at snapshot time
	CumulativeReturn int32  // basis points since inception
}
