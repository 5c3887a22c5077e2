package storage

import (
	"context"

	"treasury-vault/internal/domain"
)

// Counter names one of the vault's monotonic id counters.
type Counter string

// Counter constants. Each is its own key namespace.
const (
	CounterSignal   Counter = "signal"
	CounterTrade    Counter = "trade"
	CounterSnapshot Counter = "snapshot"
)

// Store is the persistent key/value capability the vault runs against.
//
// Key namespaces: Config, TradeCounter, SignalCounter, SnapshotCounter,
// Trade(id), Signal(id), Strategy(name), Snapshot(id), RiskMetrics, LatestSnapshot,
// Nonce(signer).
// Only point lookups by known id or name are supported; namespaces are never scanned.
type Store interface {
	// Update runs fn in a serialized read-write transaction.
	// Writes are committed only if fn returns nil; otherwise none are.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx ReadTx) error) error

	// Close releases the underlying resources.
	Close() error
}

// ReadTx provides point reads. Absent records return ErrNotFound,
// except Counter and Nonce which default to 0.
type ReadTx interface {
	// Config returns the vault configuration. Returns ErrNotFound before initialization.
	Config(ctx context.Context) (*domain.VaultConfig, error)

	// Counter returns the current value of a counter, 0 if never set.
	Counter(ctx context.Context, c Counter) (uint64, error)

	// Signal retrieves a pending signal by id.
	Signal(ctx context.Context, signalID uint64) (*domain.TradingSignal, error)

	// Trade retrieves a trade record by id.
	Trade(ctx context.Context, tradeID uint64) (*domain.TradeRecord, error)

	// Strategy retrieves the performance rollup of a strategy label.
	Strategy(ctx context.Context, name string) (*domain.StrategyPerformance, error)

	// Snapshot retrieves a portfolio snapshot by id.
	Snapshot(ctx context.Context, snapshotID uint64) (*domain.PortfolioSnapshot, error)

	// LatestSnapshot retrieves the snapshot stored in the latest slot.
	LatestSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error)

	// RiskMetrics retrieves the most recently evaluated risk metrics.
	RiskMetrics(ctx context.Context) (*domain.RiskMetrics, error)

	// Nonce returns the last invocation nonce accepted from signer, 0 if none.
	Nonce(ctx context.Context, signer string) (uint64, error)
}

// Tx extends ReadTx with writes. Writes are visible to later reads of the same Tx.
type Tx interface {
	ReadTx

	// PutConfig creates or replaces the vault configuration.
	PutConfig(ctx context.Context, cfg *domain.VaultConfig) error

	// SetCounter stores a counter value.
	SetCounter(ctx context.Context, c Counter, value uint64) error

	// PutSignal creates or replaces a signal.
	PutSignal(ctx context.Context, s *domain.TradingSignal) error

	// DeleteSignal removes a signal. Returns ErrNotFound if absent.
	DeleteSignal(ctx context.Context, signalID uint64) error

	// InsertTrade appends a trade record. Returns ErrDuplicateKey if trade_id exists.
	InsertTrade(ctx context.Context, t *domain.TradeRecord) error

	// PutStrategy creates or replaces a strategy rollup.
	PutStrategy(ctx context.Context, p *domain.StrategyPerformance) error

	// InsertSnapshot appends a snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	InsertSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error

	// PutLatestSnapshot replaces the latest snapshot slot.
	PutLatestSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error

	// PutRiskMetrics replaces the latest risk metrics.
	PutRiskMetrics(ctx context.Context, m *domain.RiskMetrics) error

	// SetNonce records the last invocation nonce accepted from signer.
	SetNonce(ctx context.Context, signer string, nonce uint64) error
}

// AuditSink is an append-only journal of vault decisions and outcomes.
// It is written after a transition commits and never read by the state machine.
type AuditSink interface {
	// RecordEvaluation appends a risk gate evaluation, approved or not.
	RecordEvaluation(ctx context.Context, e *domain.RiskEvaluation) error

	// RecordTrade appends an executed trade.
	RecordTrade(ctx context.Context, t *domain.TradeRecord) error

	// RecordSnapshot appends a portfolio snapshot.
	RecordSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error

	// EvaluationsBySignal retrieves all evaluations of a signal, ordered by time ASC.
	EvaluationsBySignal(ctx context.Context, signalID uint64) ([]*domain.RiskEvaluation, error)

	// TradesByStrategy retrieves all trades of a strategy, ordered by trade_id ASC.
	TradesByStrategy(ctx context.Context, strategy string) ([]*domain.TradeRecord, error)
}
