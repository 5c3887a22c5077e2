package memory

import (
	"context"
	"sync"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
// A single mutex serializes transactions; writes are staged per transaction
// and applied only when the transaction function succeeds.
type Store struct {
	mu   sync.Mutex
	data *state
}

// state holds committed records. Maps are keyed by the record id or name.
type state struct {
	config     *domain.VaultConfig
	counters   map[storage.Counter]uint64
	signals    map[uint64]*domain.TradingSignal
	trades     map[uint64]*domain.TradeRecord
	strategies map[string]*domain.StrategyPerformance
	snapshots  map[uint64]*domain.PortfolioSnapshot
	latest     *domain.PortfolioSnapshot
	risk       *domain.RiskMetrics
	nonces     map[string]uint64
}

func newState() *state {
	return &state{
		counters:   make(map[storage.Counter]uint64),
		signals:    make(map[uint64]*domain.TradingSignal),
		trades:     make(map[uint64]*domain.TradeRecord),
		strategies: make(map[string]*domain.StrategyPerformance),
		snapshots:  make(map[uint64]*domain.PortfolioSnapshot),
		nonces:     make(map[string]uint64),
	}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s.data, false)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx storage.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(newTx(s.data, true))
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
