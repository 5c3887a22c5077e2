package memory

import (
	"context"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/storage"
)

// tx stages writes on top of the committed state.
// Reads consult staged writes first, then committed data.
type tx struct {
	base     *state
	readOnly bool

	config     *domain.VaultConfig
	counters   map[storage.Counter]uint64
	signals    map[uint64]*domain.TradingSignal
	deleted    map[uint64]struct{} // signal deletions
	trades     map[uint64]*domain.TradeRecord
	strategies map[string]*domain.StrategyPerformance
	snapshots  map[uint64]*domain.PortfolioSnapshot
	latest     *domain.PortfolioSnapshot
	risk       *domain.RiskMetrics
	nonces     map[string]uint64
}

func newTx(base *state, readOnly bool) *tx {
	return &tx{
		base:       base,
		readOnly:   readOnly,
		counters:   make(map[storage.Counter]uint64),
		signals:    make(map[uint64]*domain.TradingSignal),
		deleted:    make(map[uint64]struct{}),
		trades:     make(map[uint64]*domain.TradeRecord),
		strategies: make(map[string]*domain.StrategyPerformance),
		snapshots:  make(map[uint64]*domain.PortfolioSnapshot),
		nonces:     make(map[string]uint64),
	}
}

// commit applies staged writes to the committed state.
func (t *tx) commit() {
	if t.config != nil {
		t.base.config = t.config
	}
	for c, v := range t.counters {
		t.base.counters[c] = v
	}
	for id := range t.deleted {
		delete(t.base.signals, id)
	}
	for id, s := range t.signals {
		t.base.signals[id] = s
	}
	for id, tr := range t.trades {
		t.base.trades[id] = tr
	}
	for name, p := range t.strategies {
		t.base.strategies[name] = p
	}
	for id, s := range t.snapshots {
		t.base.snapshots[id] = s
	}
	if t.latest != nil {
		t.base.latest = t.latest
	}
	if t.risk != nil {
		t.base.risk = t.risk
	}
	for signer, n := range t.nonces {
		t.base.nonces[signer] = n
	}
}

func (t *tx) Config(_ context.Context) (*domain.VaultConfig, error) {
	cfg := t.config
	if cfg == nil {
		cfg = t.base.config
	}
	if cfg == nil {
		return nil, storage.ErrNotFound
	}
	cfgCopy := *cfg
	return &cfgCopy, nil
}

func (t *tx) Counter(_ context.Context, c storage.Counter) (uint64, error) {
	if v, ok := t.counters[c]; ok {
		return v, nil
	}
	return t.base.counters[c], nil
}

func (t *tx) Signal(_ context.Context, signalID uint64) (*domain.TradingSignal, error) {
	s, ok := t.signals[signalID]
	if !ok {
		if _, gone := t.deleted[signalID]; gone {
			return nil, storage.ErrNotFound
		}
		s, ok = t.base.signals[signalID]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	sigCopy := *s
	return &sigCopy, nil
}

func (t *tx) Trade(_ context.Context, tradeID uint64) (*domain.TradeRecord, error) {
	tr, ok := t.trades[tradeID]
	if !ok {
		tr, ok = t.base.trades[tradeID]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	trCopy := *tr
	return &trCopy, nil
}

func (t *tx) Strategy(_ context.Context, name string) (*domain.StrategyPerformance, error) {
	p, ok := t.strategies[name]
	if !ok {
		p, ok = t.base.strategies[name]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	pCopy := *p
	return &pCopy, nil
}

func (t *tx) Snapshot(_ context.Context, snapshotID uint64) (*domain.PortfolioSnapshot, error) {
	s, ok := t.snapshots[snapshotID]
	if !ok {
		s, ok = t.base.snapshots[snapshotID]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	snapCopy := *s
	return &snapCopy, nil
}

func (t *tx) LatestSnapshot(_ context.Context) (*domain.PortfolioSnapshot, error) {
	s := t.latest
	if s == nil {
		s = t.base.latest
	}
	if s == nil {
		return nil, storage.ErrNotFound
	}
	snapCopy := *s
	return &snapCopy, nil
}

func (t *tx) RiskMetrics(_ context.Context) (*domain.RiskMetrics, error) {
	m := t.risk
	if m == nil {
		m = t.base.risk
	}
	if m == nil {
		return nil, storage.ErrNotFound
	}
	mCopy := *m
	return &mCopy, nil
}

func (t *tx) Nonce(_ context.Context, signer string) (uint64, error) {
	if n, ok := t.nonces[signer]; ok {
		return n, nil
	}
	return t.base.nonces[signer], nil
}

func (t *tx) PutConfig(_ context.Context, cfg *domain.VaultConfig) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if cfg == nil {
		return storage.ErrInvalidInput
	}
	cfgCopy := *cfg
	t.config = &cfgCopy
	return nil
}

func (t *tx) SetCounter(_ context.Context, c storage.Counter, value uint64) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if c == "" {
		return storage.ErrInvalidInput
	}
	t.counters[c] = value
	return nil
}

func (t *tx) PutSignal(_ context.Context, s *domain.TradingSignal) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if s == nil || s.SignalID == 0 {
		return storage.ErrInvalidInput
	}
	sigCopy := *s
	t.signals[s.SignalID] = &sigCopy
	delete(t.deleted, s.SignalID)
	return nil
}

func (t *tx) DeleteSignal(ctx context.Context, signalID uint64) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if _, err := t.Signal(ctx, signalID); err != nil {
		return err
	}
	delete(t.signals, signalID)
	t.deleted[signalID] = struct{}{}
	return nil
}

func (t *tx) InsertTrade(_ context.Context, tr *domain.TradeRecord) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if tr == nil || tr.TradeID == 0 {
		return storage.ErrInvalidInput
	}
	if _, exists := t.trades[tr.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := t.base.trades[tr.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	trCopy := *tr
	t.trades[tr.TradeID] = &trCopy
	return nil
}

func (t *tx) PutStrategy(_ context.Context, p *domain.StrategyPerformance) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if p == nil || p.Strategy == "" {
		return storage.ErrInvalidInput
	}
	pCopy := *p
	t.strategies[p.Strategy] = &pCopy
	return nil
}

func (t *tx) InsertSnapshot(_ context.Context, s *domain.PortfolioSnapshot) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if s == nil || s.SnapshotID == 0 {
		return storage.ErrInvalidInput
	}
	if _, exists := t.snapshots[s.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := t.base.snapshots[s.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}
	snapCopy := *s
	t.snapshots[s.SnapshotID] = &snapCopy
	return nil
}

func (t *tx) PutLatestSnapshot(_ context.Context, s *domain.PortfolioSnapshot) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if s == nil {
		return storage.ErrInvalidInput
	}
	snapCopy := *s
	t.latest = &snapCopy
	return nil
}

func (t *tx) PutRiskMetrics(_ context.Context, m *domain.RiskMetrics) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if m == nil {
		return storage.ErrInvalidInput
	}
	mCopy := *m
	t.risk = &mCopy
	return nil
}

func (t *tx) SetNonce(_ context.Context, signer string, nonce uint64) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if signer == "" {
		return storage.ErrInvalidInput
	}
	t.nonces[signer] = nonce
	return nil
}

var _ storage.Tx = (*tx)(nil)
