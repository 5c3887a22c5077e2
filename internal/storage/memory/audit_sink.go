package memory

import (
	"context"
	"sort"
	"sync"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/storage"
)

// AuditSink is an in-memory implementation of storage.AuditSink.
type AuditSink struct {
	mu          sync.RWMutex
	evaluations []*domain.RiskEvaluation
	trades      map[uint64]*domain.TradeRecord
	snapshots   map[uint64]*domain.PortfolioSnapshot
}

// NewAuditSink creates a new in-memory audit sink.
func NewAuditSink() *AuditSink {
	return &AuditSink{
		trades:    make(map[uint64]*domain.TradeRecord),
		snapshots: make(map[uint64]*domain.PortfolioSnapshot),
	}
}

// RecordEvaluation appends a risk evaluation.
func (s *AuditSink) RecordEvaluation(_ context.Context, e *domain.RiskEvaluation) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evalCopy := *e
	evalCopy.Failed = append([]string(nil), e.Failed...)
	s.evaluations = append(s.evaluations, &evalCopy)
	return nil
}

// RecordTrade appends a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *AuditSink) RecordTrade(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	tradeCopy := *t
	s.trades[t.TradeID] = &tradeCopy
	return nil
}

// RecordSnapshot appends a snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *AuditSink) RecordSnapshot(_ context.Context, snap *domain.PortfolioSnapshot) error {
	if snap == nil || snap.SnapshotID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshots[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}
	snapCopy := *snap
	s.snapshots[snap.SnapshotID] = &snapCopy
	return nil
}

// EvaluationsBySignal retrieves all evaluations of a signal, ordered by evaluated_at ASC.
func (s *AuditSink) EvaluationsBySignal(_ context.Context, signalID uint64) ([]*domain.RiskEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskEvaluation
	for _, e := range s.evaluations {
		if e.SignalID == signalID {
			evalCopy := *e
			result = append(result, &evalCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EvaluatedAt < result[j].EvaluatedAt
	})

	return result, nil
}

// TradesByStrategy retrieves all trades of a strategy, ordered by trade_id ASC.
func (s *AuditSink) TradesByStrategy(_ context.Context, strategy string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.trades {
		if t.Strategy == strategy {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeID < result[j].TradeID
	})

	return result, nil
}

var _ storage.AuditSink = (*AuditSink)(nil)
