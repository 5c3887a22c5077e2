package vault

import (
	"context"
	"errors"
	"fmt"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/storage"
)

// Read accessors need no authorization and have no side effects.
// Aggregates (risk metrics, strategy performance, latest snapshot) return a
// zero value when absent; individual records return ErrNotFound.

// GetConfig returns the vault configuration, or ErrNotInitialized.
func (v *Vault) GetConfig(ctx context.Context) (*domain.VaultConfig, error) {
	var cfg *domain.VaultConfig
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		cfg, err = loadConfig(ctx, tx)
		return err
	})
	return cfg, err
}

// IsOperational reports whether the vault is initialized and not halted.
func (v *Vault) IsOperational(ctx context.Context) (bool, error) {
	cfg, err := v.GetConfig(ctx)
	if errors.Is(err, ErrNotInitialized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !cfg.Halted, nil
}

// GetSignal returns a signal that has not been executed yet.
func (v *Vault) GetSignal(ctx context.Context, signalID uint64) (*domain.TradingSignal, error) {
	var signal *domain.TradingSignal
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		signal, err = tx.Signal(ctx, signalID)
		if err != nil {
			return fmt.Errorf("signal %d: %w", signalID, err)
		}
		return nil
	})
	return signal, err
}

// GetRiskMetrics returns the metrics of the most recent risk evaluation.
func (v *Vault) GetRiskMetrics(ctx context.Context) (*domain.RiskMetrics, error) {
	metrics := &domain.RiskMetrics{}
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		m, err := tx.RiskMetrics(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		metrics = m
		return nil
	})
	return metrics, err
}

// GetTrade returns an executed trade.
func (v *Vault) GetTrade(ctx context.Context, tradeID uint64) (*domain.TradeRecord, error) {
	var trade *domain.TradeRecord
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		trade, err = tx.Trade(ctx, tradeID)
		if err != nil {
			return fmt.Errorf("trade %d: %w", tradeID, err)
		}
		return nil
	})
	return trade, err
}

// GetStrategyPerformance returns the rollup of a strategy.
func (v *Vault) GetStrategyPerformance(ctx context.Context, strategy string) (*domain.StrategyPerformance, error) {
	perf := &domain.StrategyPerformance{Strategy: strategy}
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		p, err := tx.Strategy(ctx, strategy)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		perf = p
		return nil
	})
	return perf, err
}

// GetSnapshot returns a portfolio snapshot by id.
func (v *Vault) GetSnapshot(ctx context.Context, snapshotID uint64) (*domain.PortfolioSnapshot, error) {
	var snap *domain.PortfolioSnapshot
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		snap, err = tx.Snapshot(ctx, snapshotID)
		if err != nil {
			return fmt.Errorf("snapshot %d: %w", snapshotID, err)
		}
		return nil
	})
	return snap, err
}

// GetLatestSnapshot returns the most recent portfolio snapshot.
func (v *Vault) GetLatestSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	snap := &domain.PortfolioSnapshot{}
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		s, err := tx.LatestSnapshot(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	return snap, err
}

// GetTotalTrades returns the number of executed trades.
func (v *Vault) GetTotalTrades(ctx context.Context) (uint64, error) {
	var n uint64
	err := v.store.View(ctx, func(tx storage.ReadTx) error {
		var err error
		n, err = tx.Counter(ctx, storage.CounterTrade)
		return err
	})
	return n, err
}

// RiskEvaluations returns the audited risk evaluations of a signal, oldest first.
func (v *Vault) RiskEvaluations(ctx context.Context, signalID uint64) ([]*domain.RiskEvaluation, error) {
	if v.audit == nil {
		return nil, ErrAuditDisabled
	}
	return v.audit.EvaluationsBySignal(ctx, signalID)
}

// StrategyTrades returns the audited trades of a strategy, by trade id.
func (v *Vault) StrategyTrades(ctx context.Context, strategy string) ([]*domain.TradeRecord, error) {
	if v.audit == nil {
		return nil, ErrAuditDisabled
	}
	return v.audit.TradesByStrategy(ctx, strategy)
}
