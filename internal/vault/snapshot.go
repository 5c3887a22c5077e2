package vault

import (
	"context"
	"fmt"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/observability"
	"treasury-vault/internal/storage"
)

// CreateSnapshot records the portfolio state and returns the snapshot id.
// Trading agent only; allowed while halted. The snapshot carries the
// current trade count and also becomes the latest snapshot.
func (v *Vault) CreateSnapshot(ctx context.Context, totalValue int64, numAssets uint32, cumulativeReturn int32) (uint64, error) {
	var snap *domain.PortfolioSnapshot

	err := v.transition(ctx, OpCreateSnapshot, func(tx storage.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := v.authorize(ctx, tx, cfg, domain.RoleTrading); err != nil {
			return err
		}

		totalTrades, err := tx.Counter(ctx, storage.CounterTrade)
		if err != nil {
			return fmt.Errorf("read trade counter: %w", err)
		}
		id, err := nextID(ctx, tx, storage.CounterSnapshot)
		if err != nil {
			return err
		}

		s := &domain.PortfolioSnapshot{
			SnapshotID:       id,
			Timestamp:        v.clock.Now(),
			TotalValue:       totalValue,
			NumAssets:        numAssets,
			TotalTrades:      totalTrades,
			CumulativeReturn: cumulativeReturn,
		}
		if err := tx.InsertSnapshot(ctx, s); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
		if err := tx.PutLatestSnapshot(ctx, s); err != nil {
			return fmt.Errorf("store latest snapshot: %w", err)
		}

		snap = s
		return nil
	})
	if err != nil {
		return 0, err
	}

	observability.RecordSnapshotCreated()
	if v.audit != nil {
		if err := v.audit.RecordSnapshot(ctx, snap); err != nil {
			observability.RecordAuditError("snapshot")
			v.logger.Printf("Audit of snapshot %d failed: %v", snap.SnapshotID, err)
		}
	}
	return snap.SnapshotID, nil
}
