package clickhouse

import (
	"context"
	"fmt"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/storage"
)

// AuditSink implements storage.AuditSink using ClickHouse.
// Tables are append-only; trade and snapshot ids are checked before insert
// because MergeTree engines do not enforce uniqueness.
type AuditSink struct {
	conn *Conn
}

// NewAuditSink creates a new AuditSink.
func NewAuditSink(conn *Conn) *AuditSink {
	return &AuditSink{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditSink = (*AuditSink)(nil)

// RecordEvaluation appends a risk evaluation.
func (s *AuditSink) RecordEvaluation(ctx context.Context, e *domain.RiskEvaluation) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO risk_evaluations (
			signal_id, var_95, sharpe_ratio, max_drawdown, portfolio_volatility, stop_loss_level,
			approved, failed, evaluated_at, evaluator
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	failed := e.Failed
	if failed == nil {
		failed = []string{}
	}

	err := s.conn.Exec(ctx, query,
		e.SignalID, e.Metrics.VaR95, e.Metrics.SharpeRatio, e.Metrics.MaxDrawdown,
		e.Metrics.PortfolioVolatility, e.Metrics.StopLossLevel,
		boolToUInt8(e.Approved), failed, e.EvaluatedAt, e.Evaluator,
	)
	if err != nil {
		return fmt.Errorf("insert risk evaluation: %w", err)
	}
	return nil
}

// RecordTrade appends a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *AuditSink) RecordTrade(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == 0 {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, "trade_audit", "trade_id", t.TradeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO trade_audit (
			trade_id, signal_id, asset, action, amount, strategy,
			executed_price, executed_at, profit_loss
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		t.TradeID, t.SignalID, t.Asset, string(t.Action), t.Amount, t.Strategy,
		t.ExecutedPrice, t.ExecutedAt, t.ProfitLoss,
	)
	if err != nil {
		return fmt.Errorf("insert trade audit: %w", err)
	}
	return nil
}

// RecordSnapshot appends a snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *AuditSink) RecordSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	if snap == nil || snap.SnapshotID == 0 {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, "snapshot_audit", "snapshot_id", snap.SnapshotID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO snapshot_audit (
			snapshot_id, ts, total_value, num_assets, total_trades, cumulative_return
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		snap.SnapshotID, snap.Timestamp, snap.TotalValue, snap.NumAssets, snap.TotalTrades, snap.CumulativeReturn,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot audit: %w", err)
	}
	return nil
}

// EvaluationsBySignal retrieves all evaluations of a signal, ordered by evaluated_at ASC.
func (s *AuditSink) EvaluationsBySignal(ctx context.Context, signalID uint64) ([]*domain.RiskEvaluation, error) {
	query := `
		SELECT
			signal_id, var_95, sharpe_ratio, max_drawdown, portfolio_volatility, stop_loss_level,
			approved, failed, evaluated_at, evaluator
		FROM risk_evaluations
		WHERE signal_id = ?
		ORDER BY evaluated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, signalID)
	if err != nil {
		return nil, fmt.Errorf("query risk evaluations: %w", err)
	}
	defer rows.Close()

	var result []*domain.RiskEvaluation
	for rows.Next() {
		var (
			e        domain.RiskEvaluation
			approved uint8
		)
		err := rows.Scan(
			&e.SignalID, &e.Metrics.VaR95, &e.Metrics.SharpeRatio, &e.Metrics.MaxDrawdown,
			&e.Metrics.PortfolioVolatility, &e.Metrics.StopLossLevel,
			&approved, &e.Failed, &e.EvaluatedAt, &e.Evaluator,
		)
		if err != nil {
			return nil, fmt.Errorf("scan risk evaluation: %w", err)
		}
		e.Approved = approved == 1
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk evaluations: %w", err)
	}
	return result, nil
}

// TradesByStrategy retrieves all trades of a strategy, ordered by trade_id ASC.
func (s *AuditSink) TradesByStrategy(ctx context.Context, strategy string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT
			trade_id, signal_id, asset, action, amount, strategy,
			executed_price, executed_at, profit_loss
		FROM trade_audit FINAL
		WHERE strategy = ?
		ORDER BY trade_id ASC
	`

	rows, err := s.conn.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("query trade audit: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeRecord
	for rows.Next() {
		var (
			t      domain.TradeRecord
			action string
		)
		err := rows.Scan(
			&t.TradeID, &t.SignalID, &t.Asset, &action, &t.Amount, &t.Strategy,
			&t.ExecutedPrice, &t.ExecutedAt, &t.ProfitLoss,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade audit: %w", err)
		}
		t.Action = domain.Action(action)
		result = append(result, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade audit: %w", err)
	}
	return result, nil
}

// exists checks whether a row with the given id is present in table.
// table and column are package constants, never user input.
func (s *AuditSink) exists(ctx context.Context, table, column string, id uint64) (bool, error) {
	query := fmt.Sprintf(`SELECT count() FROM %s WHERE %s = ?`, table, column)

	var count uint64
	if err := s.conn.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
