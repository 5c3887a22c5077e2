package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/storage"
)

// pgTx implements storage.Tx on top of a pgx transaction.
// Unsigned ids are stored as BIGINT; values above math.MaxInt64 are never produced by the vault.
type pgTx struct {
	tx       pgx.Tx
	readOnly bool
}

var _ storage.Tx = (*pgTx)(nil)

func (t *pgTx) Config(ctx context.Context) (*domain.VaultConfig, error) {
	query := `
		SELECT
			admin, trading_agent, risk_agent, payment_agent,
			max_single_trade, max_var_95, min_sharpe_ratio, dynamic_stop_loss,
			halted, created_at, version
		FROM vault_config
		WHERE slot = 1
	`

	var (
		c       domain.VaultConfig
		version int32
	)
	err := t.tx.QueryRow(ctx, query).Scan(
		&c.Admin, &c.TradingAgent, &c.RiskAgent, &c.PaymentAgent,
		&c.MaxSingleTrade, &c.MaxVaR95, &c.MinSharpeRatio, &c.DynamicStopLoss,
		&c.Halted, &c.CreatedAt, &version,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vault config: %w", err)
	}
	c.Version = uint32(version)
	return &c, nil
}

func (t *pgTx) Counter(ctx context.Context, c storage.Counter) (uint64, error) {
	var v int64
	err := t.tx.QueryRow(ctx, `SELECT value FROM vault_counters WHERE name = $1`, string(c)).Scan(&v)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get counter %s: %w", c, err)
	}
	return uint64(v), nil
}

func (t *pgTx) Nonce(ctx context.Context, signer string) (uint64, error) {
	var v int64
	err := t.tx.QueryRow(ctx, `SELECT nonce FROM invocation_nonces WHERE signer = $1`, signer).Scan(&v)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get nonce %s: %w", signer, err)
	}
	return uint64(v), nil
}

func (t *pgTx) Signal(ctx context.Context, signalID uint64) (*domain.TradingSignal, error) {
	query := `
		SELECT
			signal_id, asset, action, amount, strategy,
			confidence, expected_return, created_at, status, evaluated_at
		FROM trading_signals
		WHERE signal_id = $1
	`

	var (
		s          domain.TradingSignal
		id         int64
		action     string
		confidence int32
		status     string
	)
	err := t.tx.QueryRow(ctx, query, int64(signalID)).Scan(
		&id, &s.Asset, &action, &s.Amount, &s.Strategy,
		&confidence, &s.ExpectedReturn, &s.CreatedAt, &status, &s.EvaluatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	s.SignalID = uint64(id)
	s.Action = domain.Action(action)
	s.Confidence = uint32(confidence)
	s.Status = domain.SignalStatus(status)
	return &s, nil
}

func (t *pgTx) Trade(ctx context.Context, tradeID uint64) (*domain.TradeRecord, error) {
	query := `
		SELECT
			trade_id, signal_id, asset, action, amount, strategy,
			executed_price, executed_at, profit_loss
		FROM vault_trade_records
		WHERE trade_id = $1
	`

	row := t.tx.QueryRow(ctx, query, int64(tradeID))
	tr, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return tr, nil
}

func (t *pgTx) Strategy(ctx context.Context, name string) (*domain.StrategyPerformance, error) {
	query := `
		SELECT
			strategy, total_trades, winning_trades, total_profit,
			avg_return, expected_return_sum, last_updated
		FROM strategy_performance
		WHERE strategy = $1
	`

	var (
		p           domain.StrategyPerformance
		total, wins int64
	)
	err := t.tx.QueryRow(ctx, query, name).Scan(
		&p.Strategy, &total, &wins, &p.TotalProfit,
		&p.AvgReturn, &p.ExpectedReturnSum, &p.LastUpdated,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy performance: %w", err)
	}
	p.TotalTrades = uint64(total)
	p.WinningTrades = uint64(wins)
	return &p, nil
}

func (t *pgTx) Snapshot(ctx context.Context, snapshotID uint64) (*domain.PortfolioSnapshot, error) {
	query := `
		SELECT snapshot_id, ts, total_value, num_assets, total_trades, cumulative_return
		FROM portfolio_snapshots
		WHERE snapshot_id = $1
	`

	s, err := scanSnapshot(t.tx.QueryRow(ctx, query, int64(snapshotID)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return s, nil
}

func (t *pgTx) LatestSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	query := `
		SELECT snapshot_id, ts, total_value, num_assets, total_trades, cumulative_return
		FROM latest_snapshot
		WHERE slot = 1
	`

	s, err := scanSnapshot(t.tx.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return s, nil
}

func (t *pgTx) RiskMetrics(ctx context.Context) (*domain.RiskMetrics, error) {
	query := `
		SELECT var_95, sharpe_ratio, max_drawdown, portfolio_volatility, stop_loss_level
		FROM risk_metrics
		WHERE slot = 1
	`

	var (
		m   domain.RiskMetrics
		vol int64
	)
	err := t.tx.QueryRow(ctx, query).Scan(&m.VaR95, &m.SharpeRatio, &m.MaxDrawdown, &vol, &m.StopLossLevel)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get risk metrics: %w", err)
	}
	m.PortfolioVolatility = uint32(vol)
	return &m, nil
}

func (t *pgTx) PutConfig(ctx context.Context, c *domain.VaultConfig) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if c == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vault_config (
			slot, admin, trading_agent, risk_agent, payment_agent,
			max_single_trade, max_var_95, min_sharpe_ratio, dynamic_stop_loss,
			halted, created_at, version
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (slot) DO UPDATE SET
			admin = EXCLUDED.admin,
			trading_agent = EXCLUDED.trading_agent,
			risk_agent = EXCLUDED.risk_agent,
			payment_agent = EXCLUDED.payment_agent,
			max_single_trade = EXCLUDED.max_single_trade,
			max_var_95 = EXCLUDED.max_var_95,
			min_sharpe_ratio = EXCLUDED.min_sharpe_ratio,
			dynamic_stop_loss = EXCLUDED.dynamic_stop_loss,
			halted = EXCLUDED.halted,
			created_at = EXCLUDED.created_at,
			version = EXCLUDED.version
	`

	_, err := t.tx.Exec(ctx, query,
		c.Admin, c.TradingAgent, c.RiskAgent, c.PaymentAgent,
		c.MaxSingleTrade, c.MaxVaR95, c.MinSharpeRatio, c.DynamicStopLoss,
		c.Halted, c.CreatedAt, int32(c.Version),
	)
	if err != nil {
		return fmt.Errorf("put vault config: %w", err)
	}
	return nil
}

func (t *pgTx) SetCounter(ctx context.Context, c storage.Counter, value uint64) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if c == "" {
		return storage.ErrInvalidInput
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO vault_counters (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`, string(c), int64(value))
	if err != nil {
		return fmt.Errorf("set counter %s: %w", c, err)
	}
	return nil
}

// SetNonce stores the nonce bit-for-bit in a BIGINT so the full uint64 range round-trips.
func (t *pgTx) SetNonce(ctx context.Context, signer string, nonce uint64) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if signer == "" {
		return storage.ErrInvalidInput
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO invocation_nonces (signer, nonce)
		VALUES ($1, $2)
		ON CONFLICT (signer) DO UPDATE SET nonce = EXCLUDED.nonce
	`, signer, int64(nonce))
	if err != nil {
		return fmt.Errorf("set nonce %s: %w", signer, err)
	}
	return nil
}

func (t *pgTx) PutSignal(ctx context.Context, s *domain.TradingSignal) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if s == nil || s.SignalID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trading_signals (
			signal_id, asset, action, amount, strategy,
			confidence, expected_return, created_at, status, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (signal_id) DO UPDATE SET
			asset = EXCLUDED.asset,
			action = EXCLUDED.action,
			amount = EXCLUDED.amount,
			strategy = EXCLUDED.strategy,
			confidence = EXCLUDED.confidence,
			expected_return = EXCLUDED.expected_return,
			created_at = EXCLUDED.created_at,
			status = EXCLUDED.status,
			evaluated_at = EXCLUDED.evaluated_at
	`

	_, err := t.tx.Exec(ctx, query,
		int64(s.SignalID), s.Asset, string(s.Action), s.Amount, s.Strategy,
		int32(s.Confidence), s.ExpectedReturn, s.CreatedAt, string(s.Status), s.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("put signal: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteSignal(ctx context.Context, signalID uint64) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}

	tag, err := t.tx.Exec(ctx, `DELETE FROM trading_signals WHERE signal_id = $1`, int64(signalID))
	if err != nil {
		return fmt.Errorf("delete signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertTrade(ctx context.Context, tr *domain.TradeRecord) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if tr == nil || tr.TradeID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vault_trade_records (
			trade_id, signal_id, asset, action, amount, strategy,
			executed_price, executed_at, profit_loss
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := t.tx.Exec(ctx, query,
		int64(tr.TradeID), int64(tr.SignalID), tr.Asset, string(tr.Action), tr.Amount, tr.Strategy,
		tr.ExecutedPrice, tr.ExecutedAt, tr.ProfitLoss,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

func (t *pgTx) PutStrategy(ctx context.Context, p *domain.StrategyPerformance) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if p == nil || p.Strategy == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO strategy_performance (
			strategy, total_trades, winning_trades, total_profit,
			avg_return, expected_return_sum, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (strategy) DO UPDATE SET
			total_trades = EXCLUDED.total_trades,
			winning_trades = EXCLUDED.winning_trades,
			total_profit = EXCLUDED.total_profit,
			avg_return = EXCLUDED.avg_return,
			expected_return_sum = EXCLUDED.expected_return_sum,
			last_updated = EXCLUDED.last_updated
	`

	_, err := t.tx.Exec(ctx, query,
		p.Strategy, int64(p.TotalTrades), int64(p.WinningTrades), p.TotalProfit,
		p.AvgReturn, p.ExpectedReturnSum, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("put strategy performance: %w", err)
	}
	return nil
}

func (t *pgTx) InsertSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if s == nil || s.SnapshotID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO portfolio_snapshots (
			snapshot_id, ts, total_value, num_assets, total_trades, cumulative_return
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := t.tx.Exec(ctx, query,
		int64(s.SnapshotID), s.Timestamp, s.TotalValue, int32(s.NumAssets), int64(s.TotalTrades), s.CumulativeReturn,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (t *pgTx) PutLatestSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if s == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO latest_snapshot (
			slot, snapshot_id, ts, total_value, num_assets, total_trades, cumulative_return
		) VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (slot) DO UPDATE SET
			snapshot_id = EXCLUDED.snapshot_id,
			ts = EXCLUDED.ts,
			total_value = EXCLUDED.total_value,
			num_assets = EXCLUDED.num_assets,
			total_trades = EXCLUDED.total_trades,
			cumulative_return = EXCLUDED.cumulative_return
	`

	_, err := t.tx.Exec(ctx, query,
		int64(s.SnapshotID), s.Timestamp, s.TotalValue, int32(s.NumAssets), int64(s.TotalTrades), s.CumulativeReturn,
	)
	if err != nil {
		return fmt.Errorf("put latest snapshot: %w", err)
	}
	return nil
}

func (t *pgTx) PutRiskMetrics(ctx context.Context, m *domain.RiskMetrics) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	if m == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO risk_metrics (
			slot, var_95, sharpe_ratio, max_drawdown, portfolio_volatility, stop_loss_level
		) VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (slot) DO UPDATE SET
			var_95 = EXCLUDED.var_95,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			max_drawdown = EXCLUDED.max_drawdown,
			portfolio_volatility = EXCLUDED.portfolio_volatility,
			stop_loss_level = EXCLUDED.stop_loss_level
	`

	_, err := t.tx.Exec(ctx, query,
		m.VaR95, m.SharpeRatio, m.MaxDrawdown, int64(m.PortfolioVolatility), m.StopLossLevel,
	)
	if err != nil {
		return fmt.Errorf("put risk metrics: %w", err)
	}
	return nil
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		tr           domain.TradeRecord
		id, signalID int64
		action       string
	)

	err := row.Scan(
		&id, &signalID, &tr.Asset, &action, &tr.Amount, &tr.Strategy,
		&tr.ExecutedPrice, &tr.ExecutedAt, &tr.ProfitLoss,
	)
	if err != nil {
		return nil, err
	}

	tr.TradeID = uint64(id)
	tr.SignalID = uint64(signalID)
	tr.Action = domain.Action(action)
	return &tr, nil
}

// scanSnapshot scans a single row into a PortfolioSnapshot.
func scanSnapshot(row pgx.Row) (*domain.PortfolioSnapshot, error) {
	var (
		s          domain.PortfolioSnapshot
		id, trades int64
		numAssets  int32
	)

	err := row.Scan(&id, &s.Timestamp, &s.TotalValue, &numAssets, &trades, &s.CumulativeReturn)
	if err != nil {
		return nil, err
	}

	s.SnapshotID = uint64(id)
	s.NumAssets = uint32(numAssets)
	s.TotalTrades = uint64(trades)
	return &s, nil
}
