package vault

import (
	"context"
	"errors"
	"fmt"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/observability"
	"treasury-vault/internal/performance"
	"treasury-vault/internal/risk"
	"treasury-vault/internal/settlement"
	"treasury-vault/internal/storage"
)

// SignalRequest holds the arguments of SubmitTradingSignal.
type SignalRequest struct {
	Asset          string
	Action         domain.Action
	Amount         int64
	Strategy       string
	Confidence     uint32
	ExpectedReturn int32 // basis points
}

// Validate checks the request fields. The trade limit is checked separately.
func (r SignalRequest) Validate() error {
	switch {
	case r.Asset == "":
		return fmt.Errorf("%w: asset is empty", ErrInvalidInput)
	case r.Strategy == "":
		return fmt.Errorf("%w: strategy is empty", ErrInvalidInput)
	case r.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case r.Confidence > domain.MaxConfidence:
		return fmt.Errorf("%w: confidence %d above %d", ErrInvalidInput, r.Confidence, domain.MaxConfidence)
	}
	if _, ok := domain.ParseAction(string(r.Action)); !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, r.Action)
	}
	return nil
}

// SubmitTradingSignal records a new PENDING signal and returns its id.
// Trading agent only. Fails with ErrSystemHalted while halted and with
// ErrLimitExceeded when the amount is above the per-trade maximum.
func (v *Vault) SubmitTradingSignal(ctx context.Context, req SignalRequest) (uint64, error) {
	var signalID uint64

	err := v.transition(ctx, OpSubmitSignal, func(tx storage.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := v.authorize(ctx, tx, cfg, domain.RoleTrading); err != nil {
			return err
		}
		if cfg.Halted {
			return ErrSystemHalted
		}
		if err := req.Validate(); err != nil {
			return err
		}
		if req.Amount > cfg.MaxSingleTrade {
			return fmt.Errorf("%w: amount %d above %d", ErrLimitExceeded, req.Amount, cfg.MaxSingleTrade)
		}

		id, err := nextID(ctx, tx, storage.CounterSignal)
		if err != nil {
			return err
		}

		signal := &domain.TradingSignal{
			SignalID:       id,
			Asset:          req.Asset,
			Action:         req.Action,
			Amount:         req.Amount,
			Strategy:       req.Strategy,
			Confidence:     req.Confidence,
			ExpectedReturn: req.ExpectedReturn,
			CreatedAt:      v.clock.Now(),
			Status:         domain.SignalPending,
		}
		if err := tx.PutSignal(ctx, signal); err != nil {
			return fmt.Errorf("store signal: %w", err)
		}

		signalID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	observability.RecordSignalSubmitted()
	return signalID, nil
}

// ApproveTrade runs the risk gate for a PENDING signal. Risk agent only.
//
// The submitted metrics become the vault's latest risk metrics whatever the
// outcome. The signal is marked APPROVED or REJECTED; a rejection is reported
// as false, not as an error. Fails with ErrSystemHalted while halted.
func (v *Vault) ApproveTrade(ctx context.Context, signalID uint64, metrics domain.RiskMetrics) (bool, error) {
	var eval *domain.RiskEvaluation

	err := v.transition(ctx, OpApproveTrade, func(tx storage.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := v.authorize(ctx, tx, cfg, domain.RoleRisk); err != nil {
			return err
		}
		if cfg.Halted {
			return ErrSystemHalted
		}

		signal, err := tx.Signal(ctx, signalID)
		if err != nil {
			return fmt.Errorf("signal %d: %w", signalID, err)
		}
		if signal.Status != domain.SignalPending {
			return fmt.Errorf("%w: signal %d is %s", ErrSignalNotPending, signalID, signal.Status)
		}

		result := risk.Evaluate(cfg, metrics)
		now := v.clock.Now()

		if err := tx.PutRiskMetrics(ctx, &metrics); err != nil {
			return fmt.Errorf("store risk metrics: %w", err)
		}

		signal.Status = domain.SignalRejected
		if result.Approved {
			signal.Status = domain.SignalApproved
		}
		signal.EvaluatedAt = now
		if err := tx.PutSignal(ctx, signal); err != nil {
			return fmt.Errorf("store signal: %w", err)
		}

		eval = &domain.RiskEvaluation{
			SignalID:    signalID,
			Metrics:     metrics,
			Approved:    result.Approved,
			Failed:      result.Failed(),
			EvaluatedAt: now,
			Evaluator:   cfg.RiskAgent,
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	observability.RecordRiskEvaluation(eval.Approved, eval.Failed)
	if !eval.Approved {
		v.logger.Printf("Signal %d rejected by risk gate: %v", signalID, eval.Failed)
	}
	if v.audit != nil {
		if err := v.audit.RecordEvaluation(ctx, eval); err != nil {
			observability.RecordAuditError("evaluation")
			v.logger.Printf("Audit evaluation of signal %d failed: %v", signalID, err)
		}
	}
	return eval.Approved, nil
}

// ExecuteTrade records the execution of an APPROVED signal and returns the
// trade id. Payment agent only. The signal is consumed and the strategy's
// performance updated in the same transaction. Fails with ErrSystemHalted
// while halted.
//
// After commit the trade is settled through the configured Settler. A
// settlement failure is logged and counted; the trade stays recorded.
func (v *Vault) ExecuteTrade(ctx context.Context, signalID uint64, executedPrice, profitLoss int64) (uint64, error) {
	var (
		trade        *domain.TradeRecord
		paymentAgent string
	)

	err := v.transition(ctx, OpExecuteTrade, func(tx storage.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := v.authorize(ctx, tx, cfg, domain.RolePayment); err != nil {
			return err
		}
		if cfg.Halted {
			return ErrSystemHalted
		}

		signal, err := tx.Signal(ctx, signalID)
		if err != nil {
			return fmt.Errorf("signal %d: %w", signalID, err)
		}
		if signal.Status != domain.SignalApproved {
			return fmt.Errorf("%w: signal %d is %s", ErrSignalNotApproved, signalID, signal.Status)
		}

		tradeID, err := nextID(ctx, tx, storage.CounterTrade)
		if err != nil {
			return err
		}
		now := v.clock.Now()

		record := &domain.TradeRecord{
			TradeID:       tradeID,
			SignalID:      signalID,
			Asset:         signal.Asset,
			Action:        signal.Action,
			Amount:        signal.Amount,
			Strategy:      signal.Strategy,
			ExecutedPrice: executedPrice,
			ExecutedAt:    now,
			ProfitLoss:    profitLoss,
		}
		if err := tx.InsertTrade(ctx, record); err != nil {
			return fmt.Errorf("store trade: %w", err)
		}
		if err := tx.DeleteSignal(ctx, signalID); err != nil {
			return fmt.Errorf("consume signal: %w", err)
		}

		prev, err := tx.Strategy(ctx, signal.Strategy)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load strategy performance: %w", err)
		}
		next := performance.Apply(prev, signal.Strategy, profitLoss, signal.ExpectedReturn, now)
		if err := tx.PutStrategy(ctx, next); err != nil {
			return fmt.Errorf("store strategy performance: %w", err)
		}

		trade = record
		paymentAgent = cfg.PaymentAgent
		return nil
	})
	if err != nil {
		return 0, err
	}

	observability.RecordTradeExecuted(string(trade.Action))
	v.settle(ctx, trade, paymentAgent)
	if v.audit != nil {
		if err := v.audit.RecordTrade(ctx, trade); err != nil {
			observability.RecordAuditError("trade")
			v.logger.Printf("Audit of trade %d failed: %v", trade.TradeID, err)
		}
	}
	return trade.TradeID, nil
}

// settle moves value for an executed trade from the vault account to the
// payment agent: the settlement currency for BUY, the traded asset for SELL.
// HOLD moves nothing.
func (v *Vault) settle(ctx context.Context, trade *domain.TradeRecord, paymentAgent string) {
	if v.settler == nil || v.vaultAccount == "" {
		return
	}

	var asset string
	switch trade.Action {
	case domain.ActionBuy:
		asset = v.settlementCurrency
	case domain.ActionSell:
		asset = trade.Asset
	default:
		return
	}
	if asset == "" {
		return
	}

	t := settlement.Transfer{
		Asset:  asset,
		From:   v.vaultAccount,
		To:     paymentAgent,
		Amount: trade.Amount,
	}
	if err := v.settler.Transfer(ctx, t); err != nil {
		observability.RecordSettlement("failed")
		v.logger.Printf("Settlement of trade %d failed (%s %d %s -> %s): %v",
			trade.TradeID, t.Asset, t.Amount, t.From, t.To, err)
		return
	}
	observability.RecordSettlement("ok")
}
