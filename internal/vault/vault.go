// Package vault implements the treasury vault: a role-gated state machine
// taking trading signals through risk approval to execution, with
// per-strategy performance rollups and portfolio snapshots.
//
// Every transition runs inside one storage transaction. Authorization is
// checked inside that transaction before any write, so a rejected call
// never leaves partial state. Settlement and the audit journal run after
// commit and cannot undo it.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"treasury-vault/internal/auth"
	"treasury-vault/internal/clock"
	"treasury-vault/internal/domain"
	"treasury-vault/internal/observability"
	"treasury-vault/internal/settlement"
	"treasury-vault/internal/storage"
)

// Operation names, shared by metrics and signed invocations.
const (
	OpInitialize         = "initialize"
	OpUpdateRiskLimits   = "update_risk_limits"
	OpUpdateTradingLimit = "update_trading_limit"
	OpSetDynamicStopLoss = "set_dynamic_stop_loss"
	OpRotateAgent        = "rotate_agent"
	OpEmergencyHalt      = "emergency_halt"
	OpResumeTrading      = "resume_trading"
	OpSubmitSignal       = "submit_trading_signal"
	OpApproveTrade       = "approve_trade"
	OpExecuteTrade       = "execute_trade"
	OpCreateSnapshot     = "create_snapshot"
)

// Vault is the treasury state machine.
type Vault struct {
	store   storage.Store
	oracle  auth.Oracle
	clock   clock.Clock
	audit   storage.AuditSink
	settler settlement.Settler

	vaultAccount       string
	settlementCurrency string

	logger *log.Logger
}

// Options contains configuration for creating a Vault.
type Options struct {
	Store  storage.Store // required
	Oracle auth.Oracle   // required
	Clock  clock.Clock   // Default: monotonic wall clock

	// Audit receives evaluations, trades and snapshots after commit. Optional.
	Audit storage.AuditSink

	// Settler moves value after ExecuteTrade. Optional; requires VaultAccount.
	Settler            settlement.Settler
	VaultAccount       string // account holding the vault's assets
	SettlementCurrency string // asset paid out for BUY trades

	Logger *log.Logger
}

// New creates a new Vault.
func New(opts Options) (*Vault, error) {
	if opts.Store == nil {
		return nil, errors.New("vault: store is required")
	}
	if opts.Oracle == nil {
		return nil, errors.New("vault: authorization oracle is required")
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.NewMonotonic(nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Vault{
		store:              opts.Store,
		oracle:             opts.Oracle,
		clock:              clk,
		audit:              opts.Audit,
		settler:            opts.Settler,
		vaultAccount:       opts.VaultAccount,
		settlementCurrency: opts.SettlementCurrency,
		logger:             logger,
	}, nil
}

// transition runs fn as one atomic read-write transaction and records metrics.
func (v *Vault) transition(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	start := time.Now()
	err := v.store.Update(ctx, fn)
	observability.RecordTransition(op, outcome(err), time.Since(start).Seconds())
	if err != nil && outcome(err) == "error" {
		v.logger.Printf("%s failed: %v", op, err)
	}
	return err
}

// authorize requires the caller in ctx to hold role in cfg.
func (v *Vault) authorize(ctx context.Context, tx storage.Tx, cfg *domain.VaultConfig, role domain.Role) error {
	return v.authorizeAs(ctx, tx, cfg.Identity(role), role)
}

// authorizeAs requires the caller in ctx to be identity. A signed invocation
// must also carry a nonce above the last one stored for its signer; the new
// nonce is written in tx so it commits or rolls back with the transition.
func (v *Vault) authorizeAs(ctx context.Context, tx storage.Tx, identity string, role domain.Role) error {
	if err := v.oracle.RequireAuthorizedAs(ctx, identity); err != nil {
		return fmt.Errorf("%w: requires %s: %w", ErrUnauthorized, role, err)
	}

	inv, ok := auth.InvocationFrom(ctx)
	if !ok {
		return nil
	}
	last, err := tx.Nonce(ctx, inv.Signer)
	if err != nil {
		return fmt.Errorf("load nonce: %w", err)
	}
	if err := auth.CheckNonce(inv.Nonce, last); err != nil {
		return fmt.Errorf("%w: requires %s: %w", ErrUnauthorized, role, err)
	}
	if err := tx.SetNonce(ctx, inv.Signer, inv.Nonce); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	return nil
}

// loadConfig reads the configuration, mapping absence to ErrNotInitialized.
func loadConfig(ctx context.Context, tx storage.ReadTx) (*domain.VaultConfig, error) {
	cfg, err := tx.Config(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// nextID reads counter c, stores c+1 and returns it.
func nextID(ctx context.Context, tx storage.Tx, c storage.Counter) (uint64, error) {
	n, err := tx.Counter(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("read %s counter: %w", c, err)
	}
	n++
	if err := tx.SetCounter(ctx, c, n); err != nil {
		return 0, fmt.Errorf("advance %s counter: %w", c, err)
	}
	return n, nil
}
