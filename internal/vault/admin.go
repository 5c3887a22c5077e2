package vault

import (
	"context"
	"errors"
	"fmt"

	"treasury-vault/internal/auth"
	"treasury-vault/internal/domain"
	"treasury-vault/internal/observability"
	"treasury-vault/internal/storage"
)

// Agents names the four identities bound at initialization.
type Agents struct {
	Admin        string
	TradingAgent string
	RiskAgent    string
	PaymentAgent string
}

// Initialize creates the vault configuration. The caller must be agents.Admin.
// Risk limits start at their defaults with dynamic stop-loss enabled.
// A second call fails with ErrAlreadyInitialized.
func (v *Vault) Initialize(ctx context.Context, agents Agents, maxSingleTrade int64) error {
	for role, id := range map[domain.Role]string{
		domain.RoleAdmin:   agents.Admin,
		domain.RoleTrading: agents.TradingAgent,
		domain.RoleRisk:    agents.RiskAgent,
		domain.RolePayment: agents.PaymentAgent,
	} {
		if _, err := auth.ParseIdentity(id); err != nil {
			return fmt.Errorf("%w: %s identity: %w", ErrInvalidInput, role, err)
		}
	}
	if maxSingleTrade <= 0 {
		return fmt.Errorf("%w: max single trade must be positive", ErrInvalidInput)
	}

	err := v.transition(ctx, OpInitialize, func(tx storage.Tx) error {
		if err := v.authorizeAs(ctx, tx, agents.Admin, domain.RoleAdmin); err != nil {
			return err
		}

		if _, err := tx.Config(ctx); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load config: %w", err)
		}

		cfg := &domain.VaultConfig{
			Admin:           agents.Admin,
			TradingAgent:    agents.TradingAgent,
			RiskAgent:       agents.RiskAgent,
			PaymentAgent:    agents.PaymentAgent,
			MaxSingleTrade:  maxSingleTrade,
			MaxVaR95:        domain.DefaultMaxVaR95,
			MinSharpeRatio:  domain.DefaultMinSharpeRatio,
			DynamicStopLoss: true,
			Halted:          false,
			CreatedAt:       v.clock.Now(),
			Version:         domain.SchemaVersion,
		}
		return tx.PutConfig(ctx, cfg)
	})
	if err != nil {
		return err
	}

	observability.SetHalted(false)
	v.logger.Printf("Vault initialized (admin=%s, max_single_trade=%d)", agents.Admin, maxSingleTrade)
	return nil
}

// UpdateRiskLimits sets the VaR ceiling and the minimum Sharpe ratio. Admin only.
func (v *Vault) UpdateRiskLimits(ctx context.Context, maxVaR95, minSharpeRatio int32) error {
	return v.updateConfig(ctx, OpUpdateRiskLimits, func(cfg *domain.VaultConfig) error {
		cfg.MaxVaR95 = maxVaR95
		cfg.MinSharpeRatio = minSharpeRatio
		return nil
	})
}

// UpdateTradingLimit sets the per-signal amount ceiling. Admin only.
func (v *Vault) UpdateTradingLimit(ctx context.Context, maxSingleTrade int64) error {
	return v.updateConfig(ctx, OpUpdateTradingLimit, func(cfg *domain.VaultConfig) error {
		if maxSingleTrade <= 0 {
			return fmt.Errorf("%w: max single trade must be positive", ErrInvalidInput)
		}
		cfg.MaxSingleTrade = maxSingleTrade
		return nil
	})
}

// SetDynamicStopLoss toggles the stop-loss criterion of the risk gate. Admin only.
func (v *Vault) SetDynamicStopLoss(ctx context.Context, enabled bool) error {
	return v.updateConfig(ctx, OpSetDynamicStopLoss, func(cfg *domain.VaultConfig) error {
		cfg.DynamicStopLoss = enabled
		return nil
	})
}

// RotateAgent binds a new identity to role. Admin only.
// Rotating RoleAdmin hands administration to the new identity.
func (v *Vault) RotateAgent(ctx context.Context, role domain.Role, identity string) error {
	if _, err := auth.ParseIdentity(identity); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return v.updateConfig(ctx, OpRotateAgent, func(cfg *domain.VaultConfig) error {
		if !cfg.SetIdentity(role, identity) {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
		}
		return nil
	})
}

// EmergencyHalt stops signal submission, approval and execution. Admin only.
func (v *Vault) EmergencyHalt(ctx context.Context) error {
	err := v.updateConfig(ctx, OpEmergencyHalt, func(cfg *domain.VaultConfig) error {
		cfg.Halted = true
		return nil
	})
	if err != nil {
		return err
	}
	observability.SetHalted(true)
	v.logger.Println("Vault halted")
	return nil
}

// ResumeTrading lifts a halt. Admin only.
func (v *Vault) ResumeTrading(ctx context.Context) error {
	err := v.updateConfig(ctx, OpResumeTrading, func(cfg *domain.VaultConfig) error {
		cfg.Halted = false
		return nil
	})
	if err != nil {
		return err
	}
	observability.SetHalted(false)
	v.logger.Println("Vault trading resumed")
	return nil
}

// updateConfig runs an admin-only read-modify-write of the configuration.
func (v *Vault) updateConfig(ctx context.Context, op string, mutate func(cfg *domain.VaultConfig) error) error {
	return v.transition(ctx, op, func(tx storage.Tx) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := v.authorize(ctx, tx, cfg, domain.RoleAdmin); err != nil {
			return err
		}
		if err := mutate(cfg); err != nil {
			return err
		}
		return tx.PutConfig(ctx, cfg)
	})
}
