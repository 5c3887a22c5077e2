// Package risk implements the vault's risk gate.
package risk

import (
	"treasury-vault/internal/domain"
)

// Criterion names
const (
	CriterionVaR         = "VaR 95%"
	CriterionSharpe      = "Sharpe ratio"
	CriterionMaxDrawdown = "Max drawdown"
	CriterionStopLoss    = "Stop loss"
)

// CriterionResult is the outcome of one threshold check.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
	Skipped   bool // stop loss with dynamic stop-loss disabled
}

// Evaluation is the outcome of the risk gate for one metrics snapshot.
type Evaluation struct {
	Approved bool
	Criteria []CriterionResult
}

// Failed returns the names of failed criteria.
func (e *Evaluation) Failed() []string {
	failed := []string{}
	for _, c := range e.Criteria {
		if !c.Pass {
			failed = append(failed, c.Name)
		}
	}
	return failed
}

// Evaluate checks metrics against the vault configuration.
// Approved only if ALL criteria pass.
func Evaluate(cfg *domain.VaultConfig, m domain.RiskMetrics) *Evaluation {
	criteria := []CriterionResult{
		{
			Name:      CriterionVaR,
			Threshold: "<= " + domain.FormatBps(cfg.MaxVaR95),
			Actual:    domain.FormatBps(m.VaR95),
			Pass:      m.VaR95 <= cfg.MaxVaR95,
		},
		{
			Name:      CriterionSharpe,
			Threshold: ">= " + domain.FormatRatio(cfg.MinSharpeRatio),
			Actual:    domain.FormatRatio(m.SharpeRatio),
			Pass:      m.SharpeRatio >= cfg.MinSharpeRatio,
		},
		{
			Name:      CriterionMaxDrawdown,
			Threshold: ">= " + domain.FormatBps(domain.MaxDrawdownFloor),
			Actual:    domain.FormatBps(m.MaxDrawdown),
			Pass:      m.MaxDrawdown >= domain.MaxDrawdownFloor,
		},
	}

	stopLoss := CriterionResult{
		Name:      CriterionStopLoss,
		Threshold: ">= " + domain.FormatBps(domain.StopLossFloor),
		Actual:    domain.FormatBps(m.StopLossLevel),
		Pass:      true,
		Skipped:   !cfg.DynamicStopLoss,
	}
	if cfg.DynamicStopLoss {
		stopLoss.Pass = m.StopLossLevel >= domain.StopLossFloor
	}
	criteria = append(criteria, stopLoss)

	approved := true
	for _, c := range criteria {
		if !c.Pass {
			approved = false
			break
		}
	}

	return &Evaluation{
		Approved: approved,
		Criteria: criteria,
	}
}
