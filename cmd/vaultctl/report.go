package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"treasury-vault/internal/api"
	"treasury-vault/internal/domain"
	"treasury-vault/internal/reporting"
)

// clientSource serves reporting.Source over the HTTP API.
type clientSource struct {
	c *api.Client
}

func (s clientSource) GetStrategyPerformance(ctx context.Context, strategy string) (*domain.StrategyPerformance, error) {
	v, err := s.c.Strategy(ctx, strategy)
	if err != nil {
		return nil, err
	}
	return &domain.StrategyPerformance{
		Strategy:          v.Strategy,
		TotalTrades:       v.TotalTrades,
		WinningTrades:     v.WinningTrades,
		TotalProfit:       v.TotalProfit,
		AvgReturn:         v.AvgReturn,
		ExpectedReturnSum: v.ExpectedReturnSum,
		LastUpdated:       v.LastUpdated,
	}, nil
}

func (s clientSource) StrategyTrades(ctx context.Context, strategy string) ([]*domain.TradeRecord, error) {
	views, err := s.c.StrategyTrades(ctx, strategy)
	if err != nil {
		return nil, err
	}
	trades := make([]*domain.TradeRecord, 0, len(views))
	for _, v := range views {
		trades = append(trades, &domain.TradeRecord{
			TradeID:       v.TradeID,
			SignalID:      v.SignalID,
			Asset:         v.Asset,
			Action:        domain.Action(v.Action),
			Amount:        v.Amount,
			Strategy:      v.Strategy,
			ExecutedPrice: v.ExecutedPrice,
			ExecutedAt:    v.ExecutedAt,
			ProfitLoss:    v.ProfitLoss,
		})
	}
	return trades, nil
}

func newReportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "report STRATEGY...",
		Short: "Render a strategy report reconciled against the trade journal",
		Long: `Render ledger performance, the journaled outcome distribution and a
reconciliation of the two for each strategy. Exits non-zero when they disagree.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			report, err := reporting.NewGenerator(clientSource{c: c}).Generate(cmd.Context(), args)
			if err != nil {
				return err
			}

			var rendered string
			switch format {
			case "markdown", "md":
				rendered = reporting.RenderMarkdown(report)
			case "csv":
				if rendered, err = reporting.RenderCSV(report); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (markdown or csv)", format)
			}

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), rendered)
			} else if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if !report.AllReconciled {
				return fmt.Errorf("ledger and journal disagree for %d check(s)", countFailed(report))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func countFailed(r *reporting.Report) int {
	n := 0
	for _, c := range r.Reconciliation {
		if !c.Pass {
			n++
		}
	}
	return n
}
