package main

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"treasury-vault/internal/api"
	"treasury-vault/internal/auth"
	"treasury-vault/internal/domain"
)

// app carries the global flags shared by every subcommand.
type app struct {
	server  string
	key     string
	timeout time.Duration
}

// client builds an API client. The key is optional for read commands.
func (a *app) client() (*api.Client, error) {
	var priv ed25519.PrivateKey
	if a.key != "" {
		k, err := auth.DecodePrivateKey(a.key)
		if err != nil {
			return nil, fmt.Errorf("--key: %w", err)
		}
		priv = k
	}
	return api.NewClient(a.server, priv, a.timeout), nil
}

// signingClient builds an API client that must be able to sign.
func (a *app) signingClient() (*api.Client, error) {
	if a.key == "" {
		return nil, fmt.Errorf("--key (or VAULT_KEY) is required: %w", api.ErrNoSigningKey)
	}
	return a.client()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "vaultctl - treasury vault agent and admin CLI",
		Long: `vaultctl drives a vaultd instance over HTTP.
Mutating commands are signed with the agent key passed via --key or VAULT_KEY.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.server, "server", envOr("VAULT_SERVER", "http://localhost:8080"), "vaultd base URL")
	rootCmd.PersistentFlags().StringVar(&a.key, "key", os.Getenv("VAULT_KEY"), "base58 ed25519 private key used to sign invocations")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(
		newKeygenCmd(),
		newInitCmd(a),
		newRiskLimitsCmd(a),
		newTradingLimitCmd(a),
		newStopLossCmd(a),
		newRotateCmd(a),
		newHaltCmd(a),
		newResumeCmd(a),
		newSubmitCmd(a),
		newApproveCmd(a),
		newExecuteCmd(a),
		newSnapshotCmd(a),
		newConfigCmd(a),
		newStatusCmd(a),
		newSignalCmd(a),
		newEvaluationsCmd(a),
		newRiskMetricsCmd(a),
		newTradeCmd(a),
		newStrategyCmd(a),
		newReportCmd(a),
	)
	return rootCmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an agent key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, priv, err := auth.GenerateKey(nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"identity":    identity,
				"private_key": auth.EncodePrivateKey(priv),
			})
		},
	}
}

// Admin commands

func newInitCmd(a *app) *cobra.Command {
	var req api.InitializeRequest
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the vault (signed by the admin key)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			if req.Admin == "" {
				req.Admin = c.Signer()
			}
			cfg, err := c.Initialize(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&req.Admin, "admin", "", "admin identity (defaults to the signing key)")
	cmd.Flags().StringVar(&req.TradingAgent, "trading", "", "trading agent identity")
	cmd.Flags().StringVar(&req.RiskAgent, "risk", "", "risk agent identity")
	cmd.Flags().StringVar(&req.PaymentAgent, "payment", "", "payment agent identity")
	cmd.Flags().Int64Var(&req.MaxSingleTrade, "max-single-trade", 0, "largest amount a single signal may carry")
	_ = cmd.MarkFlagRequired("trading")
	_ = cmd.MarkFlagRequired("risk")
	_ = cmd.MarkFlagRequired("payment")
	_ = cmd.MarkFlagRequired("max-single-trade")
	return cmd
}

func newRiskLimitsCmd(a *app) *cobra.Command {
	var maxVaR, minSharpe int32
	cmd := &cobra.Command{
		Use:   "risk-limits",
		Short: "Update the VaR and Sharpe thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			return c.UpdateRiskLimits(cmd.Context(), maxVaR, minSharpe)
		},
	}
	cmd.Flags().Int32Var(&maxVaR, "max-var", 0, "maximum VaR95 in basis points")
	cmd.Flags().Int32Var(&minSharpe, "min-sharpe", 0, "minimum Sharpe ratio x100")
	_ = cmd.MarkFlagRequired("max-var")
	_ = cmd.MarkFlagRequired("min-sharpe")
	return cmd
}

func newTradingLimitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trading-limit AMOUNT",
		Short: "Update the single trade limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			return c.UpdateTradingLimit(cmd.Context(), amount)
		},
	}
}

func newStopLossCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-loss on|off",
		Short: "Enable or disable the dynamic stop loss",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on", "true":
				enabled = true
			case "off", "false":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			return c.SetDynamicStopLoss(cmd.Context(), enabled)
		},
	}
}

func newRotateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate ROLE IDENTITY",
		Short: "Replace the identity holding a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := domain.ParseRole(strings.ToUpper(args[0]))
			if !ok {
				return fmt.Errorf("unknown role %q", args[0])
			}
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			return c.RotateAgent(cmd.Context(), role, args[1])
		},
	}
}

func newHaltCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "halt",
		Short: "Emergency halt: block signal submission, approval and execution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			return c.EmergencyHalt(cmd.Context())
		},
	}
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear the emergency halt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			return c.ResumeTrading(cmd.Context())
		},
	}
}

// Agent commands

func newSubmitCmd(a *app) *cobra.Command {
	var (
		req    api.SignalRequest
		action string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a trading signal (trading agent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Action = domain.Action(strings.ToUpper(action))
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			id, err := c.SubmitTradingSignal(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.SignalIDResponse{SignalID: id})
		},
	}
	cmd.Flags().StringVar(&req.Asset, "asset", "", "asset code")
	cmd.Flags().StringVar(&action, "action", "", "BUY, SELL or HOLD")
	cmd.Flags().Int64Var(&req.Amount, "amount", 0, "signal amount")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "strategy name")
	cmd.Flags().Uint32Var(&req.Confidence, "confidence", 0, "confidence 0-100")
	cmd.Flags().Int32Var(&req.ExpectedReturn, "expected-return", 0, "expected return in basis points")
	for _, name := range []string{"asset", "action", "amount", "strategy"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newApproveCmd(a *app) *cobra.Command {
	var m api.RiskMetricsBody
	cmd := &cobra.Command{
		Use:   "approve SIGNAL_ID",
		Short: "Evaluate a pending signal against the risk limits (risk agent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			approved, err := c.ApproveTrade(cmd.Context(), id, m)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.ApproveResponse{Approved: approved})
		},
	}
	cmd.Flags().Int32Var(&m.VaR95, "var", 0, "VaR95 in basis points")
	cmd.Flags().Int32Var(&m.SharpeRatio, "sharpe", 0, "Sharpe ratio x100")
	cmd.Flags().Int32Var(&m.MaxDrawdown, "drawdown", 0, "maximum drawdown in basis points")
	cmd.Flags().Uint32Var(&m.PortfolioVolatility, "volatility", 0, "portfolio volatility in basis points")
	cmd.Flags().Int32Var(&m.StopLossLevel, "stop-loss", 0, "stop loss level in basis points")
	return cmd
}

func newExecuteCmd(a *app) *cobra.Command {
	var price, pnl int64
	cmd := &cobra.Command{
		Use:   "execute SIGNAL_ID",
		Short: "Execute an approved signal (payment agent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			tradeID, err := c.ExecuteTrade(cmd.Context(), id, price, pnl)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.TradeIDResponse{TradeID: tradeID})
		},
	}
	cmd.Flags().Int64Var(&price, "price", 0, "executed price")
	cmd.Flags().Int64Var(&pnl, "pnl", 0, "realized profit or loss")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Portfolio snapshots",
	}

	var req api.SnapshotRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a portfolio snapshot (trading agent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.signingClient()
			if err != nil {
				return err
			}
			id, err := c.CreateSnapshot(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.SnapshotIDResponse{SnapshotID: id})
		},
	}
	create.Flags().Int64Var(&req.TotalValue, "total-value", 0, "total portfolio value")
	create.Flags().Uint32Var(&req.NumAssets, "num-assets", 0, "number of assets held")
	create.Flags().Int32Var(&req.CumulativeReturn, "return", 0, "cumulative return in basis points")
	_ = create.MarkFlagRequired("total-value")

	get := &cobra.Command{
		Use:   "get SNAPSHOT_ID",
		Short: "Show a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			s, err := c.Snapshot(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}

	latest := &cobra.Command{
		Use:   "latest",
		Short: "Show the latest snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			s, err := c.LatestSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}

	snapshotCmd.AddCommand(create, get, latest)
	return snapshotCmd
}

// Read commands

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the vault configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			cfg, err := c.Config(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the vault is operational",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}

func newSignalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signal SIGNAL_ID",
		Short: "Show a trading signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			s, err := c.Signal(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
}

func newEvaluationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluations SIGNAL_ID",
		Short: "List the journaled risk evaluations of a signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			evals, err := c.RiskEvaluations(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, evals)
		},
	}
}

func newRiskMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "risk-metrics",
		Short: "Show the last persisted risk metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			m, err := c.RiskMetrics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}
}

func newTradeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trade TRADE_ID",
		Short: "Show an executed trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			tr, err := c.Trade(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, tr)
		},
	}
}

func newStrategyCmd(a *app) *cobra.Command {
	strategyCmd := &cobra.Command{
		Use:   "strategy NAME",
		Short: "Show strategy performance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			p, err := c.Strategy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}

	strategyCmd.AddCommand(&cobra.Command{
		Use:   "trades NAME",
		Short: "List the journaled trades of a strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			trades, err := c.StrategyTrades(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, trades)
		},
	})
	return strategyCmd
}
