package vault

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury-vault/internal/auth"
	"treasury-vault/internal/clock"
	"treasury-vault/internal/domain"
	"treasury-vault/internal/risk"
	"treasury-vault/internal/settlement"
	"treasury-vault/internal/storage"
	"treasury-vault/internal/storage/memory"
)

const (
	startTime   int64 = 1_700_000_000_000
	vaultAcct         = "vault-account"
	usdc              = "USDC"
	maxPerTrade int64 = 1_000_000
)

type fixture struct {
	vault  *Vault
	store  *memory.Store
	audit  *memory.AuditSink
	ledger *settlement.Ledger
	clock  *clock.Manual
	agents Agents
}

func newIdentity(t *testing.T) string {
	t.Helper()
	id, _, err := auth.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return id
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.NewStore(),
		audit:  memory.NewAuditSink(),
		ledger: settlement.NewLedger(),
		clock:  clock.NewManual(startTime),
		agents: Agents{
			Admin:        newIdentity(t),
			TradingAgent: newIdentity(t),
			RiskAgent:    newIdentity(t),
			PaymentAgent: newIdentity(t),
		},
	}

	v, err := New(Options{
		Store:              f.store,
		Oracle:             auth.CallerOracle{},
		Clock:              f.clock,
		Audit:              f.audit,
		Settler:            f.ledger,
		VaultAccount:       vaultAcct,
		SettlementCurrency: usdc,
		Logger:             log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	f.vault = v
	return f
}

// initialized returns a fixture whose vault is initialized with maxPerTrade.
func initialized(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	require.NoError(t, f.vault.Initialize(f.as(f.agents.Admin), f.agents, maxPerTrade))
	return f
}

func (f *fixture) as(identity string) context.Context {
	return auth.WithCaller(context.Background(), identity)
}

func (f *fixture) admin() context.Context   { return f.as(f.agents.Admin) }
func (f *fixture) trading() context.Context { return f.as(f.agents.TradingAgent) }
func (f *fixture) risk() context.Context    { return f.as(f.agents.RiskAgent) }
func (f *fixture) payment() context.Context { return f.as(f.agents.PaymentAgent) }

func (f *fixture) counter(t *testing.T, c storage.Counter) uint64 {
	t.Helper()
	var n uint64
	require.NoError(t, f.store.View(context.Background(), func(tx storage.ReadTx) error {
		var err error
		n, err = tx.Counter(context.Background(), c)
		return err
	}))
	return n
}

func btcSignal() SignalRequest {
	return SignalRequest{
		Asset:          "BTC",
		Action:         domain.ActionBuy,
		Amount:         100_000,
		Strategy:       "LSTM",
		Confidence:     85,
		ExpectedReturn: 250,
	}
}

func passingMetrics() domain.RiskMetrics {
	return domain.RiskMetrics{
		VaR95:               300,
		SharpeRatio:         150,
		MaxDrawdown:         -1000,
		PortfolioVolatility: 1200,
		StopLossLevel:       -500,
	}
}

// approved submits req and approves it with passing metrics.
func (f *fixture) approved(t *testing.T, req SignalRequest) uint64 {
	t.Helper()
	id, err := f.vault.SubmitTradingSignal(f.trading(), req)
	require.NoError(t, err)
	ok, err := f.vault.ApproveTrade(f.risk(), id, passingMetrics())
	require.NoError(t, err)
	require.True(t, ok)
	return id
}

func TestNew(t *testing.T) {
	_, err := New(Options{Oracle: auth.CallerOracle{}})
	assert.Error(t, err)

	_, err = New(Options{Store: memory.NewStore()})
	assert.Error(t, err)

	v, err := New(Options{Store: memory.NewStore(), Oracle: auth.CallerOracle{}})
	require.NoError(t, err)
	assert.NotNil(t, v.clock)
	assert.NotNil(t, v.logger)
}

func TestInitialize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := initialized(t)

		cfg, err := f.vault.GetConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, f.agents.Admin, cfg.Admin)
		assert.Equal(t, f.agents.TradingAgent, cfg.TradingAgent)
		assert.Equal(t, f.agents.RiskAgent, cfg.RiskAgent)
		assert.Equal(t, f.agents.PaymentAgent, cfg.PaymentAgent)
		assert.Equal(t, maxPerTrade, cfg.MaxSingleTrade)
		assert.Equal(t, int32(500), cfg.MaxVaR95)
		assert.Equal(t, int32(100), cfg.MinSharpeRatio)
		assert.True(t, cfg.DynamicStopLoss)
		assert.False(t, cfg.Halted)
		assert.Equal(t, startTime, cfg.CreatedAt)
		assert.Equal(t, domain.SchemaVersion, cfg.Version)
	})

	t.Run("second call rejected", func(t *testing.T) {
		f := initialized(t)

		other := f.agents
		other.TradingAgent = newIdentity(t)
		err := f.vault.Initialize(f.admin(), other, 5)
		assert.ErrorIs(t, err, ErrAlreadyInitialized)

		cfg, err := f.vault.GetConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, f.agents.TradingAgent, cfg.TradingAgent)
		assert.Equal(t, maxPerTrade, cfg.MaxSingleTrade)
	})

	t.Run("caller must be the supplied admin", func(t *testing.T) {
		f := newFixture(t)

		err := f.vault.Initialize(f.trading(), f.agents, maxPerTrade)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)

		_, err = f.vault.GetConfig(context.Background())
		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		f := newFixture(t)

		bad := f.agents
		bad.RiskAgent = "not-a-key"
		assert.ErrorIs(t, f.vault.Initialize(f.admin(), bad, maxPerTrade), ErrInvalidInput)
		assert.ErrorIs(t, f.vault.Initialize(f.admin(), f.agents, 0), ErrInvalidInput)
		assert.ErrorIs(t, f.vault.Initialize(f.admin(), f.agents, -1), ErrInvalidInput)

		_, err := f.vault.GetConfig(context.Background())
		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("roles may share a key", func(t *testing.T) {
		f := newFixture(t)
		solo := Agents{Admin: f.agents.Admin, TradingAgent: f.agents.Admin, RiskAgent: f.agents.Admin, PaymentAgent: f.agents.Admin}
		require.NoError(t, f.vault.Initialize(f.admin(), solo, maxPerTrade))

		_, err := f.vault.SubmitTradingSignal(f.admin(), btcSignal())
		assert.NoError(t, err)
	})
}

func TestOperationsBeforeInitialize(t *testing.T) {
	f := newFixture(t)

	_, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.vault.ApproveTrade(f.risk(), 1, passingMetrics())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.vault.ExecuteTrade(f.payment(), 1, 1, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = f.vault.CreateSnapshot(f.trading(), 1, 1, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, f.vault.EmergencyHalt(f.admin()), ErrNotInitialized)
	assert.ErrorIs(t, f.vault.UpdateRiskLimits(f.admin(), 1, 1), ErrNotInitialized)

	ok, err := f.vault.IsOperational(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Zero(t, f.counter(t, storage.CounterSignal))
}

func TestAdminOperations(t *testing.T) {
	t.Run("risk limits apply to later evaluations", func(t *testing.T) {
		f := initialized(t)
		require.NoError(t, f.vault.UpdateRiskLimits(f.admin(), 200, 300))

		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)
		ok, err := f.vault.ApproveTrade(f.risk(), id, passingMetrics())
		require.NoError(t, err)
		assert.False(t, ok)

		evals, err := f.vault.RiskEvaluations(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, evals, 1)
		assert.ElementsMatch(t, []string{risk.CriterionVaR, risk.CriterionSharpe}, evals[0].Failed)
	})

	t.Run("dynamic stop loss toggle", func(t *testing.T) {
		f := initialized(t)
		m := passingMetrics()
		m.StopLossLevel = -1600

		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)
		ok, err := f.vault.ApproveTrade(f.risk(), id, m)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, f.vault.SetDynamicStopLoss(f.admin(), false))
		id, err = f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)
		ok, err = f.vault.ApproveTrade(f.risk(), id, m)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("trading limit", func(t *testing.T) {
		f := initialized(t)
		require.NoError(t, f.vault.UpdateTradingLimit(f.admin(), 50_000))

		_, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		assert.ErrorIs(t, err, ErrLimitExceeded)
		assert.ErrorIs(t, f.vault.UpdateTradingLimit(f.admin(), 0), ErrInvalidInput)
	})

	t.Run("rotate agent", func(t *testing.T) {
		f := initialized(t)
		next := newIdentity(t)
		require.NoError(t, f.vault.RotateAgent(f.admin(), domain.RoleTrading, next))

		_, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = f.vault.SubmitTradingSignal(f.as(next), btcSignal())
		assert.NoError(t, err)

		assert.ErrorIs(t, f.vault.RotateAgent(f.admin(), domain.Role("AUDITOR"), next), ErrInvalidInput)
		assert.ErrorIs(t, f.vault.RotateAgent(f.admin(), domain.RoleRisk, "garbage"), ErrInvalidInput)
	})

	t.Run("non-admin callers change nothing", func(t *testing.T) {
		f := initialized(t)
		before, err := f.vault.GetConfig(context.Background())
		require.NoError(t, err)

		for _, ctx := range []context.Context{f.trading(), f.risk(), f.payment(), context.Background()} {
			assert.ErrorIs(t, f.vault.UpdateRiskLimits(ctx, 9999, 0), ErrUnauthorized)
			assert.ErrorIs(t, f.vault.UpdateTradingLimit(ctx, 1), ErrUnauthorized)
			assert.ErrorIs(t, f.vault.SetDynamicStopLoss(ctx, false), ErrUnauthorized)
			assert.ErrorIs(t, f.vault.RotateAgent(ctx, domain.RoleAdmin, f.agents.TradingAgent), ErrUnauthorized)
			assert.ErrorIs(t, f.vault.EmergencyHalt(ctx), ErrUnauthorized)
			assert.ErrorIs(t, f.vault.ResumeTrading(ctx), ErrUnauthorized)
		}

		after, err := f.vault.GetConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestSubmitTradingSignal(t *testing.T) {
	t.Run("stores a pending signal", func(t *testing.T) {
		f := initialized(t)

		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)

		sig, err := f.vault.GetSignal(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "BTC", sig.Asset)
		assert.Equal(t, domain.ActionBuy, sig.Action)
		assert.Equal(t, int64(100_000), sig.Amount)
		assert.Equal(t, "LSTM", sig.Strategy)
		assert.Equal(t, uint32(85), sig.Confidence)
		assert.Equal(t, int32(250), sig.ExpectedReturn)
		assert.Equal(t, startTime, sig.CreatedAt)
		assert.Equal(t, domain.SignalPending, sig.Status)
	})

	t.Run("amount at the limit is accepted", func(t *testing.T) {
		f := initialized(t)
		req := btcSignal()
		req.Amount = maxPerTrade
		_, err := f.vault.SubmitTradingSignal(f.trading(), req)
		assert.NoError(t, err)

		req.Amount = maxPerTrade + 1
		_, err = f.vault.SubmitTradingSignal(f.trading(), req)
		assert.ErrorIs(t, err, ErrLimitExceeded)
		assert.Equal(t, uint64(1), f.counter(t, storage.CounterSignal))
	})

	t.Run("invalid requests", func(t *testing.T) {
		f := initialized(t)
		tests := []struct {
			name   string
			mutate func(r *SignalRequest)
		}{
			{"empty asset", func(r *SignalRequest) { r.Asset = "" }},
			{"empty strategy", func(r *SignalRequest) { r.Strategy = "" }},
			{"zero amount", func(r *SignalRequest) { r.Amount = 0 }},
			{"negative amount", func(r *SignalRequest) { r.Amount = -5 }},
			{"confidence above 100", func(r *SignalRequest) { r.Confidence = 101 }},
			{"unknown action", func(r *SignalRequest) { r.Action = "SHORT" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := btcSignal()
				tt.mutate(&req)
				_, err := f.vault.SubmitTradingSignal(f.trading(), req)
				assert.ErrorIs(t, err, ErrInvalidInput)
			})
		}
		assert.Zero(t, f.counter(t, storage.CounterSignal))
	})

	t.Run("only the trading agent", func(t *testing.T) {
		f := initialized(t)
		for _, ctx := range []context.Context{f.admin(), f.risk(), f.payment(), context.Background()} {
			_, err := f.vault.SubmitTradingSignal(ctx, btcSignal())
			assert.ErrorIs(t, err, ErrUnauthorized)
		}
		assert.Zero(t, f.counter(t, storage.CounterSignal))
	})

	t.Run("ids never reused after failures", func(t *testing.T) {
		f := initialized(t)

		id1, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)

		big := btcSignal()
		big.Amount = maxPerTrade * 2
		_, err = f.vault.SubmitTradingSignal(f.trading(), big)
		require.Error(t, err)
		_, err = f.vault.SubmitTradingSignal(f.payment(), btcSignal())
		require.Error(t, err)
		_, err = f.vault.GetSignal(context.Background(), id1)
		require.NoError(t, err)

		id2, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2}, []uint64{id1, id2})
	})
}

func TestApproveTrade(t *testing.T) {
	t.Run("VaR above the limit rejects", func(t *testing.T) {
		f := initialized(t)
		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)

		m := passingMetrics()
		m.VaR95 = 600
		ok, err := f.vault.ApproveTrade(f.risk(), id, m)
		require.NoError(t, err)
		assert.False(t, ok)

		sig, err := f.vault.GetSignal(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SignalRejected, sig.Status)
		assert.Equal(t, startTime, sig.EvaluatedAt)

		got, err := f.vault.GetRiskMetrics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, m, *got)
	})

	t.Run("passing metrics approve", func(t *testing.T) {
		f := initialized(t)
		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)

		ok, err := f.vault.ApproveTrade(f.risk(), id, passingMetrics())
		require.NoError(t, err)
		assert.True(t, ok)

		sig, err := f.vault.GetSignal(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SignalApproved, sig.Status)
	})

	t.Run("latest metrics follow the last call", func(t *testing.T) {
		f := initialized(t)

		first := passingMetrics()
		f.approved(t, btcSignal())

		second := passingMetrics()
		second.MaxDrawdown = -2500
		id2, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)
		ok, err := f.vault.ApproveTrade(f.risk(), id2, second)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := f.vault.GetRiskMetrics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, second, *got)
		assert.NotEqual(t, first, *got)
	})

	t.Run("evaluated signals cannot be re-evaluated", func(t *testing.T) {
		f := initialized(t)
		id := f.approved(t, btcSignal())

		_, err := f.vault.ApproveTrade(f.risk(), id, passingMetrics())
		assert.ErrorIs(t, err, ErrSignalNotPending)
	})

	t.Run("unknown signal", func(t *testing.T) {
		f := initialized(t)
		_, err := f.vault.ApproveTrade(f.risk(), 42, passingMetrics())
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := f.vault.GetRiskMetrics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.RiskMetrics{}, *got)
	})

	t.Run("only the risk agent", func(t *testing.T) {
		f := initialized(t)
		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)

		for _, ctx := range []context.Context{f.admin(), f.trading(), f.payment()} {
			_, err := f.vault.ApproveTrade(ctx, id, passingMetrics())
			assert.ErrorIs(t, err, ErrUnauthorized)
		}

		sig, err := f.vault.GetSignal(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SignalPending, sig.Status)
		got, err := f.vault.GetRiskMetrics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.RiskMetrics{}, *got)
	})

	t.Run("journal keeps rejected evaluations", func(t *testing.T) {
		f := initialized(t)
		id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)

		m := passingMetrics()
		m.SharpeRatio = 50
		_, err = f.vault.ApproveTrade(f.risk(), id, m)
		require.NoError(t, err)

		evals, err := f.vault.RiskEvaluations(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, evals, 1)
		assert.False(t, evals[0].Approved)
		assert.Equal(t, []string{risk.CriterionSharpe}, evals[0].Failed)
		assert.Equal(t, f.agents.RiskAgent, evals[0].Evaluator)
		assert.Equal(t, m, evals[0].Metrics)
	})
}

func TestApproveTradeMatchesEvaluator(t *testing.T) {
	f := initialized(t)
	cfg, err := f.vault.GetConfig(context.Background())
	require.NoError(t, err)

	vars := []int32{0, 499, 500, 501, 2000}
	sharpes := []int32{-100, 99, 100, 101}
	drawdowns := []int32{-2001, -2000, 0}
	stops := []int32{-1501, -1500, 100}

	for _, v := range vars {
		for _, s := range sharpes {
			for _, d := range drawdowns {
				for _, sl := range stops {
					m := domain.RiskMetrics{VaR95: v, SharpeRatio: s, MaxDrawdown: d, StopLossLevel: sl}
					want := v <= cfg.MaxVaR95 && s >= cfg.MinSharpeRatio && d >= -2000 && sl >= -1500

					id, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
					require.NoError(t, err)
					got, err := f.vault.ApproveTrade(f.risk(), id, m)
					require.NoError(t, err)
					assert.Equal(t, want, got, "metrics %+v", m)
				}
			}
		}
	}
}

func TestExecuteTrade(t *testing.T) {
	t.Run("example scenario", func(t *testing.T) {
		f := initialized(t)

		id := f.approved(t, btcSignal())
		require.Equal(t, uint64(1), id)

		f.clock.Advance(time.Second)
		tradeID, err := f.vault.ExecuteTrade(f.payment(), id, 450_000_000_000, 5000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), tradeID)

		total, err := f.vault.GetTotalTrades(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)

		trade, err := f.vault.GetTrade(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), trade.ProfitLoss)
		assert.Equal(t, int64(450_000_000_000), trade.ExecutedPrice)
		assert.Equal(t, "BTC", trade.Asset)
		assert.Equal(t, domain.ActionBuy, trade.Action)
		assert.Equal(t, int64(100_000), trade.Amount)
		assert.Equal(t, "LSTM", trade.Strategy)
		assert.Equal(t, id, trade.SignalID)
		assert.Equal(t, startTime+1000, trade.ExecutedAt)

		perf, err := f.vault.GetStrategyPerformance(context.Background(), "LSTM")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), perf.TotalTrades)
		assert.Equal(t, uint64(1), perf.WinningTrades)
		assert.Equal(t, int64(5000), perf.TotalProfit)
		assert.Equal(t, int64(5000), perf.AvgReturn)
		assert.Equal(t, int64(250), perf.ExpectedReturnSum)
		assert.Equal(t, startTime+1000, perf.LastUpdated)
	})

	t.Run("signal is consumed", func(t *testing.T) {
		f := initialized(t)
		id := f.approved(t, btcSignal())

		_, err := f.vault.ExecuteTrade(f.payment(), id, 1, 1)
		require.NoError(t, err)

		_, err = f.vault.GetSignal(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.vault.ExecuteTrade(f.payment(), id, 1, 1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, uint64(1), f.counter(t, storage.CounterTrade))
	})

	t.Run("requires approval", func(t *testing.T) {
		f := initialized(t)
		pending, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		require.NoError(t, err)

		_, err = f.vault.ExecuteTrade(f.payment(), pending, 1, 1)
		assert.ErrorIs(t, err, ErrSignalNotApproved)

		m := passingMetrics()
		m.VaR95 = 900
		ok, err := f.vault.ApproveTrade(f.risk(), pending, m)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = f.vault.ExecuteTrade(f.payment(), pending, 1, 1)
		assert.ErrorIs(t, err, ErrSignalNotApproved)
		assert.Zero(t, f.counter(t, storage.CounterTrade))
	})

	t.Run("unknown signal", func(t *testing.T) {
		f := initialized(t)
		_, err := f.vault.ExecuteTrade(f.payment(), 7, 1, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("only the payment agent", func(t *testing.T) {
		f := initialized(t)
		id := f.approved(t, btcSignal())

		for _, ctx := range []context.Context{f.admin(), f.trading(), f.risk()} {
			_, err := f.vault.ExecuteTrade(ctx, id, 1, 1)
			assert.ErrorIs(t, err, ErrUnauthorized)
		}
		assert.Zero(t, f.counter(t, storage.CounterTrade))

		sig, err := f.vault.GetSignal(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SignalApproved, sig.Status)
	})

	t.Run("performance rollup", func(t *testing.T) {
		f := initialized(t)

		pnls := []int64{100, 0, -250, 7}
		var total int64
		var wins uint64
		for i, pnl := range pnls {
			before, err := f.vault.GetStrategyPerformance(context.Background(), "MACD")
			require.NoError(t, err)

			req := btcSignal()
			req.Strategy = "MACD"
			id := f.approved(t, req)
			_, err = f.vault.ExecuteTrade(f.payment(), id, 1, pnl)
			require.NoError(t, err)

			total += pnl
			if pnl > 0 {
				wins++
			}

			after, err := f.vault.GetStrategyPerformance(context.Background(), "MACD")
			require.NoError(t, err)
			assert.Equal(t, before.TotalTrades+1, after.TotalTrades)
			assert.Equal(t, wins, after.WinningTrades)
			assert.Equal(t, total, after.TotalProfit)
			assert.Equal(t, total/int64(i+1), after.AvgReturn)
		}

		perf, err := f.vault.GetStrategyPerformance(context.Background(), "MACD")
		require.NoError(t, err)
		assert.Equal(t, int64(-143/4), perf.AvgReturn)
		assert.Equal(t, int64(-35), perf.AvgReturn)

		other, err := f.vault.GetStrategyPerformance(context.Background(), "LSTM")
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyPerformance{Strategy: "LSTM"}, *other)
	})

	t.Run("journal records trades", func(t *testing.T) {
		f := initialized(t)
		for i := 0; i < 3; i++ {
			id := f.approved(t, btcSignal())
			_, err := f.vault.ExecuteTrade(f.payment(), id, 10, int64(i))
			require.NoError(t, err)
		}

		trades, err := f.vault.StrategyTrades(context.Background(), "LSTM")
		require.NoError(t, err)
		require.Len(t, trades, 3)
		for i, tr := range trades {
			assert.Equal(t, uint64(i+1), tr.TradeID)
		}
	})
}

func TestSettlement(t *testing.T) {
	t.Run("buy pays out the settlement currency", func(t *testing.T) {
		f := initialized(t)
		f.ledger.Credit(usdc, vaultAcct, 1_000_000)

		id := f.approved(t, btcSignal())
		_, err := f.vault.ExecuteTrade(f.payment(), id, 1, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(900_000), f.ledger.Balance(usdc, vaultAcct))
		assert.Equal(t, int64(100_000), f.ledger.Balance(usdc, f.agents.PaymentAgent))
	})

	t.Run("sell moves the traded asset", func(t *testing.T) {
		f := initialized(t)
		f.ledger.Credit("BTC", vaultAcct, 300_000)

		req := btcSignal()
		req.Action = domain.ActionSell
		id := f.approved(t, req)
		_, err := f.vault.ExecuteTrade(f.payment(), id, 1, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(200_000), f.ledger.Balance("BTC", vaultAcct))
		assert.Equal(t, int64(100_000), f.ledger.Balance("BTC", f.agents.PaymentAgent))
	})

	t.Run("hold moves nothing", func(t *testing.T) {
		f := initialized(t)
		req := btcSignal()
		req.Action = domain.ActionHold
		id := f.approved(t, req)
		_, err := f.vault.ExecuteTrade(f.payment(), id, 1, 0)
		require.NoError(t, err)
		assert.Empty(t, f.ledger.History())
	})

	t.Run("failed settlement keeps the trade", func(t *testing.T) {
		f := initialized(t)

		id := f.approved(t, btcSignal())
		tradeID, err := f.vault.ExecuteTrade(f.payment(), id, 1, 0)
		require.NoError(t, err)

		assert.Empty(t, f.ledger.History())
		_, err = f.vault.GetTrade(context.Background(), tradeID)
		assert.NoError(t, err)
	})

	t.Run("no settler configured", func(t *testing.T) {
		f := newFixture(t)
		v, err := New(Options{Store: f.store, Oracle: auth.CallerOracle{}, Clock: f.clock, Logger: log.New(io.Discard, "", 0)})
		require.NoError(t, err)
		f.vault = v
		require.NoError(t, v.Initialize(f.admin(), f.agents, maxPerTrade))

		id := f.approved(t, btcSignal())
		_, err = v.ExecuteTrade(f.payment(), id, 1, 0)
		require.NoError(t, err)

		_, err = v.RiskEvaluations(context.Background(), id)
		assert.ErrorIs(t, err, ErrAuditDisabled)
		_, err = v.StrategyTrades(context.Background(), "LSTM")
		assert.ErrorIs(t, err, ErrAuditDisabled)
	})
}

func TestHalt(t *testing.T) {
	f := initialized(t)

	approvedID := f.approved(t, btcSignal())
	pendingID, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
	require.NoError(t, err)

	require.NoError(t, f.vault.EmergencyHalt(f.admin()))
	ok, err := f.vault.IsOperational(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	signals := f.counter(t, storage.CounterSignal)
	for i := 0; i < 3; i++ {
		_, err = f.vault.SubmitTradingSignal(f.trading(), btcSignal())
		assert.ErrorIs(t, err, ErrSystemHalted)
	}
	assert.Equal(t, signals, f.counter(t, storage.CounterSignal))

	_, err = f.vault.ApproveTrade(f.risk(), pendingID, passingMetrics())
	assert.ErrorIs(t, err, ErrSystemHalted)
	_, err = f.vault.ExecuteTrade(f.payment(), approvedID, 1, 1)
	assert.ErrorIs(t, err, ErrSystemHalted)
	assert.Zero(t, f.counter(t, storage.CounterTrade))

	_, err = f.vault.CreateSnapshot(f.trading(), 10, 1, 0)
	assert.NoError(t, err)
	assert.NoError(t, f.vault.UpdateRiskLimits(f.admin(), 400, 120))

	require.NoError(t, f.vault.ResumeTrading(f.admin()))
	ok, err = f.vault.IsOperational(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.vault.ExecuteTrade(f.payment(), approvedID, 1, 1)
	assert.NoError(t, err)
	next, err := f.vault.SubmitTradingSignal(f.trading(), btcSignal())
	require.NoError(t, err)
	assert.Equal(t, signals+1, next)
}

func TestCreateSnapshot(t *testing.T) {
	t.Run("example scenario", func(t *testing.T) {
		f := initialized(t)

		id, err := f.vault.CreateSnapshot(f.trading(), 1_000_000*10_000_000, 5, 1500)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)

		latest, err := f.vault.GetLatestSnapshot(context.Background())
		require.NoError(t, err)
		assert.Zero(t, latest.TotalTrades)
		assert.Equal(t, uint32(5), latest.NumAssets)
		assert.Equal(t, int64(10_000_000_000_000), latest.TotalValue)
		assert.Equal(t, int32(1500), latest.CumulativeReturn)
		assert.Equal(t, startTime, latest.Timestamp)

		byID, err := f.vault.GetSnapshot(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, latest, byID)
	})

	t.Run("carries the trade count", func(t *testing.T) {
		f := initialized(t)
		for i := 0; i < 2; i++ {
			id := f.approved(t, btcSignal())
			_, err := f.vault.ExecuteTrade(f.payment(), id, 1, 1)
			require.NoError(t, err)
		}

		_, err := f.vault.CreateSnapshot(f.trading(), 1, 1, 0)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
		id, err := f.vault.CreateSnapshot(f.trading(), 2, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), id)

		latest, err := f.vault.GetLatestSnapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(2), latest.SnapshotID)
		assert.Equal(t, uint64(2), latest.TotalTrades)
		assert.Equal(t, int64(2), latest.TotalValue)

		assert.Equal(t, uint64(2), f.counter(t, storage.CounterTrade))
	})

	t.Run("only the trading agent", func(t *testing.T) {
		f := initialized(t)
		for _, ctx := range []context.Context{f.admin(), f.risk(), f.payment()} {
			_, err := f.vault.CreateSnapshot(ctx, 1, 1, 1)
			assert.ErrorIs(t, err, ErrUnauthorized)
		}
		assert.Zero(t, f.counter(t, storage.CounterSnapshot))

		latest, err := f.vault.GetLatestSnapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.PortfolioSnapshot{}, *latest)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := initialized(t)
		_, err := f.vault.GetSnapshot(context.Background(), 3)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestIdentifiersStrictlyIncrease(t *testing.T) {
	f := initialized(t)

	var signals, trades, snaps []uint64
	for i := 0; i < 5; i++ {
		id := f.approved(t, btcSignal())
		signals = append(signals, id)

		// failed and read-only calls in between
		_, _ = f.vault.ExecuteTrade(f.trading(), id, 1, 1)
		_, _ = f.vault.GetTrade(context.Background(), 99)

		tradeID, err := f.vault.ExecuteTrade(f.payment(), id, 1, 1)
		require.NoError(t, err)
		trades = append(trades, tradeID)

		snapID, err := f.vault.CreateSnapshot(f.trading(), 1, 1, 1)
		require.NoError(t, err)
		snaps = append(snaps, snapID)
	}

	want := []uint64{1, 2, 3, 4, 5}
	assert.Equal(t, want, signals)
	assert.Equal(t, want, trades)
	assert.Equal(t, want, snaps)
}

// signedVaults returns two vaults over one store, as two replicas or one
// process before and after a restart would see it.
func signedVaults(t *testing.T, store storage.Store) (*Vault, *Vault) {
	t.Helper()
	newVault := func() *Vault {
		v, err := New(Options{
			Store:  store,
			Oracle: auth.NewSignatureOracle(),
			Audit:  memory.NewAuditSink(),
			Logger: log.New(io.Discard, "", 0),
		})
		require.NoError(t, err)
		return v
	}
	return newVault(), newVault()
}

func signed(priv ed25519.PrivateKey, nonce uint64, op string, args ...string) context.Context {
	inv := auth.NewInvocation(auth.IdentityOf(priv), nonce, op, args...)
	inv.Sign(priv)
	return auth.WithInvocation(context.Background(), inv)
}

func TestSignedInvocationNonces(t *testing.T) {
	newKey := func() (string, ed25519.PrivateKey) {
		id, priv, err := auth.GenerateKey(rand.Reader)
		require.NoError(t, err)
		return id, priv
	}
	adminID, adminKey := newKey()
	tradingID, tradingKey := newKey()
	agents := Agents{Admin: adminID, TradingAgent: tradingID, RiskAgent: newIdentity(t), PaymentAgent: newIdentity(t)}

	nonceOf := func(store storage.Store, signer string) uint64 {
		var n uint64
		require.NoError(t, store.View(context.Background(), func(tx storage.ReadTx) error {
			var err error
			n, err = tx.Nonce(context.Background(), signer)
			return err
		}))
		return n
	}

	setup := func(t *testing.T) (storage.Store, *Vault, *Vault) {
		store := memory.NewStore()
		a, b := signedVaults(t, store)
		require.NoError(t, a.Initialize(signed(adminKey, 1, OpInitialize), agents, maxPerTrade))
		return store, a, b
	}

	t.Run("initialize stores the admin nonce", func(t *testing.T) {
		store, _, b := setup(t)
		assert.Equal(t, uint64(1), nonceOf(store, adminID))

		err := b.Initialize(signed(adminKey, 1, OpInitialize), agents, maxPerTrade)
		assert.ErrorIs(t, err, auth.ErrReplayedNonce)
	})

	t.Run("replay through another instance", func(t *testing.T) {
		store, a, b := setup(t)

		resume := signed(adminKey, 6, OpResumeTrading)
		require.NoError(t, a.EmergencyHalt(signed(adminKey, 5, OpEmergencyHalt)))
		require.NoError(t, a.ResumeTrading(resume))
		require.NoError(t, a.EmergencyHalt(signed(adminKey, 7, OpEmergencyHalt)))

		err := b.ResumeTrading(resume)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, auth.ErrReplayedNonce)

		ok, err := b.IsOperational(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, uint64(7), nonceOf(store, adminID))
	})

	t.Run("replayed submit creates one signal", func(t *testing.T) {
		store, a, b := setup(t)

		ctx := signed(tradingKey, 100, OpSubmitSignal)
		id, err := a.SubmitTradingSignal(ctx, btcSignal())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)

		_, err = b.SubmitTradingSignal(ctx, btcSignal())
		assert.ErrorIs(t, err, auth.ErrReplayedNonce)
		_, err = a.SubmitTradingSignal(signed(tradingKey, 99, OpSubmitSignal), btcSignal())
		assert.ErrorIs(t, err, auth.ErrReplayedNonce)

		var n uint64
		require.NoError(t, store.View(context.Background(), func(tx storage.ReadTx) error {
			n, err = tx.Counter(context.Background(), storage.CounterSignal)
			return err
		}))
		assert.Equal(t, uint64(1), n)
	})

	t.Run("failed transition keeps the nonce unused", func(t *testing.T) {
		store, a, b := setup(t)

		ctx := signed(tradingKey, 50, OpSubmitSignal)
		tooLarge := btcSignal()
		tooLarge.Amount = maxPerTrade + 1
		_, err := a.SubmitTradingSignal(ctx, tooLarge)
		assert.ErrorIs(t, err, ErrLimitExceeded)
		assert.Zero(t, nonceOf(store, tradingID))

		_, err = b.SubmitTradingSignal(ctx, btcSignal())
		require.NoError(t, err)
		assert.Equal(t, uint64(50), nonceOf(store, tradingID))
	})

	t.Run("nonces are per signer", func(t *testing.T) {
		store, a, _ := setup(t)

		_, err := a.SubmitTradingSignal(signed(tradingKey, 1, OpSubmitSignal), btcSignal())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), nonceOf(store, adminID))
		assert.Equal(t, uint64(1), nonceOf(store, tradingID))
	})

	t.Run("wrong signer does not consume a nonce", func(t *testing.T) {
		store, a, _ := setup(t)

		err := a.EmergencyHalt(signed(tradingKey, 9, OpEmergencyHalt))
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Zero(t, nonceOf(store, tradingID))
	})
}

func TestReadAccessors(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := initialized(t)
		ctx := context.Background()

		m, err := f.vault.GetRiskMetrics(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.RiskMetrics{}, *m)

		perf, err := f.vault.GetStrategyPerformance(ctx, "DQN")
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyPerformance{Strategy: "DQN"}, *perf)

		snap, err := f.vault.GetLatestSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.PortfolioSnapshot{}, *snap)

		n, err := f.vault.GetTotalTrades(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = f.vault.GetTrade(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.vault.GetSignal(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		f := initialized(t)
		id := f.approved(t, btcSignal())
		_, err := f.vault.ExecuteTrade(f.payment(), id, 5, 5)
		require.NoError(t, err)
		_, err = f.vault.CreateSnapshot(f.trading(), 1, 1, 1)
		require.NoError(t, err)

		read := func() []any {
			ctx := context.Background()
			cfg, err := f.vault.GetConfig(ctx)
			require.NoError(t, err)
			m, err := f.vault.GetRiskMetrics(ctx)
			require.NoError(t, err)
			tr, err := f.vault.GetTrade(ctx, 1)
			require.NoError(t, err)
			perf, err := f.vault.GetStrategyPerformance(ctx, "LSTM")
			require.NoError(t, err)
			snap, err := f.vault.GetLatestSnapshot(ctx)
			require.NoError(t, err)
			n, err := f.vault.GetTotalTrades(ctx)
			require.NoError(t, err)
			op, err := f.vault.IsOperational(ctx)
			require.NoError(t, err)
			return []any{cfg, m, tr, perf, snap, n, op}
		}

		first := read()
		f.clock.Advance(time.Hour)
		assert.Equal(t, first, read())
	})
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrUnauthorized, "unauthorized"},
		{ErrSystemHalted, "halted"},
		{ErrLimitExceeded, "limit_exceeded"},
		{storage.ErrNotFound, "not_found"},
		{ErrInvalidInput, "invalid_input"},
		{ErrSignalNotApproved, "conflict"},
		{ErrAlreadyInitialized, "conflict"},
		{context.Canceled, "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outcome(tt.err), "%v", tt.err)
	}
}
