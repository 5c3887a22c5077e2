package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"treasury-vault/internal/domain"
	"treasury-vault/internal/vault"
)

// Configuration and admin

func (s *Server) handleInitialize(c *gin.Context) {
	var req InitializeRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	s.invoke(c, vault.OpInitialize, req, http.StatusCreated, func(ctx context.Context) (any, error) {
		agents := vault.Agents{
			Admin:        req.Admin,
			TradingAgent: req.TradingAgent,
			RiskAgent:    req.RiskAgent,
			PaymentAgent: req.PaymentAgent,
		}
		if err := s.vault.Initialize(ctx, agents, req.MaxSingleTrade); err != nil {
			return nil, err
		}
		cfg, err := s.vault.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		return newConfigView(cfg), nil
	})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, err := s.vault.GetConfig(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newConfigView(cfg))
}

func (s *Server) handleUpdateRiskLimits(c *gin.Context) {
	var req RiskLimitsRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	s.invoke(c, vault.OpUpdateRiskLimits, req, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, s.vault.UpdateRiskLimits(ctx, req.MaxVaR95, req.MinSharpeRatio)
	})
}

func (s *Server) handleUpdateTradingLimit(c *gin.Context) {
	var req TradingLimitRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	s.invoke(c, vault.OpUpdateTradingLimit, req, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, s.vault.UpdateTradingLimit(ctx, req.MaxSingleTrade)
	})
}

func (s *Server) handleSetDynamicStopLoss(c *gin.Context) {
	var req DynamicStopLossRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	s.invoke(c, vault.OpSetDynamicStopLoss, req, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, s.vault.SetDynamicStopLoss(ctx, req.Enabled)
	})
}

func (s *Server) handleRotateAgent(c *gin.Context) {
	var req RotateAgentRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	req.Role = domain.Role(strings.ToUpper(c.Param("role")))
	s.invoke(c, vault.OpRotateAgent, req, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, s.vault.RotateAgent(ctx, req.Role, req.Identity)
	})
}

func (s *Server) handleEmergencyHalt(c *gin.Context) {
	s.invoke(c, vault.OpEmergencyHalt, noArgs{}, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, s.vault.EmergencyHalt(ctx)
	})
}

func (s *Server) handleResumeTrading(c *gin.Context) {
	s.invoke(c, vault.OpResumeTrading, noArgs{}, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, s.vault.ResumeTrading(ctx)
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	operational, err := s.vault.IsOperational(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	total, err := s.vault.GetTotalTrades(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Operational: operational, TotalTrades: total})
}

// Signals, approval and execution

func (s *Server) handleSubmitSignal(c *gin.Context) {
	var req SignalRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	s.invoke(c, vault.OpSubmitSignal, req, http.StatusCreated, func(ctx context.Context) (any, error) {
		id, err := s.vault.SubmitTradingSignal(ctx, vault.SignalRequest{
			Asset:          req.Asset,
			Action:         domain.Action(strings.ToUpper(string(req.Action))),
			Amount:         req.Amount,
			Strategy:       req.Strategy,
			Confidence:     req.Confidence,
			ExpectedReturn: req.ExpectedReturn,
		})
		if err != nil {
			return nil, err
		}
		return SignalIDResponse{SignalID: id}, nil
	})
}

func (s *Server) handleGetSignal(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	sig, err := s.vault.GetSignal(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSignalView(sig))
}

func (s *Server) handleApproveTrade(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req ApproveRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	req.SignalID = id
	s.invoke(c, vault.OpApproveTrade, req, http.StatusOK, func(ctx context.Context) (any, error) {
		approved, err := s.vault.ApproveTrade(ctx, req.SignalID, req.Metrics.toDomain())
		if err != nil {
			return nil, err
		}
		return ApproveResponse{Approved: approved}, nil
	})
}

func (s *Server) handleExecuteTrade(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req ExecuteRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	req.SignalID = id
	s.invoke(c, vault.OpExecuteTrade, req, http.StatusCreated, func(ctx context.Context) (any, error) {
		tradeID, err := s.vault.ExecuteTrade(ctx, req.SignalID, req.ExecutedPrice, req.ProfitLoss)
		if err != nil {
			return nil, err
		}
		return TradeIDResponse{TradeID: tradeID}, nil
	})
}

func (s *Server) handleRiskEvaluations(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	evals, err := s.vault.RiskEvaluations(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]EvaluationView, 0, len(evals))
	for _, e := range evals {
		views = append(views, newEvaluationView(e))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetRiskMetrics(c *gin.Context) {
	m, err := s.vault.GetRiskMetrics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRiskMetricsBody(m))
}

// Trades and strategies

func (s *Server) handleGetTrade(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	trade, err := s.vault.GetTrade(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTradeView(trade))
}

func (s *Server) handleGetStrategy(c *gin.Context) {
	perf, err := s.vault.GetStrategyPerformance(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newStrategyView(perf))
}

func (s *Server) handleStrategyTrades(c *gin.Context) {
	trades, err := s.vault.StrategyTrades(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}
	c.JSON(http.StatusOK, views)
}

// Snapshots

func (s *Server) handleCreateSnapshot(c *gin.Context) {
	var req SnapshotRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	s.invoke(c, vault.OpCreateSnapshot, req, http.StatusCreated, func(ctx context.Context) (any, error) {
		id, err := s.vault.CreateSnapshot(ctx, req.TotalValue, req.NumAssets, req.CumulativeReturn)
		if err != nil {
			return nil, err
		}
		return SnapshotIDResponse{SnapshotID: id}, nil
	})
}

func (s *Server) handleGetSnapshot(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	snap, err := s.vault.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSnapshotView(snap))
}

func (s *Server) handleGetLatestSnapshot(c *gin.Context) {
	snap, err := s.vault.GetLatestSnapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSnapshotView(snap))
}
