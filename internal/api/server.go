// Package api exposes the vault over HTTP.
//
// Mutating endpoints take a signed invocation in the X-Vault-Signer,
// X-Vault-Nonce and X-Vault-Signature headers. The signature covers the
// operation name and the request's canonical Args, so the server rebuilds
// the same digest from the decoded body and path parameters.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"treasury-vault/internal/auth"
	"treasury-vault/internal/observability"
	"treasury-vault/internal/vault"
)

// Headers
const (
	HeaderSigner    = "X-Vault-Signer"
	HeaderNonce     = "X-Vault-Nonce"
	HeaderSignature = "X-Vault-Signature" // base58
	HeaderRequestID = "X-Request-ID"
)

// BasePath prefixes every vault route.
const BasePath = "/api/v1"

const requestIDKey = "request_id"

// Server serves the vault API.
type Server struct {
	vault  *vault.Vault
	engine *gin.Engine
	logger *log.Logger
}

// Options contains configuration for creating a Server.
type Options struct {
	Vault *vault.Vault // required

	// ServeMetrics mounts the Prometheus handler on /metrics.
	ServeMetrics bool

	Logger *log.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Vault == nil {
		return nil, errors.New("api: vault is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{vault: opts.Vault, engine: engine, logger: logger}
	engine.Use(gin.Recovery(), requestID(), s.instrument())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.ServeMetrics {
		engine.GET("/metrics", gin.WrapH(observability.Handler()))
	}
	s.register(engine.Group(BasePath))

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) register(g *gin.RouterGroup) {
	g.POST("/initialize", s.handleInitialize)

	g.GET("/config", s.handleGetConfig)
	g.PUT("/config/risk-limits", s.handleUpdateRiskLimits)
	g.PUT("/config/trading-limit", s.handleUpdateTradingLimit)
	g.PUT("/config/dynamic-stop-loss", s.handleSetDynamicStopLoss)
	g.PUT("/config/agents/:role", s.handleRotateAgent)
	g.POST("/halt", s.handleEmergencyHalt)
	g.POST("/resume", s.handleResumeTrading)
	g.GET("/status", s.handleStatus)

	g.POST("/signals", s.handleSubmitSignal)
	g.GET("/signals/:id", s.handleGetSignal)
	g.POST("/signals/:id/approve", s.handleApproveTrade)
	g.POST("/signals/:id/execute", s.handleExecuteTrade)
	g.GET("/signals/:id/evaluations", s.handleRiskEvaluations)
	g.GET("/risk-metrics", s.handleGetRiskMetrics)

	g.GET("/trades/:id", s.handleGetTrade)
	g.GET("/strategies/:name", s.handleGetStrategy)
	g.GET("/strategies/:name/trades", s.handleStrategyTrades)

	g.POST("/snapshots", s.handleCreateSnapshot)
	g.GET("/snapshots/:id", s.handleGetSnapshot)
	g.GET("/snapshot", s.handleGetLatestSnapshot)
}

// requestID propagates or assigns an X-Request-ID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// instrument logs each request and records HTTP metrics by route template.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observability.RecordHTTPRequest(c.Request.Method, route, status, dur.Seconds())
		s.logger.Printf("%s %s %d %s rid=%s", c.Request.Method, c.Request.URL.Path, status, dur, c.GetString(requestIDKey))
	}
}

// signable is a request whose canonical arguments are covered by the signature.
type signable interface {
	Args() []string
}

// invocationContext attaches the signed invocation from the request headers.
// Without a signer header the context is returned as is and the vault
// reports the call as unauthenticated.
func invocationContext(c *gin.Context, op string, req signable) (context.Context, error) {
	ctx := c.Request.Context()

	signer := c.GetHeader(HeaderSigner)
	if signer == "" {
		return ctx, nil
	}
	nonce, err := strconv.ParseUint(c.GetHeader(HeaderNonce), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad %s header", vault.ErrInvalidInput, HeaderNonce)
	}
	sig, err := base58.Decode(c.GetHeader(HeaderSignature))
	if err != nil || len(sig) == 0 {
		return nil, fmt.Errorf("%w: bad %s header", vault.ErrInvalidInput, HeaderSignature)
	}

	inv := auth.NewInvocation(signer, nonce, op, req.Args()...)
	inv.Signature = sig
	return auth.WithInvocation(ctx, inv), nil
}

// invoke runs a mutating vault call with the request's signed invocation.
func (s *Server) invoke(c *gin.Context, op string, req signable, status int, call func(ctx context.Context) (any, error)) {
	ctx, err := invocationContext(c, op, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := call(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	if out == nil {
		c.Status(status)
		return
	}
	c.JSON(status, out)
}

// fail writes err as an ErrorResponse.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Printf("Request %s failed: %v", c.GetString(requestIDKey), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: c.GetString(requestIDKey),
	})
}

func parseID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad id %q", vault.ErrInvalidInput, c.Param("id"))
	}
	return id, nil
}

func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("%w: %v", vault.ErrInvalidInput, err)
	}
	return nil
}
