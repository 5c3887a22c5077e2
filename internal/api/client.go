package api

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"treasury-vault/internal/auth"
	"treasury-vault/internal/domain"
	"treasury-vault/internal/vault"
)

// ErrNoSigningKey is returned by mutating Client calls made without a key.
var ErrNoSigningKey = errors.New("api: client has no signing key")

// Client calls a vaultd API. Mutating calls are signed with the client's key;
// nonces are derived from the wall clock and strictly increase per client.
type Client struct {
	http   *resty.Client
	key    ed25519.PrivateKey
	signer string

	mu        sync.Mutex
	lastNonce uint64
}

// NewClient creates a client for the server at baseURL. key may be nil for
// read-only use.
func NewClient(baseURL string, key ed25519.PrivateKey, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/") + BasePath)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	c := &Client{http: client, key: key}
	if key != nil {
		c.signer = auth.IdentityOf(key)
	}
	return c
}

// Signer returns the identity the client signs as, or "" without a key.
func (c *Client) Signer() string {
	return c.signer
}

func (c *Client) nextNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := uint64(time.Now().UnixNano())
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return n
}

// call performs one request. When op is non-empty the request is signed
// over op and req.Args().
func (c *Client) call(ctx context.Context, method, path, op string, req signable, body, out any) error {
	r := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, uuid.NewString()).
		SetError(&ErrorResponse{})

	if op != "" {
		if c.key == nil {
			return ErrNoSigningKey
		}
		inv := auth.NewInvocation(c.signer, c.nextNonce(), op, req.Args()...)
		inv.Sign(c.key)
		r.SetHeader(HeaderSigner, inv.Signer).
			SetHeader(HeaderNonce, fmt.Sprint(inv.Nonce)).
			SetHeader(HeaderSignature, base58.Encode(inv.Signature))
	}
	if body != nil {
		r.SetBody(body)
	}
	if out != nil {
		r.SetResult(out)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &Error{Status: resp.StatusCode(), Message: resp.Status()}
		if e, ok := resp.Error().(*ErrorResponse); ok && e.Code != "" {
			apiErr.Code = e.Code
			apiErr.Message = e.Error
			apiErr.RequestID = e.RequestID
		}
		return apiErr
	}
	return nil
}

// Initialize initializes the vault. The client must hold the admin key.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*ConfigView, error) {
	var out ConfigView
	if err := c.call(ctx, http.MethodPost, "/initialize", vault.OpInitialize, req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRiskLimits(ctx context.Context, maxVaR95, minSharpeRatio int32) error {
	req := RiskLimitsRequest{MaxVaR95: maxVaR95, MinSharpeRatio: minSharpeRatio}
	return c.call(ctx, http.MethodPut, "/config/risk-limits", vault.OpUpdateRiskLimits, req, req, nil)
}

func (c *Client) UpdateTradingLimit(ctx context.Context, maxSingleTrade int64) error {
	req := TradingLimitRequest{MaxSingleTrade: maxSingleTrade}
	return c.call(ctx, http.MethodPut, "/config/trading-limit", vault.OpUpdateTradingLimit, req, req, nil)
}

func (c *Client) SetDynamicStopLoss(ctx context.Context, enabled bool) error {
	req := DynamicStopLossRequest{Enabled: enabled}
	return c.call(ctx, http.MethodPut, "/config/dynamic-stop-loss", vault.OpSetDynamicStopLoss, req, req, nil)
}

func (c *Client) RotateAgent(ctx context.Context, role domain.Role, identity string) error {
	req := RotateAgentRequest{Role: domain.Role(strings.ToUpper(string(role))), Identity: identity}
	path := "/config/agents/" + url.PathEscape(string(req.Role))
	return c.call(ctx, http.MethodPut, path, vault.OpRotateAgent, req, req, nil)
}

func (c *Client) EmergencyHalt(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/halt", vault.OpEmergencyHalt, noArgs{}, nil, nil)
}

func (c *Client) ResumeTrading(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/resume", vault.OpResumeTrading, noArgs{}, nil, nil)
}

func (c *Client) SubmitTradingSignal(ctx context.Context, req SignalRequest) (uint64, error) {
	var out SignalIDResponse
	if err := c.call(ctx, http.MethodPost, "/signals", vault.OpSubmitSignal, req, req, &out); err != nil {
		return 0, err
	}
	return out.SignalID, nil
}

func (c *Client) ApproveTrade(ctx context.Context, signalID uint64, metrics RiskMetricsBody) (bool, error) {
	req := ApproveRequest{SignalID: signalID, Metrics: metrics}
	var out ApproveResponse
	path := fmt.Sprintf("/signals/%d/approve", signalID)
	if err := c.call(ctx, http.MethodPost, path, vault.OpApproveTrade, req, req, &out); err != nil {
		return false, err
	}
	return out.Approved, nil
}

func (c *Client) ExecuteTrade(ctx context.Context, signalID uint64, executedPrice, profitLoss int64) (uint64, error) {
	req := ExecuteRequest{SignalID: signalID, ExecutedPrice: executedPrice, ProfitLoss: profitLoss}
	var out TradeIDResponse
	path := fmt.Sprintf("/signals/%d/execute", signalID)
	if err := c.call(ctx, http.MethodPost, path, vault.OpExecuteTrade, req, req, &out); err != nil {
		return 0, err
	}
	return out.TradeID, nil
}

func (c *Client) CreateSnapshot(ctx context.Context, req SnapshotRequest) (uint64, error) {
	var out SnapshotIDResponse
	if err := c.call(ctx, http.MethodPost, "/snapshots", vault.OpCreateSnapshot, req, req, &out); err != nil {
		return 0, err
	}
	return out.SnapshotID, nil
}

// Read accessors

func (c *Client) Config(ctx context.Context) (*ConfigView, error) {
	var out ConfigView
	if err := c.call(ctx, http.MethodGet, "/config", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.call(ctx, http.MethodGet, "/status", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signal(ctx context.Context, signalID uint64) (*SignalView, error) {
	var out SignalView
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/signals/%d", signalID), "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RiskEvaluations(ctx context.Context, signalID uint64) ([]EvaluationView, error) {
	var out []EvaluationView
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/signals/%d/evaluations", signalID), "", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RiskMetrics(ctx context.Context) (*RiskMetricsBody, error) {
	var out RiskMetricsBody
	if err := c.call(ctx, http.MethodGet, "/risk-metrics", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Trade(ctx context.Context, tradeID uint64) (*TradeView, error) {
	var out TradeView
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/trades/%d", tradeID), "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Strategy(ctx context.Context, name string) (*StrategyView, error) {
	var out StrategyView
	if err := c.call(ctx, http.MethodGet, "/strategies/"+url.PathEscape(name), "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StrategyTrades(ctx context.Context, name string) ([]TradeView, error) {
	var out []TradeView
	if err := c.call(ctx, http.MethodGet, "/strategies/"+url.PathEscape(name)+"/trades", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Snapshot(ctx context.Context, snapshotID uint64) (*SnapshotView, error) {
	var out SnapshotView
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/snapshots/%d", snapshotID), "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LatestSnapshot(ctx context.Context) (*SnapshotView, error) {
	var out SnapshotView
	if err := c.call(ctx, http.MethodGet, "/snapshot", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
