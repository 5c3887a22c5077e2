package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures the settlement gateway client.
type WSClientConfig struct {
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// RequestTimeout bounds one transfer round trip.
	RequestTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default gateway client configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		RequestTimeout:   30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// GatewayError is a JSON-RPC error returned by the settlement gateway.
type GatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

// WSClient is a Settler that submits transfers to a settlement gateway
// speaking JSON-RPC 2.0 over a websocket. A dropped connection fails all
// in-flight transfers; the next Transfer redials.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex // guards conn and serializes writes
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to the channel waiting for its response
	pending   map[uint64]chan wsResponse
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

var _ Settler = (*WSClient)(nil)

// NewWSClient creates a client and connects to the gateway.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		pending:  make(map[uint64]chan wsResponse),
		done:     make(chan struct{}),
	}

	c.connMu.Lock()
	err := c.connectLocked(ctx)
	c.connMu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// connectLocked dials the gateway and starts a reader. Caller holds connMu.
func (c *WSClient) connectLocked(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

// Transfer implements Settler.
func (c *WSClient) Transfer(ctx context.Context, t Transfer) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := t.Validate(); err != nil {
		return err
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "transfer",
		Params:  []Transfer{t},
	}

	respCh := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	if err := c.write(ctx, req); err != nil {
		return err
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respCh:
		if !ok {
			return fmt.Errorf("transfer %d: connection lost", reqID)
		}
		if resp.Error != nil {
			return resp.Error
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("transfer %d: timeout after %s", reqID, c.config.RequestTimeout)
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// write sends req, redialing first if the connection was lost.
func (c *WSClient) write(ctx context.Context, req wsRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return err
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("write transfer: %w", err)
	}
	return nil
}

// Close closes the connection and fails in-flight transfers.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop dispatches responses read from conn until it fails.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.dropConn(conn)
			return
		}

		var resp wsResponse
		if err := json.Unmarshal(message, &resp); err != nil || resp.ID == 0 {
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

// dropConn forgets conn and fails every in-flight transfer.
func (c *WSClient) dropConn(conn *websocket.Conn) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      uint64     `json:"id"`
	Method  string     `json:"method"`
	Params  []Transfer `json:"params"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *GatewayError   `json:"error,omitempty"`
}
