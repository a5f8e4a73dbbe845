package servicerfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 90 * time.Second
	maxBackoff   = 2 * time.Minute
)

// frame is the servicer feed wire envelope, both directions.
type frame struct {
	Op      string          `json:"op"`                // subscribe | event | error
	TradeID int64           `json:"tradeId,omitempty"` // subscribe
	Data    json.RawMessage `json:"data,omitempty"`    // event body
	Message string          `json:"message,omitempty"` // error detail
}

// Client is the WebSocket client for the servicer's push feed. It
// authenticates with a bearer token, subscribes per trade, hands event
// frames to the Applier, and reconnects with backoff when the feed drops.
type Client struct {
	url     string
	token   string
	applier *Applier
	logger  *zap.Logger

	conn        *websocket.Conn
	connMu      sync.Mutex
	connected   bool
	connectedMu sync.RWMutex

	trades   map[int64]struct{} // subscriptions, replayed on reconnect
	tradesMu sync.Mutex

	done    chan struct{}
	closeMu sync.Once
	backoff time.Duration
}

// NewClient creates a feed client. token is the servicer-issued feed token.
func NewClient(url, token string, applier *Applier, logger *zap.Logger) *Client {
	return &Client{
		url:     url,
		token:   token,
		applier: applier,
		logger:  logger,
		trades:  make(map[int64]struct{}),
		done:    make(chan struct{}),
		backoff: 5 * time.Second,
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. Existing trade subscriptions are replayed.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("servicerfeed.connecting", zap.String("url", c.url))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{"Authorization": []string{"Token " + c.token}}

	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("failed to connect to servicer feed: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.setConnected(true)
	c.backoff = 5 * time.Second

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	c.logger.Info("servicerfeed.connected")

	go c.readLoop(conn)
	go c.pingLoop(conn)

	return c.resubscribe()
}

// Subscribe asks the feed for events on one trade's loans.
func (c *Client) Subscribe(tradeID int64) error {
	c.tradesMu.Lock()
	c.trades[tradeID] = struct{}{}
	c.tradesMu.Unlock()

	if !c.IsConnected() {
		return nil // sent on (re)connect
	}
	return c.send(frame{Op: "subscribe", TradeID: tradeID})
}

func (c *Client) resubscribe() error {
	c.tradesMu.Lock()
	ids := make([]int64, 0, len(c.trades))
	for id := range c.trades {
		ids = append(ids, id)
	}
	c.tradesMu.Unlock()

	for _, id := range ids {
		if err := c.send(frame{Op: "subscribe", TradeID: id}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) send(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected to servicer feed")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.setConnected(false)
		c.logger.Info("servicerfeed.read_loop_exited")
	}()

	for {
		select {
		case <-c.done:
			return
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Info("servicerfeed.closed_normally")
					return
				}
				select {
				case <-c.done:
					return
				default:
				}
				c.logger.Error("servicerfeed.read_failed", zap.Error(err))
				c.scheduleReconnect()
				return
			}

			var f frame
			if err := json.Unmarshal(message, &f); err != nil {
				c.logger.Error("servicerfeed.frame_unmarshal_failed", zap.Error(err))
				continue
			}
			c.handleFrame(f)
		}
	}
}

func (c *Client) handleFrame(f frame) {
	switch f.Op {
	case "event":
		var ev model.ServicerEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			c.logger.Error("servicerfeed.event_unmarshal_failed", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.applier.Apply(ctx, ev); err != nil {
			c.logger.Error("servicerfeed.apply_failed",
				zap.String("loan_number", ev.LoanNumber),
				zap.Error(err))
		}
		cancel()
	case "error":
		c.logger.Warn("servicerfeed.server_error", zap.String("message", f.Message))
	default:
		c.logger.Debug("servicerfeed.unhandled_frame", zap.String("op", f.Op))
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.IsConnected() {
				return
			}
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Warn("servicerfeed.ping_failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) scheduleReconnect() {
	delay := c.backoff
	c.backoff *= 2
	if c.backoff > maxBackoff {
		c.backoff = maxBackoff
	}
	c.logger.Info("servicerfeed.reconnect_scheduled", zap.Duration("delay", delay))

	time.AfterFunc(delay, func() {
		select {
		case <-c.done:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Connect(ctx); err != nil {
			c.logger.Error("servicerfeed.reconnect_failed", zap.Error(err))
			c.scheduleReconnect()
		}
	})
}

// IsConnected reports whether the feed session is up.
func (c *Client) IsConnected() bool {
	c.connectedMu.RLock()
	defer c.connectedMu.RUnlock()
	return c.connected
}

func (c *Client) setConnected(connected bool) {
	c.connectedMu.Lock()
	defer c.connectedMu.Unlock()
	c.connected = connected
}

// Close shuts the session down for good; no reconnect follows.
func (c *Client) Close() error {
	c.closeMu.Do(func() { close(c.done) })
	c.setConnected(false)
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
