package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	drepo "FinAdvisor/internal/domain/repository"
	"FinAdvisor/pkg/logger"
)

// Client implements a PriceStream backed by Finnhub WebSocket.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a new Finnhub PriceStream.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("finnhub connected", logger.Int("symbols", len(c.symbols)))
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("finnhub not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.log.Debug("finnhub subscribed", logger.Strings("symbols", c.symbols))
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// decodeTicks extracts price ticks from a frame; non-trade frames yield none.
func decodeTicks(b []byte) []*drepo.PriceTick {
	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
		return nil
	}
	out := make([]*drepo.PriceTick, 0, len(m.Data))
	for _, d := range m.Data {
		out = append(out, &drepo.PriceTick{Symbol: d.S, Timestamp: d.T / 1000, Price: d.P, Volume: d.V})
	}
	return out
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Read streams price ticks and errors.
func (c *Client) Read(ctx context.Context) (<-chan *drepo.PriceTick, <-chan error) {
	ticks := make(chan *drepo.PriceTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
				c.mu.Unlock()
			}
		}
	}()

	// read loop
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			var err error
			var b []byte
			if conn := c.current(); conn != nil {
				_, b, err = conn.ReadMessage()
			} else {
				err = fmt.Errorf("not connected")
			}
			if err != nil {
				select {
				case errs <- fmt.Errorf("finnhub read: %w", err):
				default:
				}
				// wait for the consumer to reconnect, then resume on the new conn
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.reconnectDelay):
				}
				continue
			}
			for _, t := range decodeTicks(b) {
				select {
				case ticks <- t:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

var _ drepo.PriceStream = (*Client)(nil)
