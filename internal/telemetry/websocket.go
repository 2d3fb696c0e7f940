package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Bridge message types.
const (
	TypeSubscribe = "subscribe"
	TypeValue     = "value"
	TypeDelete    = "delete"
)

// Message is the JSON envelope exchanged with the NetworkTables bridge.
type Message struct {
	Type  string   `json:"type"`
	Key   string   `json:"key,omitempty"`
	Value string   `json:"value,omitempty"`
	Keys  []string `json:"keys,omitempty"`
}

// ErrClientClosed is returned by Connect after Close.
var ErrClientClosed = errors.New("telemetry client closed")

// BridgeURL builds the websocket URL of the bridge running on host.
func BridgeURL(host string, port int, path string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   host + ":" + strconv.Itoa(port),
		Path:   path,
	}
	return u.String()
}

// WSClient is a Client fed by a NetworkTables websocket bridge.
// It subscribes to a fixed set of keys and caches the latest value of each.
// Cached values survive reconnects, like a NetworkTables client keeps its last values.
type WSClient struct {
	url    string
	keys   []string
	logger *slog.Logger
	dialer *ws.Dialer

	mu        sync.RWMutex
	values    map[string]string
	conn      *ws.Conn
	connected bool
	closed    bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a client for the bridge at rawURL. Call Connect to start it.
func NewWSClient(rawURL string, keys []string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		url:    rawURL,
		keys:   keys,
		logger: logger,
		dialer: ws.DefaultDialer,
		values: make(map[string]string),
		done:   make(chan struct{}),
	}
}

// Connect dials the bridge, subscribes, and starts the read loop.
// After the first successful dial, dropped connections are retried in the background.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClientClosed
	}

	conn, err := c.dialOnce(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	c.connected = true
	c.wg.Add(1)
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// GetString returns the latest value received for key, or def.
func (c *WSClient) GetString(key, def string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Connected reports whether the bridge connection is currently up.
func (c *WSClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close stops the read loop and closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}

// dialOnce connects and sends the subscription.
func (c *WSClient) dialOnce(ctx context.Context) (*ws.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	data, err := json.Marshal(Message{Type: TypeSubscribe, Keys: c.keys})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to marshal subscription: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("websocket SetWriteDeadline error: %w", err)
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send subscription: %w", err)
	}

	c.logger.Info("Connected to telemetry bridge", "url", c.url, "keys", c.keys)
	return conn, nil
}

func (c *WSClient) setConn(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = conn != nil
	c.mu.Unlock()
}

// readLoop applies updates until the connection drops, then reconnects.
// It is the only goroutine that replaces c.conn after Connect.
func (c *WSClient) readLoop(conn *ws.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.setConn(nil)
			conn.Close()
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("Telemetry bridge connection lost", "error", err)

			conn = c.reconnect()
			if conn == nil {
				return
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("Ignoring malformed bridge message", "error", err)
			continue
		}
		c.apply(msg)
	}
}

func (c *WSClient) apply(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case TypeValue:
		c.values[msg.Key] = msg.Value
	case TypeDelete:
		delete(c.values, msg.Key)
	}
}

// reconnect retries with exponential backoff until it succeeds or the client is closed.
// Returns nil when closed.
func (c *WSClient) reconnect() *ws.Conn {
	backoff := minBackoff
	for {
		select {
		case <-c.done:
			return nil
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		conn, err := c.dialOnce(ctx)
		cancel()
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				conn.Close()
				return nil
			}
			c.conn = conn
			c.connected = true
			c.mu.Unlock()
			return conn
		}

		c.logger.Debug("Telemetry bridge reconnect failed", "error", err, "backoff", backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
