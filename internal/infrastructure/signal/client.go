package signal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/pkg/retry"
)

// ClientOptions carries dial tuning for the signaling client.
type ClientOptions struct {
	DialTimeout  time.Duration
	DialAttempts int
	WriteTimeout time.Duration
}

// Client is the participant side of the signaling channel over a websocket.
// Emit is safe for concurrent use; the events channel is closed once the
// read loop ends.
type Client struct {
	conn   *websocket.Conn
	events chan ports.Event

	writeMu   sync.Mutex
	timeout   time.Duration
	connected atomic.Bool

	logger *zap.SugaredLogger
}

// Dial connects to the signaling server with exponential backoff and starts
// the read loop.
func Dial(ctx context.Context, url string, opts ClientOptions, logger *zap.SugaredLogger) (*Client, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.DialAttempts <= 0 {
		opts.DialAttempts = 3
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = opts.DialAttempts - 1

	var conn *websocket.Conn
	err := retry.Retry(ctx, retryCfg, func() error {
		var dialErr error
		conn, _, dialErr = dialer.DialContext(ctx, url, nil)
		if dialErr != nil {
			logger.Warnw("signaling dial failed", "url", url, "error", dialErr)
		}
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signaling server %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		events:  make(chan ports.Event, 32),
		timeout: opts.WriteTimeout,
		logger:  logger,
	}
	c.connected.Store(true)

	logger.Infow("connected to signaling server", "url", url)
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer func() {
		c.connected.Store(false)
		close(c.events)
	}()

	for {
		var ev ports.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warnw("signaling read failed", "error", err)
			}
			return
		}
		c.events <- ev
	}
}

func (c *Client) Emit(ev ports.Event) error {
	if !c.connected.Load() {
		return fmt.Errorf("signaling connection is closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("failed to emit %s: %w", ev.Type, err)
	}
	return nil
}

func (c *Client) Events() <-chan ports.Event {
	return c.events
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	c.connected.Store(false)
	return c.conn.Close()
}
