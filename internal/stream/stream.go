// Package stream is a persistent authenticated WebSocket client with
// automatic reconnection. One reader goroutine dispatches packets to
// the handler; writes are serialized behind a mutex.
package stream

import (
	"context"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harborfin/tradegate/internal/logging"
)

const (
	connectTimeout = 10 * time.Second
	writeTimeout   = 5 * time.Second
	readTimeout    = 60 * time.Second
	pingInterval   = 20 * time.Second
	maxBackoff     = 60 * time.Second
)

// Handler receives connection lifecycle events and raw packets.
// OnPacket runs on the single reader goroutine and must not block on
// network I/O.
type Handler interface {
	OnConnected()
	OnDisconnected()
	OnPacket(data []byte)
}

// Client manages one WebSocket connection.
type Client struct {
	url     string
	proxy   string
	handler Handler

	mu   sync.Mutex // guards conn writes
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc

	connected atomic.Bool
	attempt   atomic.Uint32

	// backoffBase is the unit delay for exponential backoff.
	// Overridable in tests.
	backoffBase time.Duration

	logger zerolog.Logger
}

// New creates a client for the URL. proxy may be empty.
func New(rawURL, proxy string, handler Handler) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:         rawURL,
		proxy:       proxy,
		handler:     handler,
		ctx:         ctx,
		cancel:      cancel,
		backoffBase: time.Second,
		logger:      logging.Component("stream").With().Str("url", rawURL).Logger(),
	}
}

// Start performs the initial connection and launches the read loop.
// Connection loss afterwards is handled internally with backoff.
func (c *Client) Start() error {
	if err := c.connect(); err != nil {
		return err
	}
	go c.run()
	return nil
}

// Stop closes the connection and halts reconnection.
func (c *Client) Stop() {
	c.cancel()
	c.mu.Lock()
	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	c.connected.Store(false)
}

// Connected reports whether the connection is currently up.
func (c *Client) Connected() bool { return c.connected.Load() }

// SendJSON writes one JSON packet to the connection.
func (c *Client) SendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return &websocket.CloseError{Code: websocket.CloseAbnormalClosure, Text: "not connected"}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	if c.proxy != "" {
		proxyURL, err := url.Parse(c.proxy)
		if err != nil {
			return err
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	conn, _, err := dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	c.attempt.Store(0)
	c.logger.Info().Msg("websocket connected")

	c.handler.OnConnected()
	return nil
}

// run owns the read loop and the reconnect cycle.
func (c *Client) run() {
	go c.pingLoop()

	for {
		if err := c.readLoop(); err != nil {
			c.connected.Store(false)
			c.handler.OnDisconnected()
		}

		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if !c.reconnect() {
			return
		}
	}
}

func (c *Client) readLoop() error {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return nil
			default:
			}
			c.logger.Warn().Err(err).Msg("websocket read error")
			return err
		}

		c.dispatch(data)
	}
}

// dispatch isolates per-packet handling so a malformed message cannot
// crash the read loop. The raw payload is logged for forensic replay.
func (c *Client) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Str("payload", string(data)).
				Msg("panic while handling packet")
		}
	}()
	c.handler.OnPacket(data)
}

// backoffDelay computes the exponential delay for one attempt with
// jitter. The exponent is clamped before shifting so a long outage
// cannot overflow the duration into a negative, cap-bypassing value.
func (c *Client) backoffDelay(attempt uint32) time.Duration {
	delay := maxBackoff
	if shift := attempt - 1; shift < 30 {
		if d := c.backoffBase << shift; d < maxBackoff {
			delay = d
		}
	}
	delay += time.Duration(rand.Float64() * float64(c.backoffBase))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

// reconnect retries with exponential backoff plus jitter, capped at
// maxBackoff. Returns false when the client is shutting down.
func (c *Client) reconnect() bool {
	for {
		attempt := c.attempt.Add(1)
		delay := c.backoffDelay(attempt)

		c.logger.Warn().
			Uint32("attempt", attempt).
			Dur("delay", delay).
			Msg("websocket reconnecting")

		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.logger.Error().Err(err).Msg("reconnect attempt failed")
			continue
		}
		return true
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			if conn != nil {
				conn.WriteControl(
					websocket.PingMessage, nil,
					time.Now().Add(writeTimeout),
				)
			}
			c.mu.Unlock()
		}
	}
}
