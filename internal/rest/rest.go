// Package rest is a pooled, signed, rate-limited HTTP request
// pipeline. Every request resolves to exactly one Result: success,
// application rejection, or transport error.
package rest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/ratelimit"
)

// Signer decorates an outgoing request with authentication headers
// derived from the method, path and body.
type Signer interface {
	Sign(req *http.Request, path string, body []byte) error
}

// ResultKind discriminates the three request outcomes.
type ResultKind int

const (
	// Success: HTTP 2xx. Body carries the raw payload.
	Success ResultKind = iota
	// Rejected: the exchange answered with an error payload.
	// StatusCode and Reason are set.
	Rejected
	// TransportError: the request never completed (refused, reset,
	// timeout). Err is set. Transient by nature; the request may
	// still have reached the exchange.
	TransportError
)

// Result is the single outcome of one request.
type Result struct {
	Kind       ResultKind
	Body       []byte
	StatusCode int
	Reason     string
	Err        error
}

// Callback consumes a Result. It runs on a worker goroutine.
type Callback func(Result)

// Request describes one REST call.
type Request struct {
	Method   string
	Path     string
	Params   url.Values
	Body     []byte
	Callback Callback
}

// Client runs a fixed pool of worker sessions against one base URL.
// The rate limiter is owned here but consulted by callers that are
// subject to the order-submission quota; queries bypass it.
type Client struct {
	baseURL string
	signer  Signer
	limiter *ratelimit.Window

	httpClient *http.Client
	queue      chan Request
	wg         sync.WaitGroup
	once       sync.Once
	logger     zerolog.Logger
}

// NewClient creates a client. proxyURL may be empty.
func NewClient(baseURL string, signer Signer, limiter *ratelimit.Window, proxyURL string) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &Client{
		baseURL: baseURL,
		signer:  signer,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		queue:  make(chan Request, 256),
		logger: logging.Component("rest"),
	}, nil
}

// Start launches the worker sessions.
func (c *Client) Start(sessions int) {
	if sessions <= 0 {
		sessions = 3
	}
	for i := 0; i < sessions; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop drains the pool. Queued requests are abandoned.
func (c *Client) Stop() {
	c.once.Do(func() { close(c.queue) })
	c.wg.Wait()
}

// CheckRateLimit consumes one quota slot, logging when exhausted.
// Callers must not retry automatically.
func (c *Client) CheckRateLimit() bool {
	if c.limiter == nil {
		return true
	}
	if c.limiter.Allow() {
		return true
	}
	c.logger.Warn().Msg("request quota exhausted, dropping request")
	return false
}

// ResetRateLimit restores the quota. Driven by the timer event.
func (c *Client) ResetRateLimit() {
	if c.limiter != nil {
		c.limiter.Reset()
	}
}

// AddRequest queues a request for execution. Returns false if the
// client is saturated; the request is dropped, never blocked on.
func (c *Client) AddRequest(req Request) bool {
	select {
	case c.queue <- req:
		return true
	default:
		c.logger.Warn().
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("rest queue full, dropping request")
		return false
	}
}

func (c *Client) worker() {
	defer c.wg.Done()
	for req := range c.queue {
		c.execute(req)
	}
}

func (c *Client) execute(req Request) {
	// A panicking callback must not take the worker down; it is a
	// programming error, logged with context for forensics.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("method", req.Method).
				Str("path", req.Path).
				Interface("panic", r).
				Msg("panic in rest callback")
		}
	}()

	result := c.perform(req)
	if req.Callback != nil {
		req.Callback(result)
	}
}

func (c *Client) perform(req Request) Result {
	path := req.Path
	if len(req.Params) > 0 {
		path = path + "?" + req.Params.Encode()
	}

	httpReq, err := http.NewRequest(req.Method, c.baseURL+path, bytes.NewReader(req.Body))
	if err != nil {
		return Result{Kind: TransportError, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.signer != nil {
		if err := c.signer.Sign(httpReq, path, req.Body); err != nil {
			return Result{Kind: TransportError, Err: err}
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("transport failure")
		return Result{Kind: TransportError, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Kind: TransportError, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Kind:       Rejected,
			Body:       body,
			StatusCode: resp.StatusCode,
			Reason:     string(body),
		}
	}

	return Result{Kind: Success, Body: body, StatusCode: resp.StatusCode}
}
