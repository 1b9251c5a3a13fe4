package coinbase

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborfin/tradegate/internal/ratelimit"
	"github.com/harborfin/tradegate/internal/rest"
	"github.com/harborfin/tradegate/internal/types"
)

// captureSink records every pushed event for assertions.
type captureSink struct {
	mu        sync.Mutex
	ticks     []types.TickData
	orders    []types.OrderData
	trades    []types.TradeData
	positions []types.PositionData
	accounts  []types.AccountData
	contracts []types.ContractData
}

func (s *captureSink) OnTick(t types.TickData) {
	s.mu.Lock()
	s.ticks = append(s.ticks, t)
	s.mu.Unlock()
}

func (s *captureSink) OnOrder(o types.OrderData) {
	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()
}

func (s *captureSink) OnTrade(t types.TradeData) {
	s.mu.Lock()
	s.trades = append(s.trades, t)
	s.mu.Unlock()
}

func (s *captureSink) OnPosition(p types.PositionData) {
	s.mu.Lock()
	s.positions = append(s.positions, p)
	s.mu.Unlock()
}

func (s *captureSink) OnAccount(a types.AccountData) {
	s.mu.Lock()
	s.accounts = append(s.accounts, a)
	s.mu.Unlock()
}

func (s *captureSink) OnContract(c types.ContractData) {
	s.mu.Lock()
	s.contracts = append(s.contracts, c)
	s.mu.Unlock()
}

func (s *captureSink) lastOrder(t *testing.T) types.OrderData {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.orders)
	return s.orders[len(s.orders)-1]
}

func (s *captureSink) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *captureSink) tradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

func (s *captureSink) tickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

// newTestGateway wires a gateway whose REST leg talks to the given
// handler, bypassing Connect so no stream is dialed.
func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *captureSink) {
	t.Helper()

	sink := &captureSink{}
	g := New(sink)

	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		client, err := rest.NewClient(srv.URL, nil, ratelimit.NewWindow(orderRateLimit), "")
		require.NoError(t, err)
		client.Start(1)
		t.Cleanup(client.Stop)
		g.restAPI.client = client
	}

	return g, sink
}

// newDeadTestGateway wires the REST leg to an endpoint that refuses
// connections, forcing transport errors.
func newDeadTestGateway(t *testing.T) (*Gateway, *captureSink) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	sink := &captureSink{}
	g := New(sink)

	client, err := rest.NewClient(addr, nil, ratelimit.NewWindow(orderRateLimit), "")
	require.NoError(t, err)
	client.Start(1)
	t.Cleanup(client.Stop)
	g.restAPI.client = client

	return g, sink
}

// successResult wraps a body as a successful REST outcome.
func successResult(body string) rest.Result {
	return rest.Result{Kind: rest.Success, Body: []byte(body), StatusCode: http.StatusOK}
}
