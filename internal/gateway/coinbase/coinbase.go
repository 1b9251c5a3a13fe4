// Package coinbase implements the Coinbase Pro gateway: a signed REST
// leg for order submission and queries, and an authenticated stream
// leg for market data and order lifecycle events.
package coinbase

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/harborfin/tradegate/internal/gateway"
	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/types"
)

const (
	restHost         = "https://api.pro.coinbase.com"
	wsHost           = "wss://ws-feed.pro.coinbase.com"
	sandboxRestHost  = "https://api-public.sandbox.pro.coinbase.com"
	sandboxWsHost    = "wss://ws-feed-public.sandbox.pro.coinbase.com"
	gatewayName      = "COINBASE"
	defaultSessionQt = 3
)

// Gateway composes the REST and stream legs with the per-instance
// order store.
type Gateway struct {
	sink   gateway.EventSink
	store  *orderStore
	logger zerolog.Logger

	restAPI *restAPI
	wsAPI   *wsAPI
}

// New creates an unconnected gateway pushing into the sink.
func New(sink gateway.EventSink) *Gateway {
	g := &Gateway{
		sink:   sink,
		store:  newOrderStore(),
		logger: logging.Component("coinbase"),
	}
	g.restAPI = newRestAPI(g)
	g.wsAPI = newWsAPI(g)
	return g
}

func (g *Gateway) Name() string { return gatewayName }

// Connect starts both transports. The REST leg fires the startup
// queries (instruments, open orders, accounts) immediately.
func (g *Gateway) Connect(setting gateway.ConnectSetting) error {
	signer, err := newSigner(setting.Key, setting.Secret, setting.Passphrase)
	if err != nil {
		return types.NewGatewayError(types.ErrConfig, "invalid credentials", err)
	}

	restURL, wsURL := restHost, wsHost
	if setting.Server == "SANDBOX" {
		restURL, wsURL = sandboxRestHost, sandboxWsHost
	}

	proxy := ""
	if setting.ProxyHost != "" && setting.ProxyPort > 0 {
		proxy = fmt.Sprintf("http://%s:%d", setting.ProxyHost, setting.ProxyPort)
	}

	sessions := setting.Sessions
	if sessions <= 0 {
		sessions = defaultSessionQt
	}

	if err := g.restAPI.connect(restURL, proxy, signer, sessions); err != nil {
		return types.NewGatewayError(types.ErrConnection, "rest connect failed", err)
	}
	if err := g.wsAPI.connect(wsURL, proxy, signer); err != nil {
		return types.NewGatewayError(types.ErrConnection, "stream connect failed", err)
	}

	g.logger.Info().Str("server", setting.Server).Msg("gateway connected")
	return nil
}

// Subscribe requests market data and order events for one instrument.
func (g *Gateway) Subscribe(req types.SubscribeRequest) error {
	return g.wsAPI.subscribe(req)
}

// SendOrder submits an order. The returned vt order id is empty when
// the request was dropped by the rate limiter.
func (g *Gateway) SendOrder(req types.OrderRequest) string {
	return g.restAPI.sendOrder(req)
}

// CancelOrder cancels by local order id, buffering until the exchange
// id is bound if necessary.
func (g *Gateway) CancelOrder(req types.CancelRequest) {
	g.restAPI.cancelOrder(req)
}

// QueryAccount refreshes account balances.
func (g *Gateway) QueryAccount() {
	g.restAPI.queryAccount()
}

// ProcessTimer resets the submission quota and polls accounts. Driven
// by the engine's periodic timer event.
func (g *Gateway) ProcessTimer() {
	g.restAPI.resetRateLimit()
	g.restAPI.queryAccount()
}

// ActiveOrders lists this gateway's active orders for monitoring.
func (g *Gateway) ActiveOrders() []types.OrderData {
	return g.store.activeOrders()
}

// Close shuts both transports down.
func (g *Gateway) Close() {
	g.wsAPI.stop()
	g.restAPI.stop()
	g.logger.Info().Msg("gateway closed")
}

var _ gateway.Gateway = (*Gateway)(nil)
