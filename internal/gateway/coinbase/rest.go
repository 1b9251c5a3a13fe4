package coinbase

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/monitor"
	"github.com/harborfin/tradegate/internal/ratelimit"
	"github.com/harborfin/tradegate/internal/rest"
	"github.com/harborfin/tradegate/internal/types"
)

// orderRateLimit is the submission quota per rate-limit window.
const orderRateLimit = 5

// restAPI owns the REST leg: order submission/cancellation and the
// instrument, order and account queries.
type restAPI struct {
	g      *Gateway
	client *rest.Client
	logger zerolog.Logger
}

func newRestAPI(g *Gateway) *restAPI {
	return &restAPI{g: g, logger: logging.Component("coinbase.rest")}
}

func (r *restAPI) connect(host, proxy string, signer *signer, sessions int) error {
	client, err := rest.NewClient(host, signer, ratelimit.NewWindow(orderRateLimit), proxy)
	if err != nil {
		return err
	}
	r.client = client
	r.client.Start(sessions)

	r.queryInstruments()
	r.queryOrders()
	r.queryAccount()
	return nil
}

func (r *restAPI) stop() {
	if r.client != nil {
		r.client.Stop()
	}
}

// resetRateLimit restores the submission quota and retries cancels
// that were parked on an exhausted window. Cancels still awaiting id
// binding go straight back into the buffer.
func (r *restAPI) resetRateLimit() {
	if r.client == nil {
		return
	}
	r.client.ResetRateLimit()
	for _, req := range r.g.store.drainPendingCancels() {
		r.cancelOrder(req)
	}
}

// sendOrder submits one request and returns the vt order id, or empty
// when the request was dropped by the rate limiter.
func (r *restAPI) sendOrder(req types.OrderRequest) string {
	if !r.client.CheckRateLimit() {
		monitor.RequestsDropped.Inc()
		return ""
	}

	localID := uuid.New().String()
	order := r.g.store.putLocal(req.CreateOrderData(localID, r.g.Name()))

	body := placeOrderRequest{
		Size:      decimal.NewFromFloat(req.Volume).String(),
		ProductID: req.Symbol,
		Side:      formatSide(req.Direction),
		Type:      formatOrderType(req.Type),
		ClientOID: localID,
	}
	if req.Type == types.OrderTypeLimit {
		body.Price = decimal.NewFromFloat(req.Price).String()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		r.logger.Error().Err(err).Msg("marshal place order request")
		return ""
	}

	r.client.AddRequest(rest.Request{
		Method:   http.MethodPost,
		Path:     "/orders",
		Body:     payload,
		Callback: func(result rest.Result) { r.onSendOrder(order, result) },
	})

	monitor.OrdersSent.Inc()
	snapshot := r.g.store.snapshot(order)
	r.g.sink.OnOrder(snapshot)
	return snapshot.VTOrderID()
}

// onSendOrder applies the three-way outcome split: rejection marks the
// order Rejected with the reason surfaced; transport failures are
// logged but do not touch order state, since the order may still have
// reached the exchange; success is a no-op because the stream drives
// all further state.
func (r *restAPI) onSendOrder(order *types.OrderData, result rest.Result) {
	switch result.Kind {
	case rest.Success:
		// The "received" packet takes it from here.
	case rest.Rejected:
		reason := rejectionReason(result.Body)
		if r.g.store.advance(order, types.StatusRejected, order.Traded) {
			monitor.OrdersRejected.Inc()
			r.g.sink.OnOrder(r.g.store.snapshot(order))
		}
		r.logger.Warn().
			Int("status", result.StatusCode).
			Str("reason", reason).
			Str("order_id", order.OrderID).
			Msg("order rejected")
	case rest.TransportError:
		r.logger.Warn().
			Err(result.Err).
			Str("order_id", order.OrderID).
			Msg("order submission transport failure, state unchanged")
	}
}

// cancelOrder cancels by local id. Before the system id is bound the
// request is buffered and replayed when "received" arrives; buffering
// consumes no quota, only the wire call does. A replay landing in an
// exhausted window goes back into the buffer rather than vanishing.
func (r *restAPI) cancelOrder(req types.CancelRequest) {
	sysID, ok := r.g.store.sysFor(req.OrderID)
	if !ok {
		r.logger.Info().
			Str("order_id", req.OrderID).
			Msg("cancel before id binding, buffering")
		r.g.store.bufferCancel(req)
		return
	}

	if !r.client.CheckRateLimit() {
		monitor.RequestsDropped.Inc()
		r.logger.Warn().
			Str("order_id", req.OrderID).
			Msg("cancel hit rate limit, re-buffering")
		r.g.store.bufferCancel(req)
		return
	}

	r.client.AddRequest(rest.Request{
		Method: http.MethodDelete,
		Path:   "/orders/" + sysID,
		Callback: func(result rest.Result) {
			switch result.Kind {
			case rest.Success:
				// The stream pushes the resulting "done".
			case rest.Rejected:
				// Usually the order is already terminal; a
				// late cancel is a no-op, not a regression.
				r.logger.Warn().
					Int("status", result.StatusCode).
					Str("reason", rejectionReason(result.Body)).
					Str("order_id", req.OrderID).
					Msg("cancel rejected")
			case rest.TransportError:
				r.logger.Warn().
					Err(result.Err).
					Str("order_id", req.OrderID).
					Msg("cancel transport failure")
			}
		},
	})
}

func (r *restAPI) queryInstruments() {
	r.client.AddRequest(rest.Request{
		Method:   http.MethodGet,
		Path:     "/products",
		Callback: r.onQueryInstruments,
	})
}

func (r *restAPI) onQueryInstruments(result rest.Result) {
	if !r.querySucceeded(result, "instrument query") {
		return
	}

	var products []productData
	if err := json.Unmarshal(result.Body, &products); err != nil {
		r.logger.Error().Err(err).Str("payload", string(result.Body)).Msg("malformed products response")
		return
	}

	for _, p := range products {
		priceTick, _ := strconv.ParseFloat(p.QuoteIncrement, 64)
		minVolume, _ := strconv.ParseFloat(p.BaseMinSize, 64)
		r.g.sink.OnContract(types.ContractData{
			Symbol:      p.ID,
			Exchange:    types.ExchangeCoinbase,
			Name:        p.DisplayName,
			PriceTick:   priceTick,
			Size:        1,
			MinVolume:   minVolume,
			NetPosition: true,
			GatewayName: r.g.Name(),
		})
	}
	r.logger.Info().Int("count", len(products)).Msg("instruments loaded")
}

// queryOrders recovers open orders from before this session and seeds
// the id maps with them.
func (r *restAPI) queryOrders() {
	params := url.Values{}
	params.Set("status", "all")
	r.client.AddRequest(rest.Request{
		Method:   http.MethodGet,
		Path:     "/orders",
		Params:   params,
		Callback: r.onQueryOrders,
	})
}

func (r *restAPI) onQueryOrders(result rest.Result) {
	if !r.querySucceeded(result, "order query") {
		return
	}

	var orders []orderData
	if err := json.Unmarshal(result.Body, &orders); err != nil {
		r.logger.Error().Err(err).Str("payload", string(result.Body)).Msg("malformed orders response")
		return
	}

	for _, d := range orders {
		price, _ := strconv.ParseFloat(d.Price, 64)
		size, _ := strconv.ParseFloat(d.Size, 64)
		filled, _ := strconv.ParseFloat(d.FilledSize, 64)

		var status types.Status
		if d.Status == "open" {
			if filled == 0 {
				status = types.StatusNotTraded
			} else {
				status = types.StatusPartTraded
			}
		} else {
			if filled == size {
				status = types.StatusAllTraded
			} else {
				status = types.StatusCancelled
			}
		}

		created, _ := time.Parse(time.RFC3339Nano, d.CreatedAt)

		// Recovered orders predate this session, so the exchange
		// id doubles as the local id.
		order := r.g.store.putLocal(types.OrderData{
			Symbol:      d.ProductID,
			Exchange:    types.ExchangeCoinbase,
			OrderID:     d.ID,
			SysOrderID:  d.ID,
			Direction:   parseSide(d.Side),
			Price:       price,
			Volume:      size,
			Traded:      filled,
			Status:      status,
			Datetime:    created,
			GatewayName: r.g.Name(),
		})
		r.g.sink.OnOrder(r.g.store.snapshot(order))
	}
	r.logger.Info().Int("count", len(orders)).Msg("orders recovered")
}

func (r *restAPI) queryAccount() {
	r.client.AddRequest(rest.Request{
		Method:   http.MethodGet,
		Path:     "/accounts",
		Callback: r.onQueryAccount,
	})
}

func (r *restAPI) onQueryAccount(result rest.Result) {
	if !r.querySucceeded(result, "account query") {
		return
	}

	var accounts []accountData
	if err := json.Unmarshal(result.Body, &accounts); err != nil {
		r.logger.Error().Err(err).Str("payload", string(result.Body)).Msg("malformed accounts response")
		return
	}

	for _, a := range accounts {
		balance, _ := strconv.ParseFloat(a.Balance, 64)
		hold, _ := strconv.ParseFloat(a.Hold, 64)
		r.g.sink.OnAccount(types.AccountData{
			AccountID:   a.Currency,
			Balance:     balance,
			Frozen:      hold,
			GatewayName: r.g.Name(),
		})
	}
}

// querySucceeded logs query failures. Transport errors on polling
// queries are transient and only logged; the engine times out on the
// missing update independently.
func (r *restAPI) querySucceeded(result rest.Result, what string) bool {
	switch result.Kind {
	case rest.Success:
		return true
	case rest.Rejected:
		r.logger.Warn().
			Int("status", result.StatusCode).
			Str("reason", rejectionReason(result.Body)).
			Msg(what + " rejected")
	case rest.TransportError:
		r.logger.Warn().Err(result.Err).Msg(what + " transport failure")
	}
	return false
}

func formatSide(d types.Direction) string {
	if d == types.DirectionLong {
		return "buy"
	}
	return "sell"
}

func formatOrderType(t types.OrderType) string {
	if t == types.OrderTypeMarket {
		return "market"
	}
	return "limit"
}
