package coinbase

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/monitor"
	"github.com/harborfin/tradegate/internal/orderbook"
	"github.com/harborfin/tradegate/internal/stream"
	"github.com/harborfin/tradegate/internal/types"
)

const wireTimeLayout = "2006-01-02T15:04:05.000000Z"

// wsAPI owns the stream leg: subscription state, per-instrument books
// and the typed packet dispatch feeding order, trade and tick events.
type wsAPI struct {
	g      *Gateway
	signer *signer
	client *stream.Client

	mu            sync.Mutex
	books         map[string]*orderbook.Book
	subscriptions map[string]types.SubscribeRequest

	logger zerolog.Logger
}

func newWsAPI(g *Gateway) *wsAPI {
	return &wsAPI{
		g:             g,
		books:         make(map[string]*orderbook.Book),
		subscriptions: make(map[string]types.SubscribeRequest),
		logger:        logging.Component("coinbase.ws"),
	}
}

func (w *wsAPI) connect(host, proxy string, signer *signer) error {
	w.signer = signer
	w.client = stream.New(host, proxy, w)
	return w.client.Start()
}

func (w *wsAPI) stop() {
	if w.client != nil {
		w.client.Stop()
	}
}

// subscribe registers the instrument and, when connected, sends the
// signed subscription. Registration survives reconnects.
func (w *wsAPI) subscribe(req types.SubscribeRequest) error {
	w.mu.Lock()
	w.subscriptions[req.Symbol] = req
	if _, ok := w.books[req.Symbol]; !ok {
		w.books[req.Symbol] = orderbook.New(req.Symbol, req.Exchange, w.g.Name())
	}
	w.mu.Unlock()

	if w.client == nil || !w.client.Connected() {
		return nil
	}
	return w.sendSubscribe([]string{req.Symbol})
}

func (w *wsAPI) sendSubscribe(symbols []string) error {
	packet := subscribePacket{
		Type:       "subscribe",
		ProductIDs: symbols,
		Channels:   []string{"user", "level2", "ticker"},
	}
	w.signer.signSubscribe(&packet)
	return w.client.SendJSON(packet)
}

// OnConnected resubscribes everything and discards book state: levels
// reconstructed before a disconnect are stale and must be rebuilt from
// the next snapshot.
func (w *wsAPI) OnConnected() {
	w.mu.Lock()
	symbols := make([]string, 0, len(w.subscriptions))
	for symbol := range w.subscriptions {
		symbols = append(symbols, symbol)
		w.books[symbol].Reset()
	}
	w.mu.Unlock()

	if len(symbols) == 0 {
		return
	}
	if err := w.sendSubscribe(symbols); err != nil {
		w.logger.Error().Err(err).Msg("resubscribe failed")
	}
}

func (w *wsAPI) OnDisconnected() {
	monitor.Reconnects.Inc()
	w.logger.Warn().Msg("stream disconnected")
}

// OnPacket is the single dispatch point for every stream message.
func (w *wsAPI) OnPacket(data []byte) {
	var header packetHeader
	if err := json.Unmarshal(data, &header); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed packet")
		monitor.PacketsDropped.Inc()
		return
	}

	switch parsePacketType(header.Type) {
	case packetTicker:
		w.onTicker(data, header.ProductID)
	case packetSnapshot:
		w.onSnapshot(data, header.ProductID)
	case packetL2Update:
		w.onL2Update(data, header.ProductID)
	case packetReceived:
		w.onReceived(data)
	case packetOpen:
		w.onOpen(data)
	case packetDone:
		w.onDone(data)
	case packetMatch:
		w.onMatch(data)
	case packetChange, packetActivate:
		// Full-channel messages outside the subscribed feature
		// set; nothing to update.
	case packetSubscriptions, packetHeartbeat:
		// Acknowledgements, no state change.
	case packetError:
		var ep errorPacket
		if err := json.Unmarshal(data, &ep); err == nil {
			w.logger.Error().
				Str("message", ep.Message).
				Str("reason", ep.Reason).
				Msg("stream error packet")
		}
	case packetUnknown:
		w.logger.Warn().Str("payload", string(data)).Msg("unknown packet type")
		monitor.PacketsDropped.Inc()
	}
}

func (w *wsAPI) book(productID string) *orderbook.Book {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.books[productID]
}

func (w *wsAPI) onSnapshot(data []byte, productID string) {
	book := w.book(productID)
	if book == nil {
		w.logger.Warn().Str("product", productID).Msg("snapshot for unsubscribed product")
		return
	}

	var p snapshotPacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed snapshot")
		return
	}

	book.ApplySnapshot(parseLevels(p.Bids), parseLevels(p.Asks))
}

func (w *wsAPI) onL2Update(data []byte, productID string) {
	book := w.book(productID)
	if book == nil {
		w.logger.Warn().Str("product", productID).Msg("l2update for unsubscribed product")
		return
	}

	var p l2updatePacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed l2update")
		return
	}

	for _, change := range p.Changes {
		side := types.DirectionShort
		if change[0] == "buy" {
			side = types.DirectionLong
		}
		price, _ := strconv.ParseFloat(change[1], 64)
		size, _ := strconv.ParseFloat(change[2], 64)
		book.ApplyChange(side, price, size)
	}

	w.g.sink.OnTick(book.Tick(parseWireTime(p.Time)))
}

func (w *wsAPI) onTicker(data []byte, productID string) {
	book := w.book(productID)
	if book == nil {
		w.logger.Warn().Str("product", productID).Msg("ticker for unsubscribed product")
		return
	}

	var p tickerPacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed ticker")
		return
	}

	open, _ := strconv.ParseFloat(p.Open24h, 64)
	high, _ := strconv.ParseFloat(p.High24h, 64)
	low, _ := strconv.ParseFloat(p.Low24h, 64)
	last, _ := strconv.ParseFloat(p.Price, 64)
	volume, _ := strconv.ParseFloat(p.Volume24h, 64)
	book.ApplyTicker(open, high, low, last, volume)

	w.g.sink.OnTick(book.Tick(parseWireTime(p.Time)))
}

// onReceived binds the local id to the exchange system id and replays
// any cancel buffered while the binding was unknown.
func (w *wsAPI) onReceived(data []byte) {
	var p receivedPacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed received")
		return
	}

	price, _ := strconv.ParseFloat(p.Price, 64)
	size, _ := strconv.ParseFloat(p.Size, 64)

	template := types.OrderData{
		Symbol:      p.ProductID,
		Exchange:    types.ExchangeCoinbase,
		OrderID:     p.ClientOID,
		Type:        parseOrderType(p.OrderType),
		Direction:   parseSide(p.Side),
		Price:       price,
		Volume:      size,
		Datetime:    parseWireTime(p.Time),
		GatewayName: w.g.Name(),
	}

	order, pendingCancel := w.g.store.bind(p.ClientOID, p.OrderID, template)
	// Traded volume 0 keeps whatever fills already merged in.
	w.g.store.advance(order, types.StatusNotTraded, 0)
	w.g.sink.OnOrder(w.g.store.snapshot(order))

	if pendingCancel != nil {
		w.logger.Info().
			Str("order_id", p.ClientOID).
			Msg("replaying buffered cancel after id binding")
		w.g.restAPI.cancelOrder(*pendingCancel)
	}
}

func (w *wsAPI) onOpen(data []byte) {
	var p openPacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed open")
		return
	}

	order, ok := w.g.store.getBySys(p.OrderID)
	if !ok {
		w.logger.Warn().Str("sys_id", p.OrderID).Msg("open for unknown order, dropping")
		monitor.PacketsDropped.Inc()
		return
	}

	remaining, _ := strconv.ParseFloat(p.RemainingSize, 64)
	traded := w.g.store.snapshot(order).Volume - remaining

	status := types.StatusNotTraded
	if traded > 0 {
		status = types.StatusPartTraded
	}
	if w.g.store.advance(order, status, traded) {
		w.g.sink.OnOrder(w.g.store.snapshot(order))
	}
}

func (w *wsAPI) onDone(data []byte) {
	var p donePacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed done")
		return
	}

	order, ok := w.g.store.getBySys(p.OrderID)
	if !ok {
		// Done messages also arrive for foreign orders on the
		// full channel; nothing to attribute.
		return
	}

	remaining, _ := strconv.ParseFloat(p.RemainingSize, 64)
	traded := w.g.store.snapshot(order).Volume - remaining

	status := types.StatusCancelled
	if p.Reason == "filled" {
		status = types.StatusAllTraded
	}
	if w.g.store.advance(order, status, traded) {
		w.g.sink.OnOrder(w.g.store.snapshot(order))
	}
}

// onMatch attributes a fill to whichever of the maker/taker orders is
// locally known. The counterparty may belong to another trader
// entirely; an entirely unknown pair is dropped with a log, never
// mis-attributed.
func (w *wsAPI) onMatch(data []byte) {
	var p matchPacket
	if err := json.Unmarshal(data, &p); err != nil {
		w.logger.Error().Err(err).Str("payload", string(data)).Msg("malformed match")
		return
	}

	order, ok := w.g.store.getBySys(p.MakerOrderID)
	if !ok {
		order, ok = w.g.store.getBySys(p.TakerOrderID)
	}
	if !ok {
		w.logger.Warn().
			Str("maker", p.MakerOrderID).
			Str("taker", p.TakerOrderID).
			Msg("match references unknown orders, dropping")
		monitor.PacketsDropped.Inc()
		return
	}

	price, _ := strconv.ParseFloat(p.Price, 64)
	size, _ := strconv.ParseFloat(p.Size, 64)
	snapshot := w.g.store.snapshot(order)

	w.g.sink.OnTrade(types.TradeData{
		Symbol:      p.ProductID,
		Exchange:    types.ExchangeCoinbase,
		OrderID:     snapshot.OrderID,
		TradeID:     strconv.FormatInt(p.TradeID, 10),
		Direction:   parseSide(p.Side),
		Offset:      snapshot.Offset,
		Price:       price,
		Volume:      size,
		Datetime:    parseWireTime(p.Time),
		GatewayName: w.g.Name(),
	})
}

func parseLevels(raw [][2]string) [][2]float64 {
	out := make([][2]float64, 0, len(raw))
	for _, l := range raw {
		price, err1 := strconv.ParseFloat(l[0], 64)
		size, err2 := strconv.ParseFloat(l[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, [2]float64{price, size})
	}
	return out
}

func parseSide(side string) types.Direction {
	if side == "buy" {
		return types.DirectionLong
	}
	return types.DirectionShort
}

func parseOrderType(t string) types.OrderType {
	if t == "market" {
		return types.OrderTypeMarket
	}
	return types.OrderTypeLimit
}

func parseWireTime(s string) time.Time {
	if t, err := time.Parse(wireTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Now().UTC()
}
