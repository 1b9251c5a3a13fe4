package coinbase

import "encoding/json"

// packetType is the tagged variant of every stream message kind the
// feed can deliver. Dispatch switches over it exhaustively; a new wire
// type surfaces as packetUnknown and is dropped with its raw payload
// logged, never silently mis-handled.
type packetType int

const (
	packetUnknown packetType = iota
	packetTicker
	packetSnapshot
	packetL2Update
	packetReceived
	packetOpen
	packetDone
	packetMatch
	packetChange
	packetActivate
	packetSubscriptions
	packetHeartbeat
	packetError
)

func parsePacketType(s string) packetType {
	switch s {
	case "ticker":
		return packetTicker
	case "snapshot":
		return packetSnapshot
	case "l2update":
		return packetL2Update
	case "received":
		return packetReceived
	case "open":
		return packetOpen
	case "done":
		return packetDone
	case "match":
		return packetMatch
	case "change":
		return packetChange
	case "activate":
		return packetActivate
	case "subscriptions":
		return packetSubscriptions
	case "heartbeat":
		return packetHeartbeat
	case "error":
		return packetError
	default:
		return packetUnknown
	}
}

// packetHeader is decoded first to pick the variant.
type packetHeader struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
}

type errorPacket struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

type tickerPacket struct {
	ProductID string `json:"product_id"`
	Open24h   string `json:"open_24h"`
	High24h   string `json:"high_24h"`
	Low24h    string `json:"low_24h"`
	Price     string `json:"price"`
	Volume24h string `json:"volume_24h"`
	Time      string `json:"time"`
}

type snapshotPacket struct {
	ProductID string      `json:"product_id"`
	Bids      [][2]string `json:"bids"`
	Asks      [][2]string `json:"asks"`
}

// l2updatePacket carries (side, price, size) triples. Size is an
// authoritative replacement of the level; zero deletes it.
type l2updatePacket struct {
	ProductID string      `json:"product_id"`
	Changes   [][3]string `json:"changes"`
	Time      string      `json:"time"`
}

type receivedPacket struct {
	ProductID string `json:"product_id"`
	ClientOID string `json:"client_oid"`
	OrderID   string `json:"order_id"`
	OrderType string `json:"order_type"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Time      string `json:"time"`
}

type openPacket struct {
	OrderID       string `json:"order_id"`
	RemainingSize string `json:"remaining_size"`
}

type donePacket struct {
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
	RemainingSize string `json:"remaining_size"`
}

type matchPacket struct {
	ProductID    string `json:"product_id"`
	TradeID      int64  `json:"trade_id"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	Time         string `json:"time"`
}

// subscribePacket is the outgoing subscription request. The signature
// fields mirror the REST auth headers inline.
type subscribePacket struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
	Signature  string   `json:"signature,omitempty"`
	Key        string   `json:"key,omitempty"`
	Passphrase string   `json:"passphrase,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
}

// REST payloads.

type placeOrderRequest struct {
	Size      string `json:"size"`
	Price     string `json:"price,omitempty"`
	ProductID string `json:"product_id"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	ClientOID string `json:"client_oid"`
}

type productData struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	QuoteIncrement string `json:"quote_increment"`
	BaseMinSize    string `json:"base_min_size"`
}

type accountData struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
}

type orderData struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	FilledSize string `json:"filled_size"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// rejectionReason extracts the error message from a rejection body,
// falling back to the raw payload.
func rejectionReason(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}
	return string(body)
}
