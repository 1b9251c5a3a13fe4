package types

import "time"

// MaxDepth is the number of price levels exposed on a tick.
const MaxDepth = 5

// VTSymbol joins symbol and exchange into the global instrument key.
func VTSymbol(symbol string, exchange Exchange) string {
	return symbol + "." + string(exchange)
}

// TickData is a point-in-time market snapshot for one instrument.
// BidDepth/AskDepth give how many of the five levels are populated;
// thin markets legitimately carry fewer than five.
type TickData struct {
	Symbol   string
	Exchange Exchange
	Datetime time.Time

	OpenPrice float64
	HighPrice float64
	LowPrice  float64
	LastPrice float64
	Volume    float64

	BidPrices  [MaxDepth]float64
	BidVolumes [MaxDepth]float64
	AskPrices  [MaxDepth]float64
	AskVolumes [MaxDepth]float64
	BidDepth   int
	AskDepth   int

	GatewayName string
}

func (t *TickData) VTSymbol() string { return VTSymbol(t.Symbol, t.Exchange) }

// OrderData is the lifecycle record of one exchange order. OrderID is
// the locally generated id; SysOrderID is the exchange-assigned id and
// is bound asynchronously, possibly after messages referencing it
// arrive.
type OrderData struct {
	Symbol   string
	Exchange Exchange

	OrderID    string
	SysOrderID string

	Type      OrderType
	Direction Direction
	Offset    Offset
	Price     float64
	Volume    float64
	Traded    float64
	Status    Status
	Datetime  time.Time

	GatewayName string
}

func (o *OrderData) VTSymbol() string  { return VTSymbol(o.Symbol, o.Exchange) }
func (o *OrderData) VTOrderID() string { return o.GatewayName + "." + o.OrderID }
func (o *OrderData) IsActive() bool    { return o.Status.IsActive() }

// CreateCancelRequest builds the cancel request matching this order.
func (o *OrderData) CreateCancelRequest() CancelRequest {
	return CancelRequest{
		OrderID:  o.OrderID,
		Symbol:   o.Symbol,
		Exchange: o.Exchange,
	}
}

// TradeData is a single fill. Several trades may share an OrderID.
type TradeData struct {
	Symbol   string
	Exchange Exchange

	OrderID string
	TradeID string

	Direction Direction
	Offset    Offset
	Price     float64
	Volume    float64
	Datetime  time.Time

	GatewayName string
}

func (t *TradeData) VTSymbol() string  { return VTSymbol(t.Symbol, t.Exchange) }
func (t *TradeData) VTOrderID() string { return t.GatewayName + "." + t.OrderID }

// PositionData is an exchange-reported position for one side of an
// instrument. YdVolume is the portion carried over from prior
// sessions.
type PositionData struct {
	Symbol   string
	Exchange Exchange

	Direction Direction
	Volume    float64
	Frozen    float64
	YdVolume  float64
	Price     float64

	GatewayName string
}

func (p *PositionData) VTSymbol() string { return VTSymbol(p.Symbol, p.Exchange) }

// AccountData is a balance snapshot for one account/currency.
type AccountData struct {
	AccountID string
	Balance   float64
	Frozen    float64

	GatewayName string
}

// Available returns the balance not reserved by open orders.
func (a *AccountData) Available() float64 { return a.Balance - a.Frozen }

// ContractData is instrument metadata. NetPosition marks venues that
// keep a single net position and therefore never need offset
// conversion.
type ContractData struct {
	Symbol   string
	Exchange Exchange
	Name     string

	PriceTick   float64
	Size        float64
	MinVolume   float64
	NetPosition bool

	GatewayName string
}

func (c *ContractData) VTSymbol() string { return VTSymbol(c.Symbol, c.Exchange) }
