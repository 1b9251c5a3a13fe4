// Package gateway defines the uniform surface every exchange adapter
// implements and the sink its normalized events are pushed through.
package gateway

import (
	"github.com/harborfin/tradegate/internal/event"
	"github.com/harborfin/tradegate/internal/types"
)

// ConnectSetting carries credentials and transport options.
type ConnectSetting struct {
	Key        string
	Secret     string
	Passphrase string
	Sessions   int
	Server     string // REAL or SANDBOX
	ProxyHost  string
	ProxyPort  int
}

// Gateway is one exchange connection. Implementations own their
// transports and all per-connection order/id state; nothing is shared
// across gateway instances.
type Gateway interface {
	Name() string

	Connect(setting ConnectSetting) error
	Subscribe(req types.SubscribeRequest) error

	// SendOrder submits one request and returns its vt order id.
	// An empty id means the request was dropped (rate limit) or
	// invalid.
	SendOrder(req types.OrderRequest) string
	CancelOrder(req types.CancelRequest)

	QueryAccount()
	Close()

	// ProcessTimer is driven by the engine's periodic timer event
	// and resets the request quota and polling.
	ProcessTimer()
}

// EventSink receives the gateway's normalized output. Each value is a
// point-in-time immutable snapshot.
type EventSink interface {
	OnTick(tick types.TickData)
	OnOrder(order types.OrderData)
	OnTrade(trade types.TradeData)
	OnPosition(pos types.PositionData)
	OnAccount(account types.AccountData)
	OnContract(contract types.ContractData)
}

// EngineSink adapts the event engine into an EventSink.
type EngineSink struct {
	Engine *event.Engine
}

func (s EngineSink) OnTick(tick types.TickData) {
	s.Engine.Put(event.Event{Type: event.TypeTick, Data: tick})
}

func (s EngineSink) OnOrder(order types.OrderData) {
	s.Engine.Put(event.Event{Type: event.TypeOrder, Data: order})
}

func (s EngineSink) OnTrade(trade types.TradeData) {
	s.Engine.Put(event.Event{Type: event.TypeTrade, Data: trade})
}

func (s EngineSink) OnPosition(pos types.PositionData) {
	s.Engine.Put(event.Event{Type: event.TypePosition, Data: pos})
}

func (s EngineSink) OnAccount(account types.AccountData) {
	s.Engine.Put(event.Event{Type: event.TypeAccount, Data: account})
}

func (s EngineSink) OnContract(contract types.ContractData) {
	s.Engine.Put(event.Event{Type: event.TypeContract, Data: contract})
}

var _ EventSink = EngineSink{}
