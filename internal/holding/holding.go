// Package holding tracks per-instrument long/short, today/yesterday
// position splits with frozen quantities, and rewrites abstract close
// requests into exchange-legal sequences.
package holding

import (
	"sync"

	"github.com/harborfin/tradegate/internal/types"
)

// PositionHolding is the per-instrument position ledger. It is fed by
// gateway order/trade/position events and recomputes frozen quantities
// from scratch after every order update.
type PositionHolding struct {
	mu sync.Mutex

	vtSymbol string
	exchange types.Exchange

	// orders holds every order ever seen, keyed by vt order id;
	// activeOrders is the non-terminal subset. Terminal orders are
	// retained for audit.
	orders       map[string]*types.OrderData
	activeOrders map[string]*types.OrderData
	trades       map[string][]types.TradeData

	LongPos float64
	LongYd  float64
	LongTd  float64

	ShortPos float64
	ShortYd  float64
	ShortTd  float64

	LongPosFrozen float64
	LongYdFrozen  float64
	LongTdFrozen  float64

	ShortPosFrozen float64
	ShortYdFrozen  float64
	ShortTdFrozen  float64
}

// NewPositionHolding creates an empty ledger for the contract.
func NewPositionHolding(contract *types.ContractData) *PositionHolding {
	return &PositionHolding{
		vtSymbol:     contract.VTSymbol(),
		exchange:     contract.Exchange,
		orders:       make(map[string]*types.OrderData),
		activeOrders: make(map[string]*types.OrderData),
		trades:       make(map[string][]types.TradeData),
	}
}

// UpdatePosition overwrites one side of the ledger from an
// exchange-reported position snapshot.
func (h *PositionHolding) UpdatePosition(pos types.PositionData) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pos.Direction == types.DirectionLong {
		h.LongPos = pos.Volume
		h.LongYd = pos.YdVolume
		h.LongTd = h.LongPos - h.LongYd
	} else {
		h.ShortPos = pos.Volume
		h.ShortYd = pos.YdVolume
		h.ShortTd = h.ShortPos - h.ShortYd
	}
}

// UpdateOrder records an order state change and recomputes frozen
// quantities.
func (h *PositionHolding) UpdateOrder(order types.OrderData) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := order.VTOrderID()
	existing, ok := h.orders[key]
	if !ok {
		o := order
		h.orders[key] = &o
		existing = &o
	} else {
		existing.Status = order.Status
		existing.Traded = order.Traded
		existing.Datetime = order.Datetime
		existing.Offset = order.Offset
	}

	if existing.IsActive() {
		h.activeOrders[key] = existing
	} else {
		delete(h.activeOrders, key)
	}

	h.calculateFrozenLocked()
}

// UpdateOrderRequest registers a just-submitted request so its volume
// freezes immediately, before the exchange confirms it.
func (h *PositionHolding) UpdateOrderRequest(req types.OrderRequest, orderID, gatewayName string) {
	order := req.CreateOrderData(orderID, gatewayName)
	h.UpdateOrder(order)
}

// UpdateTrade applies one fill to the position buckets.
func (h *PositionHolding) UpdateTrade(trade types.TradeData) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := trade.VTOrderID()
	h.trades[key] = append(h.trades[key], trade)

	todaySplit := trade.Exchange.RequiresTodaySplit()

	if trade.Direction == types.DirectionLong {
		switch trade.Offset {
		case types.OffsetOpen:
			h.LongTd += trade.Volume
		case types.OffsetCloseToday:
			h.ShortTd -= trade.Volume
		case types.OffsetCloseYesterday:
			h.ShortYd -= trade.Volume
		case types.OffsetClose:
			if todaySplit {
				h.ShortYd -= trade.Volume
			} else {
				h.ShortTd -= trade.Volume
				if h.ShortTd < 0 {
					h.ShortYd += h.ShortTd
					h.ShortTd = 0
				}
			}
		}
	} else {
		switch trade.Offset {
		case types.OffsetOpen:
			h.ShortTd += trade.Volume
		case types.OffsetCloseToday:
			h.LongTd -= trade.Volume
		case types.OffsetCloseYesterday:
			h.LongYd -= trade.Volume
		case types.OffsetClose:
			if todaySplit {
				h.LongYd -= trade.Volume
			} else {
				h.LongTd -= trade.Volume
				if h.LongTd < 0 {
					h.LongYd += h.LongTd
					h.LongTd = 0
				}
			}
		}
	}

	h.LongPos = h.LongTd + h.LongYd
	h.ShortPos = h.ShortTd + h.ShortYd
}

// CalculateFrozen recomputes the six frozen quantities from scratch by
// scanning the active closing orders. It has no I/O and is idempotent.
func (h *PositionHolding) CalculateFrozen() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calculateFrozenLocked()
}

func (h *PositionHolding) calculateFrozenLocked() {
	h.LongPosFrozen = 0
	h.LongYdFrozen = 0
	h.LongTdFrozen = 0

	h.ShortPosFrozen = 0
	h.ShortYdFrozen = 0
	h.ShortTdFrozen = 0

	for _, order := range h.activeOrders {
		if order.Offset == types.OffsetOpen {
			continue
		}

		frozen := order.Volume - order.Traded

		if order.Direction == types.DirectionLong {
			switch order.Offset {
			case types.OffsetCloseToday:
				h.ShortTdFrozen += frozen
			case types.OffsetCloseYesterday:
				h.ShortYdFrozen += frozen
			case types.OffsetClose:
				// Saturate today first, spill the excess
				// into yesterday.
				h.ShortTdFrozen += frozen
				if h.ShortTdFrozen > h.ShortTd {
					h.ShortYdFrozen += h.ShortTdFrozen - h.ShortTd
					h.ShortTdFrozen = h.ShortTd
				}
			}
		} else {
			switch order.Offset {
			case types.OffsetCloseToday:
				h.LongTdFrozen += frozen
			case types.OffsetCloseYesterday:
				h.LongYdFrozen += frozen
			case types.OffsetClose:
				h.LongTdFrozen += frozen
				if h.LongTdFrozen > h.LongTd {
					h.LongYdFrozen += h.LongTdFrozen - h.LongTd
					h.LongTdFrozen = h.LongTd
				}
			}
		}
	}

	h.LongPosFrozen = h.LongTdFrozen + h.LongYdFrozen
	h.ShortPosFrozen = h.ShortTdFrozen + h.ShortYdFrozen
}

// Snapshot exports both sides as position data for monitoring.
func (h *PositionHolding) Snapshot(gatewayName string) []types.PositionData {
	h.mu.Lock()
	defer h.mu.Unlock()

	symbol, exchange := splitVTSymbol(h.vtSymbol)
	return []types.PositionData{
		{
			Symbol:      symbol,
			Exchange:    exchange,
			Direction:   types.DirectionLong,
			Volume:      h.LongPos,
			Frozen:      h.LongPosFrozen,
			YdVolume:    h.LongYd,
			GatewayName: gatewayName,
		},
		{
			Symbol:      symbol,
			Exchange:    exchange,
			Direction:   types.DirectionShort,
			Volume:      h.ShortPos,
			Frozen:      h.ShortPosFrozen,
			YdVolume:    h.ShortYd,
			GatewayName: gatewayName,
		},
	}
}

// ActiveOrders lists the currently active orders.
func (h *PositionHolding) ActiveOrders() []types.OrderData {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]types.OrderData, 0, len(h.activeOrders))
	for _, o := range h.activeOrders {
		out = append(out, *o)
	}
	return out
}

// Trades returns the delivery-ordered fills recorded for one order.
func (h *PositionHolding) Trades(vtOrderID string) []types.TradeData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]types.TradeData(nil), h.trades[vtOrderID]...)
}

func splitVTSymbol(vtSymbol string) (string, types.Exchange) {
	for i := len(vtSymbol) - 1; i >= 0; i-- {
		if vtSymbol[i] == '.' {
			return vtSymbol[:i], types.Exchange(vtSymbol[i+1:])
		}
	}
	return vtSymbol, ""
}
