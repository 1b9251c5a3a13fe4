package holding

import (
	"sync"

	"github.com/harborfin/tradegate/internal/types"
)

// ContractProvider resolves contract metadata by vt symbol. Returning
// nil means the contract is unknown and no conversion applies.
type ContractProvider func(vtSymbol string) *types.ContractData

// OffsetConverter routes per-symbol conversion requests to the right
// PositionHolding and picks the applicable policy. Instruments on
// net-position-only venues pass through untouched.
type OffsetConverter struct {
	mu          sync.Mutex
	getContract ContractProvider
	holdings    map[string]*PositionHolding
}

// NewOffsetConverter creates a converter resolving contracts through
// the given provider.
func NewOffsetConverter(getContract ContractProvider) *OffsetConverter {
	return &OffsetConverter{
		getContract: getContract,
		holdings:    make(map[string]*PositionHolding),
	}
}

// UpdatePosition forwards a position snapshot to the holding.
func (c *OffsetConverter) UpdatePosition(pos types.PositionData) {
	if !c.convertRequired(pos.VTSymbol()) {
		return
	}
	c.GetPositionHolding(pos.VTSymbol()).UpdatePosition(pos)
}

// UpdateTrade forwards a fill to the holding.
func (c *OffsetConverter) UpdateTrade(trade types.TradeData) {
	if !c.convertRequired(trade.VTSymbol()) {
		return
	}
	c.GetPositionHolding(trade.VTSymbol()).UpdateTrade(trade)
}

// UpdateOrder forwards an order state change to the holding.
func (c *OffsetConverter) UpdateOrder(order types.OrderData) {
	if !c.convertRequired(order.VTSymbol()) {
		return
	}
	c.GetPositionHolding(order.VTSymbol()).UpdateOrder(order)
}

// UpdateOrderRequest registers a just-submitted request with the
// holding so that its volume freezes before exchange confirmation.
func (c *OffsetConverter) UpdateOrderRequest(req types.OrderRequest, orderID, gatewayName string) {
	if !c.convertRequired(req.VTSymbol()) {
		return
	}
	c.GetPositionHolding(req.VTSymbol()).UpdateOrderRequest(req, orderID, gatewayName)
}

// GetPositionHolding lazily creates the per-instrument ledger.
func (c *OffsetConverter) GetPositionHolding(vtSymbol string) *PositionHolding {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.holdings[vtSymbol]
	if !ok {
		contract := c.getContract(vtSymbol)
		if contract == nil {
			symbol, exchange := splitVTSymbol(vtSymbol)
			contract = &types.ContractData{Symbol: symbol, Exchange: exchange}
		}
		h = NewPositionHolding(contract)
		c.holdings[vtSymbol] = h
	}
	return h
}

// Holdings lists all instantiated ledgers.
func (c *OffsetConverter) Holdings() []*PositionHolding {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*PositionHolding, 0, len(c.holdings))
	for _, h := range c.holdings {
		out = append(out, h)
	}
	return out
}

// Convert rewrites an order request into zero or more exchange-legal
// requests. An empty result signals conversion infeasibility and must
// be treated as a rejection by the caller, never a silent success.
// Output is deterministic in both content and order.
func (c *OffsetConverter) Convert(req types.OrderRequest, lock, net bool) []types.OrderRequest {
	if !c.convertRequired(req.VTSymbol()) {
		return []types.OrderRequest{req}
	}

	h := c.GetPositionHolding(req.VTSymbol())

	switch {
	case lock:
		return h.ConvertLock(req)
	case net:
		return h.ConvertNet(req)
	case req.Exchange.RequiresTodaySplit():
		return h.ConvertTodaySplit(req)
	default:
		return []types.OrderRequest{req}
	}
}

// convertRequired reports whether the contract uses long/short-mode
// accounting. Net-position markets never need conversion.
func (c *OffsetConverter) convertRequired(vtSymbol string) bool {
	contract := c.getContract(vtSymbol)
	if contract == nil {
		return false
	}
	return !contract.NetPosition
}

// ConvertTodaySplit rewrites a close for venues that demand explicit
// close-today/close-yesterday tags: reject when the requested volume
// exceeds total available, use a single close-today when it fits in
// today, otherwise split today-first.
func (h *PositionHolding) ConvertTodaySplit(req types.OrderRequest) []types.OrderRequest {
	if req.Offset == types.OffsetOpen {
		return []types.OrderRequest{req}
	}

	h.mu.Lock()
	var posAvailable, tdAvailable float64
	if req.Direction == types.DirectionLong {
		posAvailable = h.ShortPos - h.ShortPosFrozen
		tdAvailable = h.ShortTd - h.ShortTdFrozen
	} else {
		posAvailable = h.LongPos - h.LongPosFrozen
		tdAvailable = h.LongTd - h.LongTdFrozen
	}
	h.mu.Unlock()

	switch {
	case req.Volume > posAvailable:
		return nil
	case req.Volume <= tdAvailable:
		reqTd := req
		reqTd.Offset = types.OffsetCloseToday
		return []types.OrderRequest{reqTd}
	default:
		var reqs []types.OrderRequest

		if tdAvailable > 0 {
			reqTd := req
			reqTd.Offset = types.OffsetCloseToday
			reqTd.Volume = tdAvailable
			reqs = append(reqs, reqTd)
		}

		reqYd := req
		reqYd.Offset = types.OffsetCloseYesterday
		reqYd.Volume = req.Volume - tdAvailable
		reqs = append(reqs, reqYd)

		return reqs
	}
}

// ConvertLock rewrites a request for hedging mode. Today volume on the
// opposite side cannot be closed in this mode, so its presence forces
// a plain open; otherwise yesterday volume is closed first and the
// remainder opened.
func (h *PositionHolding) ConvertLock(req types.OrderRequest) []types.OrderRequest {
	h.mu.Lock()
	var tdVolume, ydAvailable float64
	if req.Direction == types.DirectionLong {
		tdVolume = h.ShortTd
		ydAvailable = h.ShortYd - h.ShortYdFrozen
	} else {
		tdVolume = h.LongTd
		ydAvailable = h.LongYd - h.LongYdFrozen
	}
	h.mu.Unlock()

	if tdVolume > 0 {
		reqOpen := req
		reqOpen.Offset = types.OffsetOpen
		return []types.OrderRequest{reqOpen}
	}

	closeVolume := min(req.Volume, ydAvailable)
	openVolume := max(0, req.Volume-ydAvailable)
	var reqs []types.OrderRequest

	if ydAvailable > 0 {
		reqYd := req
		if h.exchange.RequiresTodaySplit() {
			reqYd.Offset = types.OffsetCloseYesterday
		} else {
			reqYd.Offset = types.OffsetClose
		}
		reqYd.Volume = closeVolume
		reqs = append(reqs, reqYd)
	}

	if openVolume > 0 {
		reqOpen := req
		reqOpen.Offset = types.OffsetOpen
		reqOpen.Volume = openVolume
		reqs = append(reqs, reqOpen)
	}

	return reqs
}

// ConvertNet rewrites a request for net mode: available opposite
// position is closed first (today before yesterday on split venues),
// the remainder opens a new position.
func (h *PositionHolding) ConvertNet(req types.OrderRequest) []types.OrderRequest {
	h.mu.Lock()
	var posAvailable, tdAvailable, ydAvailable float64
	if req.Direction == types.DirectionLong {
		posAvailable = h.ShortPos - h.ShortPosFrozen
		tdAvailable = h.ShortTd - h.ShortTdFrozen
		ydAvailable = h.ShortYd - h.ShortYdFrozen
	} else {
		posAvailable = h.LongPos - h.LongPosFrozen
		tdAvailable = h.LongTd - h.LongTdFrozen
		ydAvailable = h.LongYd - h.LongYdFrozen
	}
	h.mu.Unlock()

	var reqs []types.OrderRequest
	volumeLeft := req.Volume

	if h.exchange.RequiresTodaySplit() {
		if tdAvailable > 0 {
			tdVolume := min(tdAvailable, volumeLeft)
			volumeLeft -= tdVolume

			tdReq := req
			tdReq.Offset = types.OffsetCloseToday
			tdReq.Volume = tdVolume
			reqs = append(reqs, tdReq)
		}

		if volumeLeft > 0 && ydAvailable > 0 {
			ydVolume := min(ydAvailable, volumeLeft)
			volumeLeft -= ydVolume

			ydReq := req
			ydReq.Offset = types.OffsetCloseYesterday
			ydReq.Volume = ydVolume
			reqs = append(reqs, ydReq)
		}
	} else if posAvailable > 0 {
		closeVolume := min(posAvailable, volumeLeft)
		volumeLeft -= closeVolume

		closeReq := req
		closeReq.Offset = types.OffsetClose
		closeReq.Volume = closeVolume
		reqs = append(reqs, closeReq)
	}

	if volumeLeft > 0 {
		openReq := req
		openReq.Offset = types.OffsetOpen
		openReq.Volume = volumeLeft
		reqs = append(reqs, openReq)
	}

	return reqs
}
