// Package oms keeps the live trading state assembled from gateway
// events: contracts, orders, trades, positions, accounts. It owns the
// offset converter and is the single entry point for sending orders,
// so every submission goes through conversion and every resulting
// request is registered for frozen-volume accounting.
package oms

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harborfin/tradegate/internal/event"
	"github.com/harborfin/tradegate/internal/gateway"
	"github.com/harborfin/tradegate/internal/holding"
	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/types"
)

// OMS is the order management service. All maps are keyed by the vt
// identifiers so entries from different gateways never collide.
type OMS struct {
	mu        sync.RWMutex
	gateways  map[string]gateway.Gateway
	contracts map[string]types.ContractData
	orders    map[string]types.OrderData
	trades    map[string]types.TradeData
	positions map[string]types.PositionData
	accounts  map[string]types.AccountData

	converter *holding.OffsetConverter
	logger    zerolog.Logger
}

// New creates the service and wires it onto the bus. The timer event
// drives every gateway's periodic work.
func New(engine *event.Engine) *OMS {
	o := &OMS{
		gateways:  make(map[string]gateway.Gateway),
		contracts: make(map[string]types.ContractData),
		orders:    make(map[string]types.OrderData),
		trades:    make(map[string]types.TradeData),
		positions: make(map[string]types.PositionData),
		accounts:  make(map[string]types.AccountData),
		logger:    logging.Component("oms"),
	}
	o.converter = holding.NewOffsetConverter(o.GetContract)

	engine.Register(event.TypeContract, o.processContract)
	engine.Register(event.TypeOrder, o.processOrder)
	engine.Register(event.TypeTrade, o.processTrade)
	engine.Register(event.TypePosition, o.processPosition)
	engine.Register(event.TypeAccount, o.processAccount)
	engine.Register(event.TypeTimer, o.processTimer)
	return o
}

// AddGateway registers a connected gateway under its name.
func (o *OMS) AddGateway(gw gateway.Gateway) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gateways[gw.Name()] = gw
}

// Gateway looks a gateway up by name.
func (o *OMS) Gateway(name string) (gateway.Gateway, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	gw, ok := o.gateways[name]
	return gw, ok
}

// SendOrder converts the request under the selected policy and submits
// each resulting leg. It returns the vt order ids of the submitted
// legs, or an error when conversion deems the request infeasible.
func (o *OMS) SendOrder(gatewayName string, req types.OrderRequest, lock, net bool) ([]string, error) {
	gw, ok := o.Gateway(gatewayName)
	if !ok {
		return nil, types.NewGatewayError(types.ErrConfig, "unknown gateway "+gatewayName, nil)
	}

	reqs := o.converter.Convert(req, lock, net)
	if len(reqs) == 0 {
		return nil, types.NewGatewayError(types.ErrConversion,
			"requested volume exceeds available position for "+req.VTSymbol(), nil)
	}

	var ids []string
	for _, r := range reqs {
		vtOrderID := gw.SendOrder(r)
		if vtOrderID == "" {
			o.logger.Warn().
				Str("vt_symbol", r.VTSymbol()).
				Float64("volume", r.Volume).
				Msg("order leg dropped by gateway")
			continue
		}
		o.converter.UpdateOrderRequest(r, localOrderID(vtOrderID), gatewayName)
		ids = append(ids, vtOrderID)
	}
	return ids, nil
}

// CancelOrder routes a cancel to the order's gateway.
func (o *OMS) CancelOrder(vtOrderID string) {
	o.mu.RLock()
	order, ok := o.orders[vtOrderID]
	o.mu.RUnlock()
	if !ok {
		o.logger.Warn().Str("vt_orderid", vtOrderID).Msg("cancel for unknown order")
		return
	}
	if gw, ok := o.Gateway(order.GatewayName); ok {
		gw.CancelOrder(order.CreateCancelRequest())
	}
}

// GetContract resolves contract metadata, nil when unknown. Satisfies
// holding.ContractProvider.
func (o *OMS) GetContract(vtSymbol string) *types.ContractData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.contracts[vtSymbol]
	if !ok {
		return nil
	}
	return &c
}

// ActiveOrders lists orders still working at the exchange.
func (o *OMS) ActiveOrders() []types.OrderData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []types.OrderData
	for _, order := range o.orders {
		if order.IsActive() {
			out = append(out, order)
		}
	}
	return out
}

// Positions lists the latest position snapshot per instrument side.
func (o *OMS) Positions() []types.PositionData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]types.PositionData, 0, len(o.positions))
	for _, p := range o.positions {
		out = append(out, p)
	}
	return out
}

// Accounts lists the latest balance snapshot per account.
func (o *OMS) Accounts() []types.AccountData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]types.AccountData, 0, len(o.accounts))
	for _, a := range o.accounts {
		out = append(out, a)
	}
	return out
}

// Trades lists every fill seen this session.
func (o *OMS) Trades() []types.TradeData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]types.TradeData, 0, len(o.trades))
	for _, t := range o.trades {
		out = append(out, t)
	}
	return out
}

// Contracts lists all known instruments.
func (o *OMS) Contracts() []types.ContractData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]types.ContractData, 0, len(o.contracts))
	for _, c := range o.contracts {
		out = append(out, c)
	}
	return out
}

func (o *OMS) processContract(ev event.Event) {
	c, ok := ev.Data.(types.ContractData)
	if !ok {
		return
	}
	o.mu.Lock()
	o.contracts[c.VTSymbol()] = c
	o.mu.Unlock()
}

func (o *OMS) processOrder(ev event.Event) {
	order, ok := ev.Data.(types.OrderData)
	if !ok {
		return
	}
	o.mu.Lock()
	o.orders[order.VTOrderID()] = order
	o.mu.Unlock()
	o.converter.UpdateOrder(order)
}

func (o *OMS) processTrade(ev event.Event) {
	trade, ok := ev.Data.(types.TradeData)
	if !ok {
		return
	}
	o.mu.Lock()
	o.trades[trade.GatewayName+"."+trade.TradeID] = trade
	o.mu.Unlock()
	o.converter.UpdateTrade(trade)
}

func (o *OMS) processPosition(ev event.Event) {
	pos, ok := ev.Data.(types.PositionData)
	if !ok {
		return
	}
	o.mu.Lock()
	o.positions[pos.VTSymbol()+"."+pos.Direction.String()] = pos
	o.mu.Unlock()
	o.converter.UpdatePosition(pos)
}

func (o *OMS) processAccount(ev event.Event) {
	account, ok := ev.Data.(types.AccountData)
	if !ok {
		return
	}
	o.mu.Lock()
	o.accounts[account.GatewayName+"."+account.AccountID] = account
	o.mu.Unlock()
}

func (o *OMS) processTimer(event.Event) {
	o.mu.RLock()
	gws := make([]gateway.Gateway, 0, len(o.gateways))
	for _, gw := range o.gateways {
		gws = append(gws, gw)
	}
	o.mu.RUnlock()

	for _, gw := range gws {
		gw.ProcessTimer()
	}
}

// localOrderID strips the gateway prefix off a vt order id.
func localOrderID(vtOrderID string) string {
	if i := strings.Index(vtOrderID, "."); i >= 0 {
		return vtOrderID[i+1:]
	}
	return vtOrderID
}
