package types

// OrderRequest is an abstract outbound order intent. It is immutable
// once issued; offset conversion produces new requests and never
// mutates the original.
type OrderRequest struct {
	Symbol   string
	Exchange Exchange

	Direction Direction
	Offset    Offset
	Type      OrderType
	Price     float64
	Volume    float64
}

func (r OrderRequest) VTSymbol() string { return VTSymbol(r.Symbol, r.Exchange) }

// CreateOrderData materializes the gateway-side order record for this
// request under the given local order id.
func (r OrderRequest) CreateOrderData(orderID, gatewayName string) OrderData {
	return OrderData{
		Symbol:      r.Symbol,
		Exchange:    r.Exchange,
		OrderID:     orderID,
		Type:        r.Type,
		Direction:   r.Direction,
		Offset:      r.Offset,
		Price:       r.Price,
		Volume:      r.Volume,
		Status:      StatusSubmitting,
		GatewayName: gatewayName,
	}
}

// CancelRequest asks for cancellation of one order by local id.
type CancelRequest struct {
	OrderID  string
	Symbol   string
	Exchange Exchange
}

func (r CancelRequest) VTSymbol() string { return VTSymbol(r.Symbol, r.Exchange) }

// SubscribeRequest asks for market data on one instrument.
type SubscribeRequest struct {
	Symbol   string
	Exchange Exchange
}

func (r SubscribeRequest) VTSymbol() string { return VTSymbol(r.Symbol, r.Exchange) }
