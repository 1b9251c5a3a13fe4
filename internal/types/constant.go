package types

import "strconv"

// Direction is the side of an order or position.
type Direction int

const (
	DirectionLong Direction = iota
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "Long"
	case DirectionShort:
		return "Short"
	default:
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// Offset tells whether an order opens a new position or closes an
// existing one. Exchanges that settle today and yesterday volume
// separately require the distinct close-today/close-yesterday tags.
type Offset int

const (
	OffsetOpen Offset = iota
	OffsetClose
	OffsetCloseToday
	OffsetCloseYesterday
)

func (o Offset) String() string {
	switch o {
	case OffsetOpen:
		return "Open"
	case OffsetClose:
		return "Close"
	case OffsetCloseToday:
		return "CloseToday"
	case OffsetCloseYesterday:
		return "CloseYesterday"
	default:
		return "Offset(" + strconv.Itoa(int(o)) + ")"
	}
}

// OrderType is the execution style of an order.
type OrderType int

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "Limit"
	case OrderTypeMarket:
		return "Market"
	default:
		return "OrderType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Status is the gateway-observed order state. The exchange is
// authoritative; local status only ever advances in rank.
type Status int

const (
	StatusSubmitting Status = iota
	StatusNotTraded
	StatusPartTraded
	StatusAllTraded
	StatusCancelled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "Submitting"
	case StatusNotTraded:
		return "NotTraded"
	case StatusPartTraded:
		return "PartTraded"
	case StatusAllTraded:
		return "AllTraded"
	case StatusCancelled:
		return "Cancelled"
	case StatusRejected:
		return "Rejected"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// IsActive reports whether an order in this status still reserves
// position and may still trade.
func (s Status) IsActive() bool {
	switch s {
	case StatusSubmitting, StatusNotTraded, StatusPartTraded:
		return true
	default:
		return false
	}
}

// Rank orders statuses for the only-advance merge rule: updates that
// would lower the rank are late deliveries and must be ignored.
func (s Status) Rank() int {
	switch s {
	case StatusSubmitting:
		return 0
	case StatusNotTraded:
		return 1
	case StatusPartTraded:
		return 2
	default:
		// Terminal states share the top rank so a late cancel
		// confirmation cannot overwrite a fill.
		return 3
	}
}

// Exchange identifies a trading venue.
type Exchange string

const (
	ExchangeCoinbase Exchange = "COINBASE"
	ExchangeSHFE     Exchange = "SHFE"
	ExchangeINE      Exchange = "INE"
)

// todaySplitExchanges lists venues that reject a generic close and
// require explicit close-today/close-yesterday tags.
var todaySplitExchanges = map[Exchange]bool{
	ExchangeSHFE: true,
	ExchangeINE:  true,
}

// RequiresTodaySplit reports whether the venue distinguishes today
// and yesterday volume when closing.
func (e Exchange) RequiresTodaySplit() bool {
	return todaySplitExchanges[e]
}
