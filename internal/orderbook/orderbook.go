// Package orderbook reconstructs per-instrument books from snapshot
// and diff messages and derives depth-guarded top-5 ticks.
package orderbook

import (
	"sort"
	"sync"
	"time"

	"github.com/harborfin/tradegate/internal/types"
)

// Level is one price level of a book side.
type Level struct {
	Price float64
	Size  float64
}

// Book maintains the two price-to-size mappings for one instrument.
// Depth is unbounded internally; only the top five levels per side are
// exposed on generated ticks. A level with size zero is removed, never
// stored.
type Book struct {
	mu   sync.Mutex
	bids map[float64]float64
	asks map[float64]float64
	tick types.TickData
}

// New creates an empty book for the instrument.
func New(symbol string, exchange types.Exchange, gatewayName string) *Book {
	return &Book{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
		tick: types.TickData{
			Symbol:      symbol,
			Exchange:    exchange,
			GatewayName: gatewayName,
		},
	}
}

// ApplySnapshot bulk-replaces both sides.
func (b *Book) ApplySnapshot(bids, asks [][2]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = make(map[float64]float64, len(bids))
	b.asks = make(map[float64]float64, len(asks))
	for _, l := range bids {
		if l[1] != 0 {
			b.bids[l[0]] = l[1]
		}
	}
	for _, l := range asks {
		if l[1] != 0 {
			b.asks[l[0]] = l[1]
		}
	}
}

// ApplyChange applies one authoritative (side, price, size) diff: size
// zero deletes the level, any other size replaces it outright.
func (b *Book) ApplyChange(side types.Direction, price, size float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	levels := b.asks
	if side == types.DirectionLong {
		levels = b.bids
	}
	if size == 0 {
		delete(levels, price)
	} else {
		levels[price] = size
	}
}

// ApplyTicker updates the statistics fields independent of book
// levels.
func (b *Book) ApplyTicker(open, high, low, last, volume float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tick.OpenPrice = open
	b.tick.HighPrice = high
	b.tick.LowPrice = low
	b.tick.LastPrice = last
	b.tick.Volume = volume
}

// Reset discards all levels. Used after a stream reconnect, when book
// state predating the disconnect is stale and must be re-snapshotted.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = make(map[float64]float64)
	b.asks = make(map[float64]float64)
}

// Tick builds a snapshot with the current top-5 of each side. Sides
// with fewer than five levels report a smaller depth instead of
// faulting.
func (b *Book) Tick(dt time.Time) types.TickData {
	b.mu.Lock()
	defer b.mu.Unlock()

	tick := b.tick
	tick.Datetime = dt

	bidPrices := sortedPrices(b.bids, true)
	askPrices := sortedPrices(b.asks, false)

	tick.BidDepth = min(len(bidPrices), types.MaxDepth)
	tick.AskDepth = min(len(askPrices), types.MaxDepth)

	for i := 0; i < tick.BidDepth; i++ {
		tick.BidPrices[i] = bidPrices[i]
		tick.BidVolumes[i] = b.bids[bidPrices[i]]
	}
	for i := 0; i < tick.AskDepth; i++ {
		tick.AskPrices[i] = askPrices[i]
		tick.AskVolumes[i] = b.asks[askPrices[i]]
	}

	return tick
}

// BestBid returns the highest bid, or false on an empty side.
func (b *Book) BestBid() (Level, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prices := sortedPrices(b.bids, true)
	if len(prices) == 0 {
		return Level{}, false
	}
	return Level{Price: prices[0], Size: b.bids[prices[0]]}, true
}

// BestAsk returns the lowest ask, or false on an empty side.
func (b *Book) BestAsk() (Level, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prices := sortedPrices(b.asks, false)
	if len(prices) == 0 {
		return Level{}, false
	}
	return Level{Price: prices[0], Size: b.asks[prices[0]]}, true
}

func sortedPrices(levels map[float64]float64, descending bool) []float64 {
	prices := make([]float64, 0, len(levels))
	for p := range levels {
		prices = append(prices, p)
	}
	if descending {
		sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
	} else {
		sort.Float64s(prices)
	}
	return prices
}
