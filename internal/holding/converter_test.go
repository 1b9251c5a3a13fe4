package holding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/tradegate/internal/types"
)

func newTestConverter(contracts map[string]*types.ContractData) *OffsetConverter {
	return NewOffsetConverter(func(vtSymbol string) *types.ContractData {
		return contracts[vtSymbol]
	})
}

func shfeConverter() *OffsetConverter {
	c := shfeContract()
	return newTestConverter(map[string]*types.ContractData{c.VTSymbol(): c})
}

func closeShort(volume float64) types.OrderRequest {
	// Closes an existing long position.
	return types.OrderRequest{
		Symbol:    "cu2609",
		Exchange:  types.ExchangeSHFE,
		Direction: types.DirectionShort,
		Offset:    types.OffsetClose,
		Type:      types.OrderTypeLimit,
		Price:     71000,
		Volume:    volume,
	}
}

func totalVolume(reqs []types.OrderRequest) float64 {
	var sum float64
	for _, r := range reqs {
		sum += r.Volume
	}
	return sum
}

func TestConvertPassthroughForNetPositionContract(t *testing.T) {
	contract := &types.ContractData{
		Symbol: "BTC-USD", Exchange: types.ExchangeCoinbase, NetPosition: true,
	}
	c := newTestConverter(map[string]*types.ContractData{contract.VTSymbol(): contract})

	req := types.OrderRequest{
		Symbol: "BTC-USD", Exchange: types.ExchangeCoinbase,
		Direction: types.DirectionShort, Offset: types.OffsetClose, Volume: 2,
	}
	reqs := c.Convert(req, false, false)

	require.Len(t, reqs, 1)
	assert.Equal(t, req, reqs[0])
}

func TestConvertPassthroughForUnknownContract(t *testing.T) {
	c := newTestConverter(nil)

	req := closeShort(2)
	reqs := c.Convert(req, false, false)

	require.Len(t, reqs, 1)
	assert.Equal(t, req, reqs[0])
}

func TestConvertTodaySplitOpenPassesThrough(t *testing.T) {
	c := shfeConverter()
	req := closeShort(5)
	req.Offset = types.OffsetOpen

	reqs := c.Convert(req, false, false)
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OffsetOpen, reqs[0].Offset)
	assert.Equal(t, 5.0, reqs[0].Volume)
}

func TestConvertTodaySplitRejectsOversizedClose(t *testing.T) {
	c := shfeConverter()
	c.UpdatePosition(longPosition(8, 5))

	reqs := c.Convert(closeShort(10), false, false)
	assert.Empty(t, reqs)
}

func TestConvertTodaySplitSingleCloseTodayWhenFits(t *testing.T) {
	c := shfeConverter()
	c.UpdatePosition(longPosition(8, 4))

	reqs := c.Convert(closeShort(3), false, false)
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OffsetCloseToday, reqs[0].Offset)
	assert.Equal(t, 3.0, reqs[0].Volume)
}

func TestConvertTodaySplitSplitsAcrossBuckets(t *testing.T) {
	c := shfeConverter()
	// LongTd = 3, LongYd = 5.
	c.UpdatePosition(longPosition(8, 5))

	reqs := c.Convert(closeShort(7), false, false)
	require.Len(t, reqs, 2)
	assert.Equal(t, types.OffsetCloseToday, reqs[0].Offset)
	assert.Equal(t, 3.0, reqs[0].Volume)
	assert.Equal(t, types.OffsetCloseYesterday, reqs[1].Offset)
	assert.Equal(t, 4.0, reqs[1].Volume)
	assert.Equal(t, 7.0, totalVolume(reqs))
}

func TestConvertTodaySplitNoTodayVolume(t *testing.T) {
	c := shfeConverter()
	// Everything is yesterday volume.
	c.UpdatePosition(longPosition(6, 6))

	reqs := c.Convert(closeShort(4), false, false)
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OffsetCloseYesterday, reqs[0].Offset)
	assert.Equal(t, 4.0, reqs[0].Volume)
}

func TestConvertLockOppositeTodayForcesOpen(t *testing.T) {
	c := shfeConverter()
	// LongTd = 2 blocks a short close in lock mode.
	c.UpdatePosition(longPosition(5, 3))

	reqs := c.Convert(closeShort(4), true, false)
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OffsetOpen, reqs[0].Offset)
	assert.Equal(t, 4.0, reqs[0].Volume)
}

func TestConvertLockClosesYesterdayThenOpens(t *testing.T) {
	c := shfeConverter()
	// No today volume, 3 yesterday.
	c.UpdatePosition(longPosition(3, 3))

	reqs := c.Convert(closeShort(5), true, false)
	require.Len(t, reqs, 2)
	assert.Equal(t, types.OffsetCloseYesterday, reqs[0].Offset)
	assert.Equal(t, 3.0, reqs[0].Volume)
	assert.Equal(t, types.OffsetOpen, reqs[1].Offset)
	assert.Equal(t, 2.0, reqs[1].Volume)
	assert.Equal(t, 5.0, totalVolume(reqs))
}

func TestConvertLockPlainCloseTagOffSplitVenue(t *testing.T) {
	contract := plainContract()
	c := newTestConverter(map[string]*types.ContractData{contract.VTSymbol(): contract})
	c.UpdatePosition(types.PositionData{
		Symbol: "IF2609", Exchange: "CFFEX",
		Direction: types.DirectionLong, Volume: 3, YdVolume: 3,
	})

	req := types.OrderRequest{
		Symbol: "IF2609", Exchange: "CFFEX",
		Direction: types.DirectionShort, Offset: types.OffsetClose, Volume: 2,
	}
	reqs := c.Convert(req, true, false)
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OffsetClose, reqs[0].Offset)
}

func TestConvertNetClosesAvailableThenOpens(t *testing.T) {
	contract := plainContract()
	c := newTestConverter(map[string]*types.ContractData{contract.VTSymbol(): contract})
	c.UpdatePosition(types.PositionData{
		Symbol: "IF2609", Exchange: "CFFEX",
		Direction: types.DirectionLong, Volume: 3, YdVolume: 1,
	})

	req := types.OrderRequest{
		Symbol: "IF2609", Exchange: "CFFEX",
		Direction: types.DirectionShort, Offset: types.OffsetClose, Volume: 5,
	}
	reqs := c.Convert(req, false, true)
	require.Len(t, reqs, 2)
	assert.Equal(t, types.OffsetClose, reqs[0].Offset)
	assert.Equal(t, 3.0, reqs[0].Volume)
	assert.Equal(t, types.OffsetOpen, reqs[1].Offset)
	assert.Equal(t, 2.0, reqs[1].Volume)
	assert.Equal(t, 5.0, totalVolume(reqs))
}

func TestConvertNetTodayFirstOnSplitVenue(t *testing.T) {
	c := shfeConverter()
	// LongTd = 2, LongYd = 3.
	c.UpdatePosition(longPosition(5, 3))

	reqs := c.Convert(closeShort(7), false, true)
	require.Len(t, reqs, 3)
	assert.Equal(t, types.OffsetCloseToday, reqs[0].Offset)
	assert.Equal(t, 2.0, reqs[0].Volume)
	assert.Equal(t, types.OffsetCloseYesterday, reqs[1].Offset)
	assert.Equal(t, 3.0, reqs[1].Volume)
	assert.Equal(t, types.OffsetOpen, reqs[2].Offset)
	assert.Equal(t, 2.0, reqs[2].Volume)
	assert.Equal(t, 7.0, totalVolume(reqs))
}

func TestConvertVolumeConserved(t *testing.T) {
	cases := []struct {
		name      string
		yd        float64
		total     float64
		volume    float64
		lock, net bool
	}{
		{"lock split", 3, 3, 5, true, false},
		{"net split venue", 3, 5, 7, false, true},
		{"today split", 5, 8, 7, false, false},
		{"today single", 4, 8, 3, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := shfeConverter()
			c.UpdatePosition(longPosition(tc.total, tc.yd))

			reqs := c.Convert(closeShort(tc.volume), tc.lock, tc.net)
			require.NotEmpty(t, reqs)
			assert.Equal(t, tc.volume, totalVolume(reqs))
		})
	}
}

func TestConvertDeterministic(t *testing.T) {
	build := func() []types.OrderRequest {
		c := shfeConverter()
		c.UpdatePosition(longPosition(8, 5))
		return c.Convert(closeShort(7), false, false)
	}
	assert.Equal(t, build(), build())
}

func TestFrozenVolumeBlocksConversion(t *testing.T) {
	c := shfeConverter()
	c.UpdatePosition(longPosition(8, 5))

	// An active close freezes 3; only 5 of 8 remain available.
	c.UpdateOrderRequest(closeShort(3), "1", "GW")

	reqs := c.Convert(closeShort(6), false, false)
	assert.Empty(t, reqs)
}
