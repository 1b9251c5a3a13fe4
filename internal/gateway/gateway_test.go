package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harborfin/tradegate/internal/event"
	"github.com/harborfin/tradegate/internal/types"
)

func TestEngineSinkMapsEventTypes(t *testing.T) {
	engine := event.NewEngine(time.Hour)

	var mu sync.Mutex
	var got []event.Type
	engine.RegisterGeneral(func(ev event.Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})
	engine.Start()
	defer engine.Stop()

	sink := EngineSink{Engine: engine}
	sink.OnTick(types.TickData{})
	sink.OnOrder(types.OrderData{})
	sink.OnTrade(types.TradeData{})
	sink.OnPosition(types.PositionData{})
	sink.OnAccount(types.AccountData{})
	sink.OnContract(types.ContractData{})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 6
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []event.Type{
		event.TypeTick, event.TypeOrder, event.TypeTrade,
		event.TypePosition, event.TypeAccount, event.TypeContract,
	}, got)
}
