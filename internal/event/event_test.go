package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestTypedHandlerReceivesOnlyItsType(t *testing.T) {
	e := NewEngine(time.Hour)
	ticks := &collector{}
	e.Register(TypeTick, ticks.handle)

	e.Start()
	defer e.Stop()

	e.Put(Event{Type: TypeTick, Data: "t"})
	e.Put(Event{Type: TypeOrder, Data: "o"})

	assert.Eventually(t, func() bool { return ticks.count() == 1 },
		time.Second, 5*time.Millisecond)

	ticks.mu.Lock()
	defer ticks.mu.Unlock()
	assert.Equal(t, TypeTick, ticks.events[0].Type)
}

func TestGeneralHandlerReceivesEverything(t *testing.T) {
	e := NewEngine(time.Hour)
	all := &collector{}
	e.RegisterGeneral(all.handle)

	e.Start()
	defer e.Stop()

	e.Put(Event{Type: TypeTick})
	e.Put(Event{Type: TypeOrder})
	e.Put(Event{Type: TypeTrade})

	assert.Eventually(t, func() bool { return all.count() == 3 },
		time.Second, 5*time.Millisecond)
}

func TestTimerEventsEmitted(t *testing.T) {
	e := NewEngine(10 * time.Millisecond)
	timers := &collector{}
	e.Register(TypeTimer, timers.handle)

	e.Start()
	defer e.Stop()

	assert.Eventually(t, func() bool { return timers.count() >= 2 },
		time.Second, 5*time.Millisecond)
}

func TestPanickingHandlerDoesNotStopDispatch(t *testing.T) {
	e := NewEngine(time.Hour)
	e.Register(TypeTick, func(Event) { panic("bad handler") })
	after := &collector{}
	e.Register(TypeTick, after.handle)

	e.Start()
	defer e.Stop()

	e.Put(Event{Type: TypeTick})
	e.Put(Event{Type: TypeTick})

	assert.Eventually(t, func() bool { return after.count() == 2 },
		time.Second, 5*time.Millisecond)
}
