// Package event provides the in-process bus carrying normalized
// gateway output (ticks, orders, trades, accounts, contracts) to the
// trading engine, plus the periodic timer event that drives rate-limit
// resets and account polling.
package event

import (
	"sync"
	"time"

	"github.com/harborfin/tradegate/internal/logging"
)

// Type tags an event with its payload kind.
type Type int

const (
	TypeTick Type = iota
	TypeOrder
	TypeTrade
	TypePosition
	TypeAccount
	TypeContract
	TypeTimer
)

// Event is one bus message. Data holds the payload matching Type.
type Event struct {
	Type Type
	Data any
}

// Handler consumes events. Handlers run on the single dispatch
// goroutine and must not block on network I/O.
type Handler func(Event)

// Engine fans events out to registered handlers in registration order.
type Engine struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	general  []Handler

	queue    chan Event
	interval time.Duration
	stop     chan struct{}
	done     sync.WaitGroup
}

// NewEngine creates an engine emitting a timer event every interval.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	return &Engine{
		handlers: make(map[Type][]Handler),
		queue:    make(chan Event, 1024),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Register adds a handler for one event type.
func (e *Engine) Register(t Type, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[t] = append(e.handlers[t], h)
}

// RegisterGeneral adds a handler receiving every event.
func (e *Engine) RegisterGeneral(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.general = append(e.general, h)
}

// Put queues an event for dispatch. A full queue drops the event with
// a warning rather than blocking the producer.
func (e *Engine) Put(ev Event) {
	select {
	case e.queue <- ev:
	default:
		logger := logging.Component("event")
		logger.Warn().
			Int("type", int(ev.Type)).
			Msg("event queue full, dropping event")
	}
}

// Start launches the dispatch and timer goroutines.
func (e *Engine) Start() {
	e.done.Add(2)
	go e.dispatchLoop()
	go e.timerLoop()
}

// Stop shuts the engine down and waits for the loops to exit.
func (e *Engine) Stop() {
	close(e.stop)
	e.done.Wait()
}

func (e *Engine) dispatchLoop() {
	defer e.done.Done()
	for {
		select {
		case <-e.stop:
			return
		case ev := <-e.queue:
			e.mu.RLock()
			typed := e.handlers[ev.Type]
			general := e.general
			e.mu.RUnlock()

			for _, h := range typed {
				e.safeCall(h, ev)
			}
			for _, h := range general {
				e.safeCall(h, ev)
			}
		}
	}
}

// safeCall isolates handler panics so one bad consumer cannot kill
// the dispatch loop.
func (e *Engine) safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger := logging.Component("event")
			logger.Error().
				Int("type", int(ev.Type)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(ev)
}

func (e *Engine) timerLoop() {
	defer e.done.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.Put(Event{Type: TypeTimer})
		}
	}
}
