package coinbase

import (
	"sync"

	"github.com/harborfin/tradegate/internal/types"
)

// orderStore owns all order/id state for one gateway instance, so
// several exchange connections can run concurrently without leaking
// state into each other.
//
// An order is registered under its local id at submission time and
// additionally under its exchange system id once "received" binds the
// two. Updates racing in from the stream and the REST callback paths
// are merged under the only-advance rule.
type orderStore struct {
	mu sync.Mutex

	byLocal map[string]*types.OrderData
	bySys   map[string]*types.OrderData

	localToSys map[string]string

	// pendingCancels buffers cancels issued before the system id is
	// known, keyed by local id, replayed on binding.
	pendingCancels map[string]types.CancelRequest
}

func newOrderStore() *orderStore {
	return &orderStore{
		byLocal:        make(map[string]*types.OrderData),
		bySys:          make(map[string]*types.OrderData),
		localToSys:     make(map[string]string),
		pendingCancels: make(map[string]types.CancelRequest),
	}
}

// putLocal registers a freshly submitted order under its local id.
func (s *orderStore) putLocal(order types.OrderData) *types.OrderData {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := order
	s.byLocal[o.OrderID] = &o
	if o.SysOrderID != "" {
		s.bySys[o.SysOrderID] = &o
		s.localToSys[o.OrderID] = o.SysOrderID
	}
	return &o
}

// bind attaches the exchange system id to a local order, creating the
// record if the "received" packet is the first sighting. It returns
// the order and any buffered cancel that must now be replayed.
func (s *orderStore) bind(localID, sysID string, template types.OrderData) (*types.OrderData, *types.CancelRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byLocal[localID]
	if !ok {
		t := template
		o = &t
		s.byLocal[localID] = o
	}
	o.SysOrderID = sysID
	s.bySys[sysID] = o
	s.localToSys[localID] = sysID

	if req, ok := s.pendingCancels[localID]; ok {
		delete(s.pendingCancels, localID)
		return o, &req
	}
	return o, nil
}

// getBySys looks an order up by exchange system id.
func (s *orderStore) getBySys(sysID string) (*types.OrderData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.bySys[sysID]
	return o, ok
}

// getByLocal looks an order up by local id.
func (s *orderStore) getByLocal(localID string) (*types.OrderData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byLocal[localID]
	return o, ok
}

// sysFor resolves the system id bound to a local id.
func (s *orderStore) sysFor(localID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.localToSys[localID]
	return sys, ok
}

// bufferCancel parks a cancel until the system id is known or quota
// frees up.
func (s *orderStore) bufferCancel(req types.CancelRequest) {
	s.mu.Lock()
	s.pendingCancels[req.OrderID] = req
	s.mu.Unlock()
}

// drainPendingCancels removes and returns every buffered cancel.
func (s *orderStore) drainPendingCancels() []types.CancelRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pendingCancels) == 0 {
		return nil
	}
	out := make([]types.CancelRequest, 0, len(s.pendingCancels))
	for _, req := range s.pendingCancels {
		out = append(out, req)
	}
	s.pendingCancels = make(map[string]types.CancelRequest)
	return out
}

// advance merges a status/traded update under the only-advance rule
// and reports whether anything changed. Late deliveries that would
// regress status or traded volume are discarded.
func (s *orderStore) advance(o *types.OrderData, status types.Status, traded float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if status.Rank() > o.Status.Rank() {
		o.Status = status
		changed = true
	}
	if traded > o.Traded {
		o.Traded = traded
		changed = true
	}
	return changed
}

// snapshot copies an order for pushing; callers must not publish the
// stored pointer itself.
func (s *orderStore) snapshot(o *types.OrderData) types.OrderData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *o
}

// activeOrders lists the currently active orders.
func (s *orderStore) activeOrders() []types.OrderData {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.OrderData, 0, len(s.byLocal))
	for _, o := range s.byLocal {
		if o.IsActive() {
			out = append(out, *o)
		}
	}
	return out
}
