package communicator

import (
	"sync"
	"time"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// parkedItem is an RPC that arrived before its consumer asked for it.
type parkedItem[T any] struct {
	value  T
	ack    chan error
	monKey int
}

// waiterItem is a consumer waiting for an RPC that hasn't arrived yet.
type waiterItem[T any] struct {
	ch     chan *parkedItem[T]
	monKey int
}

// singleKeyRendezvous matches one arriving value against one waiting
// consumer per key, with no additional predicate beyond key equality.
// It generalizes the reader_state_call_data_/reader_state_cb_ pair (keyed
// by dataset name) and, with a constant key, the single-slot
// ckpt_version/connection rendezvous points in communicator_ops.cc.
type singleKeyRendezvous[T any] struct {
	mu      sync.Mutex
	monitor *Monitor
	parked  map[string]*parkedItem[T]
	waiters map[string]*waiterItem[T]
}

func newSingleKeyRendezvous[T any](m *Monitor) *singleKeyRendezvous[T] {
	return &singleKeyRendezvous[T]{
		monitor: m,
		parked:  make(map[string]*parkedItem[T]),
		waiters: make(map[string]*waiterItem[T]),
	}
}

// deliver is called from the RPC handler side: a value arrived for key.
// It blocks until a consumer resolves it (consume) or the timeout fires,
// returning whatever error the consumer decided (nil on success).
func (r *singleKeyRendezvous[T]) deliver(key string, value T, timeout time.Duration) error {
	r.mu.Lock()
	if w, ok := r.waiters[key]; ok {
		delete(r.waiters, key)
		r.mu.Unlock()
		r.monitor.Unregister(w.monKey)
		ack := make(chan error, 1)
		w.ch <- &parkedItem[T]{value: value, ack: ack}
		return <-ack
	}

	item := &parkedItem[T]{value: value, ack: make(chan error, 1)}
	r.parked[key] = item
	item.monKey = r.monitor.RegisterWithTimeout(timeout, func() {
		r.mu.Lock()
		if cur, ok := r.parked[key]; ok && cur == item {
			delete(r.parked, key)
		}
		r.mu.Unlock()
		select {
		case item.ack <- efserr.DeadlineExceededf("rendezvous %q timed out waiting for a consumer", key):
		default:
		}
	})
	r.mu.Unlock()
	return <-item.ack
}

// consume is called from the application side: block until a value for
// key arrives (or is already parked), then resolve it with resolve and
// return the delivered value.
func (r *singleKeyRendezvous[T]) consume(key string, timeout time.Duration, resolve func(T) error) (T, error) {
	var zero T

	r.mu.Lock()
	if item, ok := r.parked[key]; ok {
		delete(r.parked, key)
		r.mu.Unlock()
		if !r.monitor.Unregister(item.monKey) {
			// the timeout already fired and will deliver its own error
			// on item.ack; don't double-resolve.
			return zero, efserr.DeadlineExceededf("rendezvous %q timed out", key)
		}
		err := resolve(item.value)
		item.ack <- err
		if err != nil {
			return zero, err
		}
		return item.value, nil
	}

	w := &waiterItem[T]{ch: make(chan *parkedItem[T], 1)}
	r.waiters[key] = w
	w.monKey = r.monitor.RegisterWithTimeout(timeout, func() {
		r.mu.Lock()
		if cur, ok := r.waiters[key]; ok && cur == w {
			delete(r.waiters, key)
		}
		r.mu.Unlock()
		select {
		case w.ch <- nil:
		default:
		}
	})
	r.mu.Unlock()

	item := <-w.ch
	if item == nil {
		return zero, efserr.DeadlineExceededf("rendezvous %q timed out waiting for a value", key)
	}
	err := resolve(item.value)
	item.ack <- err
	if err != nil {
		return zero, err
	}
	return item.value, nil
}
