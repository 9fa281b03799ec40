package communicator

import (
	"sync"
	"time"

	"github.com/efls-io/efls-go/pkg/efserr"
)

// tensorFamily is the SendTensor/ReceiveTensor rendezvous. It differs from
// singleKeyRendezvous in one respect taken directly from call_map_ /
// callback_map_ in communicator_ops.cc: an arriving tensor parks under its
// *name*, but a consumer who arrives first waits under *name_step*, and
// when a parked tensor is finally consumed its step is checked against
// what the consumer asked for — a mismatch is DataLoss, not a timeout.
type tensorFamily struct {
	mu         sync.Mutex
	monitor    *Monitor
	registered map[string]struct{}
	parked     map[string]*parkedItem[*Tensor]
	waiters    map[string]*waiterItem[*Tensor]
}

func newTensorFamily(m *Monitor, names []string) *tensorFamily {
	f := &tensorFamily{
		monitor:    m,
		registered: make(map[string]struct{}, len(names)),
		parked:     make(map[string]*parkedItem[*Tensor]),
		waiters:    make(map[string]*waiterItem[*Tensor]),
	}
	for _, n := range names {
		f.registered[n] = struct{}{}
	}
	return f
}

// deliver is invoked by the SendMessage RPC handler when a tensor arrives
// from the peer.
func (f *tensorFamily) deliver(t *Tensor, timeout time.Duration) error {
	f.mu.Lock()
	if _, ok := f.registered[t.Name]; !ok {
		f.mu.Unlock()
		return efserr.NotFoundf("tensor named %s not registered", t.Name)
	}

	key := tensorKey(t.Name, t.Step)
	if w, ok := f.waiters[key]; ok {
		delete(f.waiters, key)
		f.mu.Unlock()
		f.monitor.Unregister(w.monKey)
		ack := make(chan error, 1)
		w.ch <- &parkedItem[*Tensor]{value: t, ack: ack}
		return <-ack
	}

	item := &parkedItem[*Tensor]{value: t, ack: make(chan error, 1)}
	f.parked[t.Name] = item
	item.monKey = f.monitor.RegisterWithTimeout(timeout, func() {
		f.mu.Lock()
		if cur, ok := f.parked[t.Name]; ok && cur == item {
			delete(f.parked, t.Name)
		}
		f.mu.Unlock()
		select {
		case item.ack <- efserr.DeadlineExceededf("send tensor %s step %d timed out", t.Name, t.Step):
		default:
		}
	})
	f.mu.Unlock()
	return <-item.ack
}

// consume is ReceiveTensor: the application asks for tensor name at step.
func (f *tensorFamily) consume(name string, step int64, timeout time.Duration) (*Tensor, error) {
	f.mu.Lock()
	if _, ok := f.registered[name]; !ok {
		f.mu.Unlock()
		return nil, efserr.InvalidArgumentf("tensor named %s not registered", name)
	}

	if item, ok := f.parked[name]; ok {
		delete(f.parked, name)
		f.mu.Unlock()
		if !f.monitor.Unregister(item.monKey) {
			return nil, efserr.DeadlineExceededf("receive tensor %s timed out", name)
		}
		if item.value.Step != step {
			err := efserr.DataLossf("tensor named %s expects step %d, but given step %d", name, step, item.value.Step)
			item.ack <- err
			return nil, err
		}
		item.ack <- nil
		return item.value, nil
	}

	key := tensorKey(name, step)
	w := &waiterItem[*Tensor]{ch: make(chan *parkedItem[*Tensor], 1)}
	f.waiters[key] = w
	w.monKey = f.monitor.RegisterWithTimeout(timeout, func() {
		f.mu.Lock()
		if cur, ok := f.waiters[key]; ok && cur == w {
			delete(f.waiters, key)
		}
		f.mu.Unlock()
		select {
		case w.ch <- nil:
		default:
		}
	})
	f.mu.Unlock()

	item := <-w.ch
	if item == nil {
		return nil, efserr.DeadlineExceededf("receive tensor %s step %d timed out", name, step)
	}
	item.ack <- nil
	return item.value, nil
}
