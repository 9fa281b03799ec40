package dataset

import (
	"context"
	"sync"

	"github.com/efls-io/efls-go/pkg/efserr"
	"github.com/efls-io/efls-go/pkg/log"
	"github.com/efls-io/efls-go/pkg/metrics"
)

// EndFileDefaultName is appended to a work queue's contents on Close (and
// on Restore) when the queue was created with setEndFile, so a consumer
// reading items off the queue can recognize end-of-input without racing
// Close itself.
const EndFileDefaultName = "__DATA_IO_END_FILE_NAME__"

// WorkQueue is a FIFO of work item names (file paths, block ids, ...)
// shared between a producer goroutine (or process) and one or more worker
// goroutines taking items off it. Grounded on
// _examples/original_source/efls-train/cc/efl/data/work_queue.cc, with the
// mutex+condition_variable pair there replaced by a mutex plus a
// broadcast-on-change channel, matching the rendezvous wake-up idiom
// already used in pkg/communicator.
type WorkQueue struct {
	name       string
	setEndFile bool

	mu     sync.Mutex
	queue  []string
	closed bool
	waitCh chan struct{}

	poolOnce sync.Once
	poolCh   chan func()
}

// NewWorkQueue creates an empty queue. When setEndFile is true, Close and
// Restore append EndFileDefaultName as a sentinel item.
func NewWorkQueue(name string, setEndFile bool) *WorkQueue {
	return &WorkQueue{
		name:       name,
		setEndFile: setEndFile,
		waitCh:     make(chan struct{}),
	}
}

// wake must be called with mu held; it releases every goroutine currently
// blocked in Take.
func (q *WorkQueue) wake() {
	close(q.waitCh)
	q.waitCh = make(chan struct{})
}

// Put appends items to the queue. Putting into an already-closed queue is
// not an error: it is logged and ignored, matching the original's
// "reinitialized" warning rather than rejecting the call.
func (q *WorkQueue) Put(items []string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.Logger.Warn().Str("queue", q.name).Msg("work queue reinitialized after close, put ignored")
		return
	}
	q.queue = append(q.queue, items...)
	metrics.WorkQueueDepth.Set(float64(len(q.queue)))
	q.wake()
	q.mu.Unlock()
}

// Take removes and returns the oldest item, blocking until one is
// available. It returns an OutOfRange error once the queue is both empty
// and closed, and a DeadlineExceeded error if ctx is canceled first.
func (q *WorkQueue) Take(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.queue) > 0 {
			item := q.queue[0]
			q.queue = q.queue[1:]
			metrics.WorkQueueDepth.Set(float64(len(q.queue)))
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return "", efserr.OutOfRangef("all works in work queue %s are taken", q.name)
		}
		ch := q.waitCh
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return "", efserr.DeadlineExceededf("take from work queue %s: %v", q.name, ctx.Err())
		}
	}
}

// GetSize returns the current number of items in the queue.
func (q *WorkQueue) GetSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Restore replaces the queue's contents, re-appending the end-file
// sentinel if this queue was created with setEndFile. Used to resume a
// work queue from a checkpointed Save.
func (q *WorkQueue) Restore(items []string) {
	q.mu.Lock()
	q.queue = append([]string(nil), items...)
	if q.setEndFile {
		q.queue = append(q.queue, EndFileDefaultName)
	}
	metrics.WorkQueueDepth.Set(float64(len(q.queue)))
	q.wake()
	q.mu.Unlock()
}

// Save returns the queue's contents with the trailing end-file sentinel
// (if any) stripped off, suitable for a later Restore.
func (q *WorkQueue) Save() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.queue)
	if q.setEndFile {
		n--
	}
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	copy(out, q.queue[:n])
	return out
}

// Close marks the queue as closed: no more items will ever be added, and
// every goroutine parked in Take against an empty queue is released. When
// the queue was created with setEndFile, one of them receives
// EndFileDefaultName and the rest an OutOfRange error; otherwise all get
// OutOfRange. Close is idempotent.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.setEndFile {
		q.queue = append(q.queue, EndFileDefaultName)
	}
	q.closed = true
	metrics.WorkQueueDepth.Set(float64(len(q.queue)))
	q.wake()
	q.mu.Unlock()
}

// Schedule runs fn on a worker pool private to this queue, creating the
// pool (sized numThreads) on the first call and reusing it on every call
// after, matching work_queue.cc's lazily-initialized thread::ThreadPool.
func (q *WorkQueue) Schedule(numThreads int, fn func()) {
	q.poolOnce.Do(func() {
		q.poolCh = make(chan func(), numThreads*4)
		for i := 0; i < numThreads; i++ {
			go func() {
				for task := range q.poolCh {
					task()
				}
			}()
		}
	})
	q.poolCh <- fn
}
