package blocking

import (
	"sync"
	"time"

	"github.com/jzx17/offload/pkg/types"
)

type popResult int

const (
	popItem popResult = iota
	popTimeout
	popClosed
)

func (r popResult) String() string {
	switch r {
	case popItem:
		return "item"
	case popTimeout:
		return "idle_timeout"
	case popClosed:
		return "queue_closed"
	default:
		return "unknown"
	}
}

// taskQueue is an unbounded multi-producer multi-consumer FIFO.
//
// Producers append under the mutex and post a token on ready. A consumer that takes an
// item and leaves others behind re-posts the token, so one wakeup is enough to drain the
// queue through any number of consumers.
type taskQueue struct {
	mu       sync.Mutex
	items    []*WorkItem
	isClosed bool

	ready  chan struct{}
	closed chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// push never blocks
func (q *taskQueue) push(item *WorkItem) error {
	q.mu.Lock()
	if q.isClosed {
		q.mu.Unlock()
		return types.ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.notify()
	return nil
}

func (q *taskQueue) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *taskQueue) tryPop() (*WorkItem, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	remaining := len(q.items)
	if remaining == 0 {
		q.items = nil
	}
	q.mu.Unlock()

	if remaining > 0 {
		q.notify()
	}
	return item, true
}

// pop waits up to timeout for an item. Items queued before close are still handed out;
// popClosed is returned only once the queue is closed and empty.
func (q *taskQueue) pop(clock types.Clock, timeout time.Duration) (*WorkItem, popResult) {
	if item, ok := q.tryPop(); ok {
		return item, popItem
	}

	timer := clock.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.ready:
			if item, ok := q.tryPop(); ok {
				return item, popItem
			}
		case <-q.closed:
			if item, ok := q.tryPop(); ok {
				return item, popItem
			}
			return nil, popClosed
		case <-timer.C():
			return nil, popTimeout
		}
	}
}

func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.isClosed {
		q.isClosed = true
		close(q.closed)
	}
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
