package blocking

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/jzx17/offload/pkg/types"
)

// worker is one pool thread. It holds at most one item at a time.
type worker struct {
	id     uint64
	tid    uint64
	pool   *Pool
	logger *zap.Logger
}

func newWorker(id uint64, pool *Pool) *worker {
	return &worker{
		id:     id,
		pool:   pool,
		logger: pool.logger.With(zap.Uint64("worker_id", id)),
	}
}

// run is the worker goroutine. The goroutine stays locked to its OS thread and never
// unlocks, so the thread is torn down when the worker retires.
func (w *worker) run() {
	runtime.LockOSThread()
	w.tid = threadID(w.id)
	w.logger = w.logger.With(zap.Uint64("tid", w.tid))
	w.logger.Debug("worker started")

	for {
		reason := w.serve()

		w.pool.release()
		w.logger.Debug("worker retired", zap.Stringer("reason", reason))

		// A submitter may have counted this worker as idle just before it gave up.
		if w.pool.queue.len() == 0 || !w.pool.reserve() {
			return
		}
		w.pool.spawned.Add(1)
		w.pool.config.Metrics.RecordThreads(w.pool.config.Name, w.pool.Threads())
		w.logger.Debug("worker resumed for pending work")
	}
}

// serve loops Idle -> Running -> Idle until the idle timeout elapses or the queue is
// closed and empty.
func (w *worker) serve() popResult {
	p := w.pool
	for {
		// Waiting workers count themselves out of the load signal.
		p.load.Add(-1)
		item, res := p.queue.pop(p.config.Clock, p.config.IdleTimeout)
		if res != popItem {
			p.load.Add(1)
			return res
		}

		p.running.Add(1)
		w.execute(item)
		p.running.Add(-1)
	}
}

func (w *worker) execute(item *WorkItem) {
	p := w.pool
	start := p.config.Clock.Now()

	outcome, err := item.run(w.tid)

	p.config.Metrics.RecordTaskDuration(p.config.Name, outcome, p.config.Clock.Since(start))
	p.config.Metrics.RecordQueueDepth(p.config.Name, p.queue.len())

	switch outcome {
	case types.OutcomeOK:
		p.completed.Add(1)
	case types.OutcomeCancelled:
		p.cancelled.Add(1)
		w.logger.Debug("blocking task cancelled", zap.String("task_id", item.ID()))
	case types.OutcomePanic:
		p.failed.Add(1)
		w.logger.Error("blocking task panicked", zap.String("task_id", item.ID()), zap.Error(err))
	default:
		p.failed.Add(1)
	}
}
