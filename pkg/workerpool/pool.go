package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/analytiqhub/docrouter/pkg/workqueue"
)

// PoolHealth is a point-in-time snapshot of a stage's worker pool.
type PoolHealth struct {
	Stage         string
	TotalWorkers  int
	ActiveWorkers int
	QueueDepth    int64
	WorkerStats   []Health
}

// Pool manages N workers for a single pipeline stage, all claiming from the
// same queue and dispatching to the same handler (spec.md §4.I, §4.J).
type Pool struct {
	stage    string
	queue    *workqueue.Queue
	errQueue *workqueue.Queue
	handler  workqueue.Handler
	count    int

	workers []*Worker
	mu      sync.Mutex
	started bool
}

// NewPool builds a Pool of count workers for stage, claiming from queue and
// routing failures to errQueue (nil is allowed; see Worker.routeFailure).
func NewPool(stage string, queue, errQueue *workqueue.Queue, handler workqueue.Handler, count int) *Pool {
	if count < 1 {
		count = 1
	}
	return &Pool{stage: stage, queue: queue, errQueue: errQueue, handler: handler, count: count}
}

// Start spawns the pool's worker goroutines. Safe to call multiple times;
// subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call", "stage", p.stage)
		return
	}
	p.started = true

	slog.Info("starting worker pool", "stage", p.stage, "worker_count", p.count)
	p.workers = make([]*Worker, 0, p.count)
	for i := 0; i < p.count; i++ {
		id := fmt.Sprintf("%s-worker-%d", p.stage, i)
		worker := NewWorker(id, p.queue, p.errQueue, p.handler)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
}

// Stop signals every worker to stop and waits for in-flight messages to
// finish (graceful shutdown).
func (p *Pool) Stop() {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	slog.Info("stopping worker pool", "stage", p.stage)
	for _, w := range workers {
		w.Stop()
	}
	slog.Info("worker pool stopped", "stage", p.stage)
}

// Health reports the pool's current state, including live queue depth.
func (p *Pool) Health(ctx context.Context) *PoolHealth {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	depth, err := p.queue.Depth(ctx)
	if err != nil {
		slog.Error("failed to query queue depth for health check", "stage", p.stage, "error", err)
	}

	stats := make([]Health, len(workers))
	active := 0
	for i, w := range workers {
		h := w.HealthSnapshot()
		stats[i] = h
		if h.Status == StatusWorking {
			active++
		}
	}

	return &PoolHealth{
		Stage:         p.stage,
		TotalWorkers:  len(workers),
		ActiveWorkers: active,
		QueueDepth:    depth,
		WorkerStats:   stats,
	}
}
