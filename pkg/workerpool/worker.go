// Package workerpool implements the Worker Pool (component I): N poll-loop
// goroutines per pipeline stage, each claiming from a workqueue.Queue and
// dispatching to a workqueue.Handler, with per-message failure isolation
// and a heartbeat ticker for liveness. Grounded directly on the teacher's
// pkg/queue.Worker/WorkerPool shape (stopCh+sync.Once+sync.WaitGroup
// shutdown, health snapshot struct, jittered poll sleep), generalized from
// one worker type tied to a single ent query into a stage-agnostic worker
// bound to any workqueue.Queue + workqueue.Handler pair.
package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/analytiqhub/docrouter/pkg/masking"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
)

// redactor scrubs secrets from handler error text before it reaches a log
// line — a failed LLM call can wrap a provider SDK error that echoes back
// request details (spec.md §4.G dispatches with ambient provider tokens).
var redactor = masking.NewService()

// Status is the current state of a single worker.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
)

// Health is a point-in-time snapshot of one worker's state.
type Health struct {
	ID                string
	Status            Status
	CurrentMessageID  string
	MessagesProcessed int
	LastActivity      time.Time
}

// pollInterval is the base sleep between empty polls (spec.md §4.I: ~200ms).
const pollInterval = 200 * time.Millisecond

// pollJitter bounds the randomized offset added to pollInterval, to avoid
// every worker in a pool waking in lockstep.
const pollJitter = 50 * time.Millisecond

// heartbeatInterval is how often an in-progress claim's liveness is
// refreshed (spec.md §4.I: ~10min).
const heartbeatInterval = 10 * time.Minute

// errorBackoff is the sleep after a non-empty-queue processing error, to
// avoid a hot loop against a handler that's failing fast.
const errorBackoff = time.Second

// Worker polls one queue and dispatches claimed messages to one handler.
type Worker struct {
	id       string
	queue    *workqueue.Queue
	errQueue *workqueue.Queue
	handler  workqueue.Handler
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu                sync.RWMutex
	status            Status
	currentMessageID  string
	messagesProcessed int
	lastActivity      time.Time
}

// NewWorker builds a Worker that claims from queue, dispatches to handler,
// and routes handler failures to errQueue (errQueue may be nil, in which
// case a failed message is simply marked failed in place).
func NewWorker(id string, queue, errQueue *workqueue.Queue, handler workqueue.Handler) *Worker {
	return &Worker{
		id:           id,
		queue:        queue,
		errQueue:     errQueue,
		handler:      handler,
		stopCh:       make(chan struct{}),
		status:       StatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the poll loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current message (if
// any) to finish. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// HealthSnapshot returns the worker's current health.
func (w *Worker) HealthSnapshot() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Health{
		ID:                w.id,
		Status:            w.status,
		CurrentMessageID:  w.currentMessageID,
		MessagesProcessed: w.messagesProcessed,
		LastActivity:      w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "queue", w.queue.Name())
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, workqueue.ErrEmpty) {
					w.sleep(w.jitteredPollInterval())
					continue
				}
				log.Error("error processing message", "error", err)
				w.sleep(errorBackoff)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	msg, err := w.queue.Recv(ctx, w.id)
	if err != nil {
		return err
	}

	log := slog.With("message_id", msg.ID, "worker_id", w.id)
	log.Info("message claimed")

	w.setStatus(StatusWorking, msg.ID)
	defer w.setStatus(StatusIdle, "")

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	go w.runHeartbeat(heartbeatCtx, msg)
	handleErr := w.handler.Handle(ctx, msg)
	cancelHeartbeat()

	if handleErr != nil {
		log.Error("handler failed", "error", redactor.Redact(handleErr.Error()))
		if routeErr := w.routeFailure(context.Background(), msg); routeErr != nil {
			return routeErr
		}
	} else if err := w.queue.Complete(context.Background(), msg.ID, models.QueueCompleted); err != nil {
		return err
	}

	w.mu.Lock()
	w.messagesProcessed++
	w.mu.Unlock()

	log.Info("message processing complete", "failed", handleErr != nil)
	return nil
}

// routeFailure moves a failed message to the error queue if one is
// configured, otherwise marks it failed in place (spec.md §4.J).
func (w *Worker) routeFailure(ctx context.Context, msg *models.QueueMessage) error {
	if w.errQueue == nil {
		return w.queue.Complete(ctx, msg.ID, models.QueueFailed)
	}
	if err := w.errQueue.Send(ctx, msg.ID, msg.MsgType, msg.Payload); err != nil {
		return err
	}
	return w.queue.Complete(ctx, msg.ID, models.QueueFailed)
}

// runHeartbeat logs liveness for a long-running claim every heartbeatInterval.
func (w *Worker) runHeartbeat(ctx context.Context, msg *models.QueueMessage) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Debug("heartbeat", "message_id", msg.ID, "worker_id", w.id)
		}
	}
}

func (w *Worker) jitteredPollInterval() time.Duration {
	offset := time.Duration(rand.Int64N(int64(2 * pollJitter)))
	return pollInterval - pollJitter + offset
}

func (w *Worker) setStatus(status Status, messageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentMessageID = messageID
	w.lastActivity = time.Now()
}
