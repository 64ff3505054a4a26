package workerpool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/workerpool"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

func newQueues(t *testing.T) (*workqueue.Queue, *workqueue.Queue) {
	t.Helper()
	client := mongotest.NewTestClient(t)
	main := workqueue.New("test_stage", client.Collection("test_stage_"+t.Name()))
	errQ := workqueue.New("test_stage_err", client.Collection("test_stage_err_"+t.Name()))
	return main, errQ
}

func TestPoolProcessesMessageSuccessfully(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queue, errQ := newQueues(t)
	require.NoError(t, queue.Send(ctx, "msg-1", "ocr_request", map[string]any{"document_id": "doc-1"}))

	var handled atomic.Bool
	handler := workqueue.HandlerFunc(func(ctx context.Context, msg *models.QueueMessage) error {
		handled.Store(true)
		require.Equal(t, "doc-1", msg.Payload["document_id"])
		return nil
	})

	pool := workerpool.NewPool("test", queue, errQ, handler, 2)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool { return handled.Load() }, 5*time.Second, 20*time.Millisecond)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	require.Zero(t, depth)
}

func TestPoolRoutesFailureToErrQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queue, errQ := newQueues(t)
	require.NoError(t, queue.Send(ctx, "msg-1", "ocr_request", map[string]any{"document_id": "doc-1"}))

	handler := workqueue.HandlerFunc(func(ctx context.Context, msg *models.QueueMessage) error {
		return errors.New("handler failure")
	})

	pool := workerpool.NewPool("test", queue, errQ, handler, 1)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		depth, err := errQ.Depth(ctx)
		return err == nil && depth == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPoolHealthReportsWorkerCountAndQueueDepth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	queue, errQ := newQueues(t)
	handler := workqueue.HandlerFunc(func(ctx context.Context, msg *models.QueueMessage) error { return nil })

	pool := workerpool.NewPool("test", queue, errQ, handler, 3)
	pool.Start(ctx)
	defer pool.Stop()

	health := pool.Health(ctx)
	require.Equal(t, 3, health.TotalWorkers)
	require.Len(t, health.WorkerStats, 3)
}
