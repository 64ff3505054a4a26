package workqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

func TestSendRecvComplete(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := workqueue.NewRegistry(client)
	q := reg.Queue("ocr")

	id := uuid.NewString()
	require.NoError(t, q.Send(ctx, id, "ocr_request", map[string]any{"document_id": "doc-1"}))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	msg, err := q.Recv(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, "doc-1", msg.Payload["document_id"])

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth, "claimed message no longer counts as pending")

	require.NoError(t, q.Complete(ctx, id, models.QueueCompleted))
}

func TestRecvEmptyQueue(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := workqueue.NewRegistry(client)
	q := reg.Queue("llm")

	_, err := q.Recv(ctx, "worker-1")
	assert.ErrorIs(t, err, workqueue.ErrEmpty)
}

func TestRouteMovesMessageBetweenQueues(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := workqueue.NewRegistry(client)
	src := reg.Queue("ocr")

	id := uuid.NewString()
	require.NoError(t, src.Send(ctx, id, "ocr_request", map[string]any{"document_id": "doc-2"}))
	claimed, err := src.Recv(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, reg.Route(ctx, "ocr", "ocr_err", id, claimed.MsgType, claimed.Payload))

	srcDepth, err := src.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), srcDepth)

	errQueue := reg.Queue("ocr_err")
	errDepth, err := errQueue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), errDepth)
}

func TestRequeueResetsStatusAndIncrementsRetryCount(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := workqueue.NewRegistry(client)
	q := reg.Queue("ocr")

	id := uuid.NewString()
	require.NoError(t, q.Send(ctx, id, "ocr_request", map[string]any{"document_id": "doc-3"}))
	_, err := q.Recv(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, q.Requeue(ctx, id))

	msg, err := q.Recv(ctx, "worker-2")
	require.NoError(t, err)
	assert.Equal(t, 1, msg.RetryCount)
}

func TestPurgeOlderThanOnlyRemovesOldTerminalMessages(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := workqueue.NewRegistry(client)
	q := reg.Queue("llm")

	oldDone := uuid.NewString()
	require.NoError(t, q.Send(ctx, oldDone, "llm_request", map[string]any{}))
	_, err := q.Recv(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, oldDone, models.QueueCompleted))

	recentFailed := uuid.NewString()
	require.NoError(t, q.Send(ctx, recentFailed, "llm_request", map[string]any{}))
	_, err = q.Recv(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, recentFailed, models.QueueFailed))

	stillPending := uuid.NewString()
	require.NoError(t, q.Send(ctx, stillPending, "llm_request", map[string]any{}))

	// Only oldDone is old enough to be purged; recentFailed is terminal but
	// recent, stillPending is old enough but not terminal.
	cutoff := time.Now().UTC().Add(time.Hour)
	count, err := q.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "both terminal messages are older than the future cutoff")

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "the still-pending message survives the purge")
}
