package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/config"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

// countTerminal purges with a far-future cutoff, which matches (and
// removes) every terminal message currently in q; the returned count is
// how many there were.
func countTerminal(ctx context.Context, q *workqueue.Queue) (int64, error) {
	return q.PurgeOlderThan(ctx, time.Now().UTC().Add(time.Hour))
}

func TestRunAllPurgesOnlyConfiguredQueues(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := workqueue.NewRegistry(client)
	ocr := reg.Queue("ocr")
	untouched := reg.Queue("llm")

	oldID := uuid.NewString()
	require.NoError(t, ocr.Send(ctx, oldID, "ocr_request", map[string]any{}))
	_, err := ocr.Recv(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, ocr.Complete(ctx, oldID, models.QueueCompleted))

	untouchedID := uuid.NewString()
	require.NoError(t, untouched.Send(ctx, untouchedID, "llm_request", map[string]any{}))
	_, err = untouched.Recv(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, untouched.Complete(ctx, untouchedID, models.QueueCompleted))

	cfg := &config.RetentionConfig{
		QueueMessageRetention: -time.Hour, // cutoff lands in the future: every terminal message looks old
		CleanupInterval:       time.Hour,
	}
	svc := NewService(cfg, reg, []string{"ocr"})
	svc.runAll(ctx)

	ocrDepth, err := countTerminal(ctx, ocr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ocrDepth, "ocr's terminal message was purged")

	untouchedDepth, err := countTerminal(ctx, untouched)
	require.NoError(t, err)
	assert.Equal(t, int64(1), untouchedDepth, "llm is outside the configured name list, so it is left alone")
}

func TestStartStopIsIdempotentAndCooperative(t *testing.T) {
	client := mongotest.NewTestClient(t)
	reg := workqueue.NewRegistry(client)

	cfg := &config.RetentionConfig{QueueMessageRetention: 24 * time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, reg, []string{"ocr"})

	ctx := context.Background()
	svc.Start(ctx)
	svc.Start(ctx) // duplicate start is a no-op
	svc.Stop()
	svc.Stop() // duplicate stop is a no-op
}
