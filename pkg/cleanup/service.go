// Package cleanup periodically purges terminal work-queue messages past
// their retention window, grounded on the upstream retention service's
// ticker/Start/Stop shape (pkg/queue's own poll-loop lifecycle), adapted
// from soft-deleting stale alert sessions to reclaiming a named work
// queue's completed/failed history (spec.md §4.C: terminal messages are
// retained for diagnostics, not erased on completion — this is the
// operator-facing decision to eventually erase them).
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/analytiqhub/docrouter/pkg/config"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
)

// Service sweeps a fixed set of named queues on an interval, removing
// completed/failed messages older than the configured retention window.
// All operations are idempotent and safe to run from multiple replicas.
type Service struct {
	config *config.RetentionConfig
	queues *workqueue.Registry
	names  []string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a cleanup service sweeping the named queues (e.g.
// "ocr", "ocr_err", "llm", "llm_err").
func NewService(cfg *config.RetentionConfig, queues *workqueue.Registry, names []string) *Service {
	return &Service{config: cfg, queues: queues, names: names}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"queue_message_retention", s.config.QueueMessageRetention,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.config.QueueMessageRetention)
	for _, name := range s.names {
		s.purgeQueue(ctx, name, cutoff)
	}
}

func (s *Service) purgeQueue(ctx context.Context, name string, cutoff time.Time) {
	count, err := s.queues.Queue(name).PurgeOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention: queue purge failed", "queue", name, "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: purged terminal queue messages", "queue", name, "count", count)
	}
}
