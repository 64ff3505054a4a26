package workqueue

import (
	"context"

	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/mongostore"
)

// Registry binds the named queues a pipeline stage needs (e.g. the OCR
// handler uses "ocr" for work and "ocr_err" for failures, spec.md §4.J).
type Registry struct {
	store *mongostore.Client
	byName map[string]*Queue
}

// NewRegistry builds a Registry backed by store, lazily materializing
// collections on first use of a name.
func NewRegistry(store *mongostore.Client) *Registry {
	return &Registry{store: store, byName: make(map[string]*Queue)}
}

// Queue returns (creating if necessary) the named queue.
func (r *Registry) Queue(name string) *Queue {
	if q, ok := r.byName[name]; ok {
		return q
	}
	q := New(name, r.store.Collection(mongostore.QueueCollection(name)))
	r.byName[name] = q
	return q
}

// Route moves a message from one named queue to another, preserving its
// payload and retry count (spec.md §4.J: a stage failure routes the message
// to its "*_err" queue rather than discarding it).
func (r *Registry) Route(ctx context.Context, fromQueue, toQueue, id, msgType string, payload map[string]any) error {
	from := r.Queue(fromQueue)
	to := r.Queue(toQueue)

	if err := to.Send(ctx, id, msgType, payload); err != nil {
		return err
	}
	return from.Complete(ctx, id, models.QueueFailed)
}
