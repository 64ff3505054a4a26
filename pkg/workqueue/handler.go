package workqueue

import (
	"context"

	"github.com/analytiqhub/docrouter/pkg/models"
)

// Handler processes one claimed message from a stage's queue (spec.md §4.J:
// the OCR and LLM stage handlers are the only two implementations). A
// non-nil error routes the message to the queue's "_err" sibling rather
// than discarding it; a nil error marks it completed.
type Handler interface {
	Handle(ctx context.Context, msg *models.QueueMessage) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, msg *models.QueueMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg *models.QueueMessage) error { return f(ctx, msg) }
