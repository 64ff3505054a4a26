// Package workqueue implements the named work queues documents move through
// between pipeline stages (spec.md §4.C Work Queue). Each named queue is
// backed by its own MongoDB collection; claiming a message is a single
// atomic FindOneAndUpdate, the same "claim via one conditional update"
// pattern the upstream queue package used for FOR UPDATE SKIP LOCKED claims
// (pkg/queue/worker.go claimNextSession), adapted from a SQL transaction to
// Mongo's document-level atomicity. Terminal messages are retained with a
// terminal status rather than deleted (spec.md §4.C: at-least-once delivery
// is a diagnostic concern, not something the core queue erases evidence of).
package workqueue

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/analytiqhub/docrouter/pkg/models"
)

// ErrEmpty indicates no pending message is currently available.
var ErrEmpty = errors.New("workqueue: no message available")

// Queue is a single named queue (spec.md §4.C: one collection per name, e.g.
// "ocr", "ocr_err", "llm").
type Queue struct {
	name string
	coll *mongo.Collection
}

// New binds a Queue to collection coll under the given name.
func New(name string, coll *mongo.Collection) *Queue {
	return &Queue{name: name, coll: coll}
}

// Name returns the queue's name.
func (q *Queue) Name() string { return q.name }

// Send enqueues payload as a new pending message and returns its ID.
func (q *Queue) Send(ctx context.Context, id, msgType string, payload map[string]any) error {
	msg := models.QueueMessage{
		ID:        id,
		Status:    models.QueuePending,
		MsgType:   msgType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	_, err := q.coll.InsertOne(ctx, msg)
	return err
}

// Recv atomically claims the oldest pending message, marking it processing.
// Returns ErrEmpty if the queue has no pending messages (spec.md §4.C recv).
func (q *Queue) Recv(ctx context.Context, claimedBy string) (*models.QueueMessage, error) {
	now := time.Now().UTC()
	filter := bson.M{"status": models.QueuePending}
	update := bson.M{"$set": bson.M{
		"status":     models.QueueProcessing,
		"claimed_at": now,
		"claimed_by": claimedBy,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var msg models.QueueMessage
	err := q.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Complete sets a claimed message's terminal status (spec.md §4.C complete:
// "completed" or "failed").
func (q *Queue) Complete(ctx context.Context, id string, status models.QueueMessageStatus) error {
	_, err := q.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	return err
}

// Requeue resets a claimed message back to pending, incrementing its retry
// count (used when a caller wants to retry in place rather than route to an
// error queue).
func (q *Queue) Requeue(ctx context.Context, id string) error {
	_, err := q.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"status": models.QueuePending},
		"$inc":   bson.M{"retry_count": 1},
		"$unset": bson.M{"claimed_at": "", "claimed_by": ""},
	})
	return err
}

// Depth returns the number of pending messages.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.coll.CountDocuments(ctx, bson.M{"status": models.QueuePending})
}

// PurgeOlderThan deletes terminal (completed or failed) messages created
// before cutoff, returning the count removed. Pending and processing
// messages are never purged — only pkg/cleanup's retention sweep calls
// this, and only after a message has already reached a terminal status.
func (q *Queue) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":     bson.M{"$in": bson.A{models.QueueCompleted, models.QueueFailed}},
		"created_at": bson.M{"$lt": cutoff},
	}
	res, err := q.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
