package models

import "time"

// QueueMessageStatus is the lifecycle state of one queued message (spec.md
// §4.C: pending -> processing -> {completed, failed}; terminal messages are
// retained, not deleted, for at-least-once-delivery diagnostics).
type QueueMessageStatus string

const (
	QueuePending    QueueMessageStatus = "pending"
	QueueProcessing QueueMessageStatus = "processing"
	QueueCompleted  QueueMessageStatus = "completed"
	QueueFailed     QueueMessageStatus = "failed"
)

// QueueMessage is one unit of work in a named queue collection (spec.md
// §4.C Work Queue). Payload carries the stage-specific body (document ID,
// retry count, etc.) as a raw document so the queue package stays agnostic
// of what stages put into it.
type QueueMessage struct {
	ID         string             `bson:"_id" json:"id"`
	Status     QueueMessageStatus `bson:"status" json:"status"`
	MsgType    string             `bson:"msg_type" json:"msg_type"`
	Payload    map[string]any     `bson:"msg" json:"msg"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	ClaimedAt  *time.Time         `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	ClaimedBy  string             `bson:"claimed_by,omitempty" json:"claimed_by,omitempty"`
	RetryCount int                `bson:"retry_count" json:"retry_count"`
}
