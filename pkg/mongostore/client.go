// Package mongostore wraps the MongoDB client and collection accessors
// shared by every storage-backed component. It plays the same role the
// upstream database.Client wrapper played for the Postgres/Ent stack, ported
// to the document store spec.md §3/§6 actually calls for.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names, matching the persisted-state list in spec.md §6.
const (
	CollDocs             = "docs"
	CollFilesFiles       = "files.files"
	CollFilesChunks      = "files.chunks"
	CollOCRFiles         = "ocr.files"
	CollOCRChunks        = "ocr.chunks"
	CollTags             = "tags"
	CollSchemaRevisions  = "schema_revisions"
	CollPromptRevisions  = "prompt_revisions"
	CollLLMRuns          = "llm_runs"
	CollLLMProviders     = "llm_providers"
	CollOrganizations    = "organizations"
	CollUsers            = "users"
	CollAccessTokens     = "access_tokens"
)

// QueueCollection returns the collection name backing a named work queue
// (spec.md §4.C — one collection per named queue, e.g. "ocr", "ocr_err", "llm").
func QueueCollection(queueName string) string {
	return queueName
}

// Client wraps a *mongo.Client bound to the application database.
type Client struct {
	raw *mongo.Client
	db  *mongo.Database
}

// NewClient connects to MongoDB and selects the database named by envName
// (spec.md §6: the ENV variable selects the database name).
func NewClient(ctx context.Context, uri, envName string) (*Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	raw, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := raw.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = raw.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{raw: raw, db: raw.Database(envName)}, nil
}

// Raw returns the underlying *mongo.Client (for health checks, GridFS buckets).
func (c *Client) Raw() *mongo.Client { return c.raw }

// DB returns the application database.
func (c *Client) DB() *mongo.Database { return c.db }

// Collection is a convenience accessor for a named collection on the
// application database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.raw.Disconnect(ctx)
}
