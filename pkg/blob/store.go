// Package blob implements the content-addressed blob store (spec.md §4.A)
// on top of MongoDB GridFS. Buckets (e.g. "files" for originals/PDFs, "ocr"
// for OCR artifacts) map to GridFS bucket prefixes; a blob's key is its
// GridFS filename. Retry shape is grounded on the upstream queue worker's
// poll-with-backoff loop (pkg/queue/worker.go sleep/pollInterval), adapted
// to cenkalti/backoff for the delete-then-insert verification the spec
// mandates.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// chunkSizeBytes is the GridFS chunk size (spec.md §4.A: ~8 MiB chunks).
const chunkSizeBytes = 8 * 1024 * 1024

// deleteVerifyAttempts/Interval bound the read-after-delete verification
// loop (spec.md §4.A: up to 3 attempts, 2s apart).
const (
	deleteVerifyAttempts = 3
	deleteVerifyInterval = 2 * time.Second
	deleteRetryAttempts  = 3
)

// Blob is a stored object plus its metadata (spec.md §3 Blob).
type Blob struct {
	Bytes      []byte
	Metadata   map[string]any
	UploadDate time.Time
}

// Store is a blob store scoped to one GridFS bucket.
type Store struct {
	bucket *mongo.GridFSBucket
	files  *mongo.Collection // "<bucket>.files", queried directly for the
	// delete-verification loop rather than through bucket helper methods.
}

// NewStore opens (creating if necessary) a GridFS bucket named bucketName on db.
func NewStore(db *mongo.Database, bucketName string) (*Store, error) {
	bucket := db.GridFSBucket(options.GridFSBucket().
		SetName(bucketName).
		SetChunkSizeBytes(chunkSizeBytes))
	return &Store{bucket: bucket, files: db.Collection(bucketName + ".files")}, nil
}

// Get returns the blob stored under key, or apperr.ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, key string) (*Blob, error) {
	var buf bytes.Buffer
	stream, err := s.bucket.OpenDownloadStreamByName(ctx, key)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || containsNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("opening download stream for %q: %w", key, err)
	}
	defer stream.Close()

	if _, err := io.Copy(&buf, stream); err != nil {
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}

	file := stream.GetFile()
	meta := map[string]any{}
	if file.Metadata != nil {
		_ = bson.Unmarshal(file.Metadata, &meta)
	}

	return &Blob{Bytes: buf.Bytes(), Metadata: meta, UploadDate: file.UploadDate.Time()}, nil
}

// Save deletes any existing blob under key (with read-after-delete
// verification) and inserts bytes as a fresh GridFS file (spec.md §4.A:
// delete-then-insert ordering, no partial writes observable to readers).
func (s *Store) Save(ctx context.Context, key string, data []byte, metadata map[string]any) error {
	if err := s.deleteWithVerification(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageFailed, err)
	}

	opts := options.UploadStream()
	if metadata != nil {
		opts = opts.SetMetadata(metadata)
	}

	stream, err := s.bucket.OpenUploadStream(ctx, key, opts)
	if err != nil {
		return fmt.Errorf("%w: opening upload stream: %v", apperr.ErrStorageFailed, err)
	}
	if _, err := stream.Write(data); err != nil {
		_ = stream.Close()
		return fmt.Errorf("%w: writing blob: %v", apperr.ErrStorageFailed, err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("%w: closing upload stream: %v", apperr.ErrStorageFailed, err)
	}
	return nil
}

// Delete removes the blob under key. Idempotent: absence is not an error
// (spec.md §4.A).
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.deleteWithVerification(ctx, key)
}

// deleteWithVerification deletes all files named key, retrying the delete up
// to deleteRetryAttempts times on transient error, then polls for absence up
// to deleteVerifyAttempts times before returning.
func (s *Store) deleteWithVerification(ctx context.Context, key string) error {
	deleteOnce := func() error {
		cursor, err := s.files.Find(ctx, bson.M{"filename": key})
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		var docs []struct {
			ID bson.ObjectID `bson:"_id"`
		}
		if err := cursor.All(ctx, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			if err := s.bucket.Delete(ctx, d.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), deleteRetryAttempts-1)
	if err := backoff.Retry(deleteOnce, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("deleting existing blob after retries: %w", err)
	}

	for attempt := 0; attempt < deleteVerifyAttempts; attempt++ {
		count, err := s.files.CountDocuments(ctx, bson.M{"filename": key})
		if err != nil {
			return fmt.Errorf("verifying deletion: %w", err)
		}
		if count == 0 {
			return nil
		}
		if attempt < deleteVerifyAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(deleteVerifyInterval):
			}
		}
	}
	return fmt.Errorf("blob %q still visible after %d verification attempts", key, deleteVerifyAttempts)
}

// containsNotFound matches the driver's "file not found" message — GridFS
// returns a plain wrapped string rather than a sentinel error here.
func containsNotFound(err error) bool {
	return err != nil && (bytes.Contains([]byte(err.Error()), []byte("file does not exist")) ||
		bytes.Contains([]byte(err.Error()), []byte("not found")))
}
