package ocr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/analytiqhub/docrouter/pkg/blob"
)

// Store persists and retrieves the three OCR artifacts for a document
// (spec.md §3 OCR Artifact) in the "ocr" bucket.
type Store struct {
	bucket *blob.Store
}

// NewStore binds an artifact Store to the "ocr" bucket's blob.Store.
func NewStore(bucket *blob.Store) *Store {
	return &Store{bucket: bucket}
}

// SaveBlocks persists the raw block list as JSON at JSONKey(documentID).
func (s *Store) SaveBlocks(ctx context.Context, documentID string, blocks []Block) error {
	raw, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("marshaling OCR blocks: %w", err)
	}
	return s.bucket.Save(ctx, JSONKey(documentID), raw, map[string]any{"document_id": documentID})
}

// SaveText persists the whole-document text and per-page texts (spec.md §3:
// "{doc_id}_text" carries n_pages metadata; "{doc_id}_text_page_{i}" per page).
func (s *Store) SaveText(ctx context.Context, documentID string, pages []string) error {
	fullText := ""
	for _, p := range pages {
		fullText += p
	}
	meta := map[string]any{"document_id": documentID, "n_pages": len(pages)}
	if err := s.bucket.Save(ctx, TextKey(documentID), []byte(fullText), meta); err != nil {
		return err
	}
	for i, p := range pages {
		if err := s.bucket.Save(ctx, PageTextKey(documentID, i), []byte(p), map[string]any{"document_id": documentID, "page": i}); err != nil {
			return err
		}
	}
	return nil
}

// GetBlocks retrieves the block list, falling back to the legacy key name
// (spec.md §3: "legacy key {doc_id}_list must also be readable").
func (s *Store) GetBlocks(ctx context.Context, documentID string) ([]Block, error) {
	b, err := s.bucket.Get(ctx, JSONKey(documentID))
	if err != nil {
		b, err = s.bucket.Get(ctx, LegacyJSONKey(documentID))
		if err != nil {
			return nil, err
		}
	}
	var blocks []Block
	if err := json.Unmarshal(b.Bytes, &blocks); err != nil {
		return nil, fmt.Errorf("unmarshaling OCR blocks: %w", err)
	}
	return blocks, nil
}

// GetText retrieves the whole-document text blob.
func (s *Store) GetText(ctx context.Context, documentID string) (string, int, error) {
	b, err := s.bucket.Get(ctx, TextKey(documentID))
	if err != nil {
		return "", 0, err
	}
	nPages, _ := b.Metadata["n_pages"].(int32)
	if nPages == 0 {
		if f, ok := b.Metadata["n_pages"].(float64); ok {
			nPages = int32(f)
		}
	}
	return string(b.Bytes), int(nPages), nil
}

// DeleteAll removes every OCR artifact for documentID, including per-page
// texts up to nPages and the legacy JSON key (spec.md §4.B cascading
// delete). nPages may be 0 if the document never reached OCR completion.
func (s *Store) DeleteAll(ctx context.Context, documentID string, nPages int) error {
	keys := []string{JSONKey(documentID), LegacyJSONKey(documentID), TextKey(documentID)}
	for i := 0; i < nPages; i++ {
		keys = append(keys, PageTextKey(documentID, i))
	}
	for _, k := range keys {
		if err := s.bucket.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
