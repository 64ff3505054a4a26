// Package ocr implements the OCR Adapter (spec.md §4.D): submitting document
// bytes to an external OCR service, polling until terminal, and deriving the
// block map / key-value map / per-page text map consumers need. The
// production Analyzer (textract.go) is Textract-shaped; Analyzer itself is
// a small interface so the orchestrator/pipeline never depend on a concrete
// vendor.
package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// BlockType enumerates the OCR block kinds this package understands.
type BlockType string

const (
	BlockLine         BlockType = "LINE"
	BlockWord         BlockType = "WORD"
	BlockPage         BlockType = "PAGE"
	BlockTable        BlockType = "TABLE"
	BlockKeyValueSet  BlockType = "KEY_VALUE_SET"
	BlockSelectionEl  BlockType = "SELECTION_ELEMENT"
)

// EntityType distinguishes KEY_VALUE_SET blocks playing the "key" role from
// those playing the "value" role.
type EntityType string

const (
	EntityKey   EntityType = "KEY"
	EntityValue EntityType = "VALUE"
)

// Relationship links a block to child block IDs (e.g. a KEY block's CHILD
// relationship lists the WORD blocks forming its text; a VALUE relationship
// on a key block points at its paired value block).
type Relationship struct {
	Type string   `json:"Type" bson:"type"`
	IDs  []string `json:"Ids" bson:"ids"`
}

// Block is one normalized OCR block (spec.md §4.D block list).
type Block struct {
	ID              string         `json:"Id" bson:"id"`
	BlockType       BlockType      `json:"BlockType" bson:"block_type"`
	Text            string         `json:"Text,omitempty" bson:"text,omitempty"`
	Page            int            `json:"Page,omitempty" bson:"page,omitempty"`
	EntityTypes     []EntityType   `json:"EntityTypes,omitempty" bson:"entity_types,omitempty"`
	Relationships   []Relationship `json:"Relationships,omitempty" bson:"relationships,omitempty"`
}

// Features toggle optional OCR analysis types (spec.md §4.D: "tables,
// forms, queries").
type Features struct {
	Tables  bool
	Forms   bool
	Queries []string
}

// Result is the raw output of a completed OCR analysis.
type Result struct {
	Blocks []Block
}

// Analyzer performs OCR on document bytes, handing back the raw block list
// (spec.md §4.D). Implementations own the upload/poll/paginate/cleanup
// protocol; callers only see success-or-ocr-failed.
type Analyzer interface {
	Analyze(ctx context.Context, documentID string, pdfBytes []byte, features Features) (*Result, error)
}

// BlockMap indexes blocks by ID (spec.md §4.D "Block map").
func BlockMap(blocks []Block) map[string]Block {
	m := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		m[b.ID] = b
	}
	return m
}

// KeyValueMap infers key/value text pairs from KEY_VALUE_SET blocks
// (spec.md §4.D "Key/Value map"). A key block's VALUE relationship points at
// its paired value block; both blocks' text is reconstructed by walking
// their CHILD relationship into WORD blocks.
func KeyValueMap(blocks []Block) map[string]string {
	byID := BlockMap(blocks)
	out := make(map[string]string)

	for _, b := range blocks {
		if b.BlockType != BlockKeyValueSet || !hasEntity(b, EntityKey) {
			continue
		}
		keyText := blockText(b, byID)
		if keyText == "" {
			continue
		}

		var valueBlock *Block
		for _, rel := range b.Relationships {
			if rel.Type != "VALUE" {
				continue
			}
			for _, id := range rel.IDs {
				if vb, ok := byID[id]; ok {
					v := vb
					valueBlock = &v
				}
			}
		}
		if valueBlock == nil {
			out[keyText] = ""
			continue
		}
		out[keyText] = blockText(*valueBlock, byID)
	}
	return out
}

// PageTextMap concatenates LINE.Text+"\n" per page, dense across
// 0..maxPage-1 — pages with no lines materialize as "" (spec.md §4.D "Page
// text map", "dense ... sorted by page number").
func PageTextMap(blocks []Block) map[int]string {
	out := make(map[int]string)
	maxPage := -1
	for _, b := range blocks {
		if b.BlockType != BlockLine {
			continue
		}
		out[b.Page] += b.Text + "\n"
		if b.Page > maxPage {
			maxPage = b.Page
		}
	}
	for p := 0; p <= maxPage; p++ {
		if _, ok := out[p]; !ok {
			out[p] = ""
		}
	}
	return out
}

// OrderedPages returns PageTextMap's pages sorted ascending, as the per-page
// text slice the OCR adapter persists (spec.md §3 OCR Artifact).
func OrderedPages(pageMap map[int]string) []string {
	pages := make([]int, 0, len(pageMap))
	for p := range pageMap {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = pageMap[p]
	}
	return out
}

// FullText joins ordered page text into one whole-document string.
func FullText(pageMap map[int]string) string {
	return strings.Join(OrderedPages(pageMap), "")
}

func hasEntity(b Block, want EntityType) bool {
	for _, e := range b.EntityTypes {
		if e == want {
			return true
		}
	}
	return false
}

func blockText(b Block, byID map[string]Block) string {
	var words []string
	for _, rel := range b.Relationships {
		if rel.Type != "CHILD" {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := byID[id]
			if !ok {
				continue
			}
			if child.BlockType == BlockWord {
				words = append(words, child.Text)
			} else if child.BlockType == BlockSelectionEl {
				words = append(words, "")
			}
		}
	}
	return strings.Join(words, " ")
}

// ErrOCRFailed wraps apperr.ErrOCRFailed with adapter-specific detail.
func wrapFailed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrOCRFailed}, args...)...)
}
