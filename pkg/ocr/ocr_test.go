package ocr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/analytiqhub/docrouter/pkg/ocr"
)

func TestPageTextMapIsDenseAndSorted(t *testing.T) {
	blocks := []ocr.Block{
		{ID: "1", BlockType: ocr.BlockLine, Page: 0, Text: "INVOICE #12345"},
		{ID: "2", BlockType: ocr.BlockLine, Page: 0, Text: "Total: $1,234.56"},
		{ID: "3", BlockType: ocr.BlockLine, Page: 2, Text: "Page three line"},
	}

	pages := ocr.PageTextMap(blocks)
	assert.Len(t, pages, 3, "page 1 must be materialized as empty even with no LINE blocks")
	assert.Equal(t, "INVOICE #12345\nTotal: $1,234.56\n", pages[0])
	assert.Equal(t, "", pages[1])
	assert.Equal(t, "Page three line\n", pages[2])

	ordered := ocr.OrderedPages(pages)
	assert.Equal(t, []string{pages[0], pages[1], pages[2]}, ordered)
}

func TestKeyValueMapPairsKeysAndValues(t *testing.T) {
	blocks := []ocr.Block{
		{ID: "key1", BlockType: ocr.BlockKeyValueSet, EntityTypes: []ocr.EntityType{ocr.EntityKey},
			Relationships: []ocr.Relationship{{Type: "CHILD", IDs: []string{"w1"}}, {Type: "VALUE", IDs: []string{"val1"}}}},
		{ID: "val1", BlockType: ocr.BlockKeyValueSet, EntityTypes: []ocr.EntityType{ocr.EntityValue},
			Relationships: []ocr.Relationship{{Type: "CHILD", IDs: []string{"w2"}}}},
		{ID: "w1", BlockType: ocr.BlockWord, Text: "Vendor:"},
		{ID: "w2", BlockType: ocr.BlockWord, Text: "Acme"},
	}

	kv := ocr.KeyValueMap(blocks)
	assert.Equal(t, "Acme", kv["Vendor:"])
}

func TestFullTextJoinsPagesInOrder(t *testing.T) {
	blocks := []ocr.Block{
		{ID: "1", BlockType: ocr.BlockLine, Page: 1, Text: "second"},
		{ID: "2", BlockType: ocr.BlockLine, Page: 0, Text: "first"},
	}
	assert.Equal(t, "first\nsecond\n", ocr.FullText(ocr.PageTextMap(blocks)))
}

func TestJSONKeysCoverLegacyAndPageNaming(t *testing.T) {
	assert.Equal(t, "doc1_json", ocr.JSONKey("doc1"))
	assert.Equal(t, "doc1_list", ocr.LegacyJSONKey("doc1"))
	assert.Equal(t, "doc1_text", ocr.TextKey("doc1"))
	assert.Equal(t, "doc1_text_page_3", ocr.PageTextKey("doc1", 3))
}
