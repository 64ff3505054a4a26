package ocr

import "fmt"

// Blob keys for the three derived OCR artifacts in the "ocr" bucket
// (spec.md §3 OCR Artifact).
func JSONKey(documentID string) string { return documentID + "_json" }

// LegacyJSONKey is the historical key name that must remain readable
// alongside JSONKey (spec.md §3: "legacy key {doc_id}_list must also be
// readable").
func LegacyJSONKey(documentID string) string { return documentID + "_list" }

func TextKey(documentID string) string { return documentID + "_text" }

func PageTextKey(documentID string, page int) string {
	return fmt.Sprintf("%s_text_page_%d", documentID, page)
}
