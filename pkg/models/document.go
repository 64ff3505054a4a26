package models

import "time"

// DocumentState is the lifecycle state of a document (spec.md §3 Document,
// §8 state machine).
type DocumentState string

const (
	StateUploaded      DocumentState = "uploaded"
	StateOCRProcessing DocumentState = "ocr_processing"
	StateOCRCompleted  DocumentState = "ocr_completed"
	StateOCRFailed     DocumentState = "ocr_failed"
	StateLLMProcessing DocumentState = "llm_processing"
	StateLLMCompleted  DocumentState = "llm_completed"
	StateLLMFailed     DocumentState = "llm_failed"
)

// validTransitions enumerates the legal document state transitions
// (spec.md §8: a document may only move forward, never skip a stage).
var validTransitions = map[DocumentState][]DocumentState{
	StateUploaded:      {StateOCRProcessing},
	StateOCRProcessing: {StateOCRCompleted, StateOCRFailed},
	StateOCRCompleted:  {StateLLMProcessing},
	StateOCRFailed:     {StateOCRProcessing},
	StateLLMProcessing: {StateLLMCompleted, StateLLMFailed},
	StateLLMFailed:     {StateLLMProcessing},
	StateLLMCompleted:  {StateLLMProcessing},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s DocumentState) CanTransition(next DocumentState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Document is the top-level record tracking one uploaded file through the
// OCR and LLM extraction pipeline (spec.md §3 Document).
type Document struct {
	ID             string            `bson:"_id" json:"id"`
	OrganizationID string            `bson:"organization_id" json:"organization_id"`
	UserFileName   string            `bson:"user_file_name" json:"user_file_name"`
	MongoFileName  string            `bson:"mongo_file_name" json:"mongo_file_name"`
	PDFFileName    string            `bson:"pdf_file_name,omitempty" json:"pdf_file_name,omitempty"`
	ContentType    string            `bson:"content_type" json:"content_type"`
	TagIDs         []string          `bson:"tag_ids" json:"tag_ids"`
	Metadata       map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	State          DocumentState     `bson:"state" json:"state"`
	ErrorMessage   string            `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadDate     time.Time         `bson:"upload_date" json:"upload_date"`
	UploadedBy     string            `bson:"uploaded_by" json:"uploaded_by"`
	StateUpdatedAt time.Time         `bson:"state_updated_at" json:"state_updated_at"`
}

// DocumentFilter narrows a registry listing (spec.md §4.B list operation).
type DocumentFilter struct {
	OrganizationID string
	NameContains   string
	TagIDs         []string
	MetadataEquals map[string]string
	Skip           int64
	Limit          int64
}
