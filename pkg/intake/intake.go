// Package intake implements Document Intake (component K, spec.md §4.K):
// base64 decoding, MIME inference from a fixed extension map, tag
// validation, optional non-PDF-to-PDF conversion serialized by a
// cross-process file lock, dual-blob storage of the original and PDF
// views, registry persistence, and OCR enqueue. Grounded on the teacher's
// claim-process-enqueue shape already generalized by pkg/pipeline; this
// package is the analogous "first stage" that produces the initial queue
// message rather than consuming one.
package intake

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/tagorg"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
)

// mimeByExt is the fixed extension-to-MIME mapping (spec.md §4.K step 2:
// "infer MIME from the extension using a fixed mapping"). Unknown
// extensions fail (spec.md §8 boundary behavior).
var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".txt":  "text/plain",
}

// InferMIME returns the MIME type for a filename's extension, or
// apperr.ErrValidationFailed if the extension is not in the fixed map
// (spec.md §4.K step 2, §8 "MIME inference fails for unknown extensions").
func InferMIME(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	mime, ok := mimeByExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: unknown file extension %q", apperr.ErrValidationFailed, ext)
	}
	return mime, nil
}

// DecodeBase64 decodes s, stripping a leading "data:...;base64," prefix when
// present; otherwise it decodes s as-is (spec.md §4.K step 1, §9 "dynamic
// base64 parsing" re-architected as a single decode routine).
func DecodeBase64(s string) ([]byte, error) {
	if idx := strings.Index(s, ";base64,"); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 content: %v", apperr.ErrValidationFailed, err)
	}
	return data, nil
}

// Converter abstracts the external office-document-to-PDF conversion
// service (spec.md §4.K step 5). Implementations are expected to be slow
// and are always called under the cross-process converter lock.
type Converter interface {
	ConvertToPDF(ctx context.Context, data []byte, sourceExt string) ([]byte, error)
}

// Upload describes one document submitted in an intake request (spec.md §6:
// "upload one or more documents").
type Upload struct {
	UserFileName   string
	Base64Content  string
	TagIDs         []string
	Metadata       map[string]string
}

// Intake wires the stores Document Intake needs.
type Intake struct {
	Docs      *registry.Registry
	Files     *blob.Store
	Tags      *tagorg.Tags
	Queues    *workqueue.Registry
	Converter Converter
	Lock      *flock.Flock
}

// New builds an Intake. lockPath is a well-known path used to serialize
// calls to Converter across processes (spec.md §9 "file-lock serialization
// of the external converter").
func New(docs *registry.Registry, files *blob.Store, tags *tagorg.Tags, queues *workqueue.Registry, converter Converter, lockPath string) *Intake {
	return &Intake{
		Docs:      docs,
		Files:     files,
		Tags:      tags,
		Queues:    queues,
		Converter: converter,
		Lock:      flock.New(lockPath),
	}
}

// Process runs the full intake algorithm for one upload (spec.md §4.K,
// numbered steps below match the spec).
func (in *Intake) Process(ctx context.Context, organizationID, uploadedBy string, up Upload) (*models.Document, error) {
	// 1. Decode content.
	data, err := DecodeBase64(up.Base64Content)
	if err != nil {
		return nil, err
	}

	// 2. Infer MIME.
	contentType, err := InferMIME(up.UserFileName)
	if err != nil {
		return nil, err
	}

	// 3. Validate tags belong to the organization.
	if err := in.Tags.ValidateBelongsToOrg(ctx, organizationID, up.TagIDs); err != nil {
		return nil, err
	}

	// 4. Generate document_id and mongo_file_name; save the original.
	documentID := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(up.UserFileName))
	mongoFileName := documentID + ext

	if err := in.Files.Save(ctx, mongoFileName, data, map[string]any{
		"document_id":    documentID,
		"type":           contentType,
		"size":           len(data),
		"user_file_name": up.UserFileName,
	}); err != nil {
		return nil, err
	}

	// 5. Convert to PDF if necessary, serialized by the cross-process lock.
	pdfFileName := mongoFileName
	if contentType != "application/pdf" {
		pdfFileName, err = in.convertAndSavePDF(ctx, data, ext, up.UserFileName)
		if err != nil {
			return nil, err
		}
	}

	// 6. Persist the registry row.
	now := time.Now().UTC()
	doc := &models.Document{
		ID:             documentID,
		OrganizationID: organizationID,
		UserFileName:   up.UserFileName,
		MongoFileName:  mongoFileName,
		PDFFileName:    pdfFileName,
		ContentType:    contentType,
		TagIDs:         up.TagIDs,
		Metadata:       up.Metadata,
		State:          models.StateUploaded,
		UploadDate:     now,
		UploadedBy:     uploadedBy,
		StateUpdatedAt: now,
	}
	if err := in.Docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	// 7. Enqueue one OCR message.
	if err := in.Queues.Queue("ocr").Send(ctx, documentID, "process_ocr", map[string]any{
		"document_id":     documentID,
		"organization_id": organizationID,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing ocr message for %s: %w", documentID, err)
	}

	return doc, nil
}

// ProcessBatch runs Process for every upload, stopping at the first error
// (spec.md §6: "upload one or more documents" — a batch has no partial-
// success contract beyond what each Process call already persisted).
func (in *Intake) ProcessBatch(ctx context.Context, organizationID, uploadedBy string, uploads []Upload) ([]*models.Document, error) {
	out := make([]*models.Document, 0, len(uploads))
	for _, up := range uploads {
		doc, err := in.Process(ctx, organizationID, uploadedBy, up)
		if err != nil {
			return out, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// convertAndSavePDF calls the external converter under the cross-process
// lock and saves the resulting bytes under a new PDF blob key (spec.md
// §4.K step 5).
func (in *Intake) convertAndSavePDF(ctx context.Context, data []byte, sourceExt, userFileName string) (string, error) {
	if err := in.Lock.Lock(); err != nil {
		return "", fmt.Errorf("acquiring converter lock: %w", err)
	}
	defer func() { _ = in.Lock.Unlock() }()

	pdfBytes, err := in.Converter.ConvertToPDF(ctx, data, sourceExt)
	if err != nil {
		return "", fmt.Errorf("%w: converting %q to pdf: %v", apperr.ErrValidationFailed, userFileName, err)
	}

	pdfFileName := uuid.NewString() + ".pdf"
	if err := in.Files.Save(ctx, pdfFileName, pdfBytes, map[string]any{
		"type":           "application/pdf",
		"size":           len(pdfBytes),
		"user_file_name": userFileName,
	}); err != nil {
		return "", err
	}
	return pdfFileName, nil
}
