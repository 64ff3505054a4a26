package apiserver

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/intake"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/registry"
)

// uploadRequest is the wire shape of POST .../documents (spec.md §6: "Upload
// one or more documents (base64)").
type uploadRequest struct {
	Documents []struct {
		FileName string            `json:"file_name" binding:"required"`
		Content  string            `json:"content" binding:"required"`
		TagIDs   []string          `json:"tag_ids"`
		Metadata map[string]string `json:"metadata"`
	} `json:"documents" binding:"required,min=1"`
}

func (s *Server) handleUploadDocuments(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewValidationError("documents", err.Error()))
		return
	}

	p := principalFrom(c)
	uploads := make([]intake.Upload, len(req.Documents))
	for i, d := range req.Documents {
		uploads[i] = intake.Upload{
			UserFileName:  d.FileName,
			Base64Content: d.Content,
			TagIDs:        d.TagIDs,
			Metadata:      d.Metadata,
		}
	}

	docs, err := s.intake.ProcessBatch(c.Request.Context(), c.Param("org"), p.UserID, uploads)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"documents": docs})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	organizationID := c.Param("org")

	metadata, err := registry.ParseMetadataSearch(c.Query("metadata_search"))
	if err != nil {
		fail(c, err)
		return
	}

	skip, _ := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	filter := models.DocumentFilter{
		OrganizationID: organizationID,
		NameContains:   c.Query("name"),
		TagIDs:         c.QueryArray("tag_id"),
		MetadataEquals: metadata,
		Skip:           skip,
		Limit:          limit,
	}

	docs, total, err := s.docs.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": total})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	organizationID, id := c.Param("org"), c.Param("id")

	doc, err := s.docs.Get(c.Request.Context(), organizationID, id)
	if err != nil {
		fail(c, err)
		return
	}

	fileType := c.DefaultQuery("file_type", "original")
	key := doc.MongoFileName
	if fileType == "pdf" {
		if doc.PDFFileName == "" {
			fail(c, apperr.NewValidationError("file_type", "document has no converted PDF"))
			return
		}
		key = doc.PDFFileName
	}

	bucket, err := s.files.Bucket(blob.BucketFiles)
	if err != nil {
		fail(c, err)
		return
	}
	b, err := bucket.Get(c.Request.Context(), key)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"content":  base64.StdEncoding.EncodeToString(b.Bytes),
	})
}

type updateDocumentRequest struct {
	UserFileName string            `json:"user_file_name"`
	TagIDs       []string          `json:"tag_ids"`
	Metadata     map[string]string `json:"metadata"`
}

func (s *Server) handleUpdateDocument(c *gin.Context) {
	organizationID, id := c.Param("org"), c.Param("id")

	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewValidationError("body", err.Error()))
		return
	}

	if len(req.TagIDs) > 0 {
		if err := s.tags.ValidateBelongsToOrg(c.Request.Context(), organizationID, req.TagIDs); err != nil {
			fail(c, err)
			return
		}
	}

	doc, err := s.docs.UpdateMetadata(c.Request.Context(), organizationID, id, req.UserFileName, req.TagIDs, req.Metadata)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	organizationID, id := c.Param("org"), c.Param("id")
	if err := s.docs.Delete(c.Request.Context(), organizationID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
