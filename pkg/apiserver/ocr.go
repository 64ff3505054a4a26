package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// handleDownloadOCR serves one of the three OCR artifacts (spec.md §6:
// "GET .../ocr/download/{blocks|text|metadata}/{id}").
func (s *Server) handleDownloadOCR(c *gin.Context) {
	documentID := c.Param("id")

	switch c.Param("artifact") {
	case "blocks":
		blocks, err := s.ocrDocs.GetBlocks(c.Request.Context(), documentID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"blocks": blocks})
	case "text", "metadata":
		text, nPages, err := s.ocrDocs.GetText(c.Request.Context(), documentID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": text, "n_pages": nPages})
	default:
		fail(c, apperr.NewValidationError("artifact", "must be one of blocks, text, metadata"))
	}
}
