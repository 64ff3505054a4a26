package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// handleRunLLM force-runs every matching prompt revision against a document
// (spec.md §6 "POST .../llm/run/{id}: Force-run LLM for a document").
func (s *Server) handleRunLLM(c *gin.Context) {
	organizationID, documentID := c.Param("org"), c.Param("id")
	p := principalFrom(c)

	doc, err := s.docs.Get(c.Request.Context(), organizationID, documentID)
	if err != nil {
		fail(c, err)
		return
	}

	promptRevIDs, err := s.orchestrator.PromptRevIDsForDocument(c.Request.Context(), organizationID, doc)
	if err != nil {
		fail(c, err)
		return
	}

	out, err := s.orchestrator.RunForPromptRevIDs(c.Request.Context(), organizationID, documentID, promptRevIDs, true, p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (s *Server) handleGetLLMResult(c *gin.Context) {
	organizationID, documentID := c.Param("org"), c.Param("id")
	promptRevID := c.Query("prompt_rev_id")
	if promptRevID == "" {
		fail(c, apperr.NewValidationError("prompt_rev_id", "required"))
		return
	}

	result, err := s.results.Latest(c.Request.Context(), organizationID, documentID, promptRevID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

type updateLLMResultRequest struct {
	UpdatedLLMResult *models.OrderedMap `json:"updated_llm_result" binding:"required"`
	Verified         *bool              `json:"is_verified"`
}

func (s *Server) handleUpdateLLMResult(c *gin.Context) {
	organizationID, documentID := c.Param("org"), c.Param("id")
	promptRevID := c.Query("prompt_rev_id")
	if promptRevID == "" {
		fail(c, apperr.NewValidationError("prompt_rev_id", "required"))
		return
	}

	var req updateLLMResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewValidationError("body", err.Error()))
		return
	}

	result, err := s.results.Update(c.Request.Context(), organizationID, documentID, promptRevID, req.UpdatedLLMResult, req.Verified)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handleDeleteLLMResult(c *gin.Context) {
	organizationID, documentID := c.Param("org"), c.Param("id")
	promptRevID := c.Query("prompt_rev_id")
	if promptRevID == "" {
		fail(c, apperr.NewValidationError("prompt_rev_id", "required"))
		return
	}

	if err := s.results.DeleteForPromptRev(c.Request.Context(), organizationID, documentID, promptRevID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDownloadAllResults returns the newest revision per prompt revision
// for a document (spec.md §6 "GET .../llm/results/{id}/download").
func (s *Server) handleDownloadAllResults(c *gin.Context) {
	organizationID, documentID := c.Param("org"), c.Param("id")

	out, err := s.results.AllForDocument(c.Request.Context(), organizationID, documentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
