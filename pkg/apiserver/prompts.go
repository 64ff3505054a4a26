package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

type createPromptRequest struct {
	PromptID    string   `json:"prompt_id" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Model       string   `json:"model" binding:"required"`
	TagIDs      []string `json:"tag_ids"`
	SchemaRevID string   `json:"schema_rev_id"`
}

// handleCreatePrompt mints a new prompt revision (spec.md §6
// "POST .../prompts"; §4.F two-tier versioning: a new call always creates
// the next revision, never overwrites one).
func (s *Server) handleCreatePrompt(c *gin.Context) {
	organizationID := c.Param("org")
	p := principalFrom(c)

	var req createPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewValidationError("body", err.Error()))
		return
	}

	rev, err := s.prompts.CreatePromptRevision(c.Request.Context(), organizationID, req.PromptID, req.Name, req.Content, req.Model, req.TagIDs, req.SchemaRevID, p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prompt": rev})
}

// handleListPrompts lists the latest revision of every prompt matching the
// document tag set a caller passes (spec.md §4.J: "default prompt plus every
// prompt whose tag set intersects the document's").
func (s *Server) handleListPrompts(c *gin.Context) {
	organizationID := c.Param("org")
	revs, err := s.prompts.ListMatchingLatest(c.Request.Context(), organizationID, c.QueryArray("tag_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompts": revs})
}

type createSchemaRequest struct {
	SchemaID      string         `json:"schema_id" binding:"required"`
	Name          string         `json:"name" binding:"required"`
	Schema        map[string]any `json:"schema" binding:"required"`
	PropertyOrder []string       `json:"property_order"`
	Strict        bool           `json:"strict"`
}

// handleCreateSchema mints a new schema revision (spec.md §6
// "POST .../schemas"; §4.F two-tier versioning, mirroring prompts).
func (s *Server) handleCreateSchema(c *gin.Context) {
	organizationID := c.Param("org")
	p := principalFrom(c)

	var req createSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.NewValidationError("body", err.Error()))
		return
	}

	rev, err := s.prompts.CreateSchemaRevision(c.Request.Context(), organizationID, req.SchemaID, req.Name, req.Schema, req.PropertyOrder, req.Strict, p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schema": rev})
}

func (s *Server) handleGetSchema(c *gin.Context) {
	organizationID, schemaID := c.Param("org"), c.Param("id")
	rev, err := s.prompts.LatestSchemaRevision(c.Request.Context(), organizationID, schemaID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schema": rev})
}
