package apiserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// handleTokenOrganization resolves an access token's organization (spec.md
// §6 "GET /v0/account/token/organization?token=...: Resolve token → org id
// or null").
func (s *Server) handleTokenOrganization(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		fail(c, apperr.NewValidationError("token", "required"))
		return
	}

	resolved, err := s.tokens.Lookup(c.Request.Context(), token)
	if errors.Is(err, apperr.ErrUnauthorized) {
		c.JSON(http.StatusOK, gin.H{"organization_id": nil})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization_id": resolved.OrganizationID})
}
