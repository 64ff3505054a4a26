package apiserver

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/accesscontrol"
)

const principalKey = "principal"

// authMiddleware resolves the bearer token on every request, infers the
// request's account-vs-organization context from the URL path, and checks
// the principal is authorized for it (spec.md §4.N, §6).
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		p, err := s.resolver.Resolve(c.Request.Context(), bearer)
		if err != nil {
			fail(c, err)
			return
		}

		reqCtx, pathOrgID := accesscontrol.InferContext(c.Request.URL.Path)
		if reqCtx == accesscontrol.ContextOrganization {
			pathOrgID = c.Param("org")
		}
		if err := s.resolver.Authorize(c.Request.Context(), p, reqCtx, pathOrgID); err != nil {
			fail(c, err)
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func principalFrom(c *gin.Context) *accesscontrol.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*accesscontrol.Principal)
	return p
}
