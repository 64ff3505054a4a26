// Package apiserver is the HTTP surface (spec.md §6) binding every storage-
// backed component behind gin route groups, the way pkg/api/handlers.go
// bound session/llm state for the upstream alert server.
package apiserver

import (
	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/accesscontrol"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/credit"
	"github.com/analytiqhub/docrouter/pkg/intake"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/orchestrator"
	"github.com/analytiqhub/docrouter/pkg/prompt"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/results"
	"github.com/analytiqhub/docrouter/pkg/tagorg"
)

// Server wires the full set of components behind the gin router.
type Server struct {
	router *gin.Engine

	resolver *accesscontrol.Resolver
	tokens   *accesscontrol.Tokens
	orgs     *tagorg.Organizations
	tags     *tagorg.Tags

	docs    *registry.Registry
	files   *blob.Registry
	ocrDocs *ocr.Store
	intake  *intake.Intake

	prompts      *prompt.Store
	orchestrator *orchestrator.Orchestrator
	results      *results.Store
	credit       *credit.Gate
}

// New builds a Server with every route group registered.
func New(
	resolver *accesscontrol.Resolver,
	tokens *accesscontrol.Tokens,
	orgs *tagorg.Organizations,
	tags *tagorg.Tags,
	docs *registry.Registry,
	files *blob.Registry,
	ocrDocs *ocr.Store,
	in *intake.Intake,
	prompts *prompt.Store,
	orch *orchestrator.Orchestrator,
	res *results.Store,
	gate *credit.Gate,
) *Server {
	s := &Server{
		router:       gin.Default(),
		resolver:     resolver,
		tokens:       tokens,
		orgs:         orgs,
		tags:         tags,
		docs:         docs,
		files:        files,
		ocrDocs:      ocrDocs,
		intake:       in,
		prompts:      prompts,
		orchestrator: orch,
		results:      res,
		credit:       gate,
	}
	s.routes()
	return s
}

// Router exposes the underlying gin engine (for ListenAndServe or tests).
func (s *Server) Router() *gin.Engine { return s.router }
