package apiserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/accesscontrol"
	"github.com/analytiqhub/docrouter/pkg/apiserver"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/credit"
	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/intake"
	"github.com/analytiqhub/docrouter/pkg/llmprovider"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/mongostore"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/orchestrator"
	"github.com/analytiqhub/docrouter/pkg/prompt"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/results"
	"github.com/analytiqhub/docrouter/pkg/tagorg"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

// newTestServer wires a Server the way cmd/docrouter/main.go does, minus the
// worker pools and OCR/LLM vendor clients a handler-level test never drives.
func newTestServer(t *testing.T) (*apiserver.Server, *accesscontrol.SessionIssuer, *accesscontrol.Tokens, *tagorg.Organizations) {
	t.Helper()
	client := mongotest.NewTestClient(t)
	cipher := crypto.New("test-secret")

	filesReg := blob.NewRegistry(client.DB())
	ocrReg := blob.NewRegistry(client.DB())
	ocrBucket, err := ocrReg.Bucket(blob.BucketOCR)
	require.NoError(t, err)
	ocrArtifacts := ocr.NewStore(ocrBucket)

	docs := registry.New(client.Collection(mongostore.CollDocs), filesReg, ocrReg, client.Collection(mongostore.CollLLMRuns))
	tags := tagorg.NewTags(client.Collection(mongostore.CollTags), client.Collection(mongostore.CollDocs), client.Collection(mongostore.CollPromptRevisions))
	orgs := tagorg.NewOrganizations(client.Collection(mongostore.CollOrganizations))
	promptStore := prompt.New(client.Collection(mongostore.CollPromptRevisions), client.Collection(mongostore.CollSchemaRevisions))
	resultStore := results.New(client.Collection(mongostore.CollLLMRuns))

	providers := llmprovider.New(client.Collection(mongostore.CollLLMProviders), cipher)
	caps := llmprovider.NewCapabilities(llmprovider.DefaultCanonical, nil)
	creditGate := credit.New(nil, nil)
	orch := orchestrator.New(docs, promptStore, resultStore, providers, caps, ocrArtifacts, creditGate, nil, nil)

	filesBucket, err := filesReg.Bucket(blob.BucketFiles)
	require.NoError(t, err)
	in := intake.New(docs, filesBucket, tags, nil, intake.NewLibreOfficeConverter("libreoffice"), "")

	sessions := accesscontrol.NewSessionIssuer("test-secret", time.Hour)
	tokens := accesscontrol.NewTokens(client.Collection(mongostore.CollAccessTokens), cipher)
	users := accesscontrol.NewUsers(client.Collection(mongostore.CollUsers))
	resolver := accesscontrol.NewResolver(sessions, tokens, users, orgs)

	srv := apiserver.New(resolver, tokens, orgs, tags, docs, filesReg, ocrArtifacts, in, promptStore, orch, resultStore, creditGate)
	return srv, sessions, tokens, orgs
}

func TestHealthEndpointReportsOK(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestListDocumentsRejectsMissingBearer(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v0/orgs/org1/documents", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListDocumentsRejectsAccountScopedToken(t *testing.T) {
	// spec.md §8 scenario 6: an account-level access token must not grant
	// access to an organization path.
	srv, _, tokens, _ := newTestServer(t)
	ctx := context.Background()

	plaintext, _, err := tokens.Create(ctx, "user1", "", "account token", nil)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/v0/orgs/org1/documents", nil)
	r.Header.Set("Authorization", "Bearer "+plaintext)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListDocumentsSucceedsForOrgMemberSession(t *testing.T) {
	srv, sessions, _, orgs := newTestServer(t)
	ctx := context.Background()

	org, err := orgs.Create(ctx, "Acme", []models.Member{{UserID: "member1", Role: models.RoleMember}})
	require.NoError(t, err)

	token, err := sessions.Issue("member1", false)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/v0/orgs/"+org.ID+"/documents", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestListDocumentsRejectsNonMemberSession(t *testing.T) {
	srv, sessions, _, orgs := newTestServer(t)
	ctx := context.Background()

	org, err := orgs.Create(ctx, "Acme", []models.Member{{UserID: "member1", Role: models.RoleMember}})
	require.NoError(t, err)

	token, err := sessions.Issue("stranger", false)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/v0/orgs/"+org.ID+"/documents", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
