// Package llmprovider implements the LLM Provider Registry (spec.md §4.E):
// seeding a canonical provider list, reconciling each provider's enabled
// models against an allow-list intersected with what it advertises, and
// token seeding from the environment. The in-memory registry shape is
// grounded directly on the teacher's pkg/config/llm.go LLMProviderRegistry
// (map + RWMutex + Get/GetAll/Has/Len), backed here by a Mongo collection
// for persistence of the encrypted token and enabled-model set.
package llmprovider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// Canonical is one entry in the canonical provider list seeded at startup
// (spec.md §4.E).
type Canonical struct {
	Name            string
	DisplayName     string
	LiteLLMProvider string
	DefaultModel    string
	ModelAllowList  []string
	// EnvTokenVar names the environment variable holding the provider's API
	// token, for seeding (spec.md §4.E: "if stored token is empty and the
	// environment supplies one, adopt it").
	EnvTokenVar string
	// ChatModelDenyList lists models that advertise chat capability but are
	// known false positives (spec.md §4.E is_chat_model deny-list).
	ChatModelDenyList []string
	// SupportsStructuredOutput reports whether the provider family accepts a
	// JSON-schema-shaped response_format (spec.md §4.E capability check;
	// §4.G step 7 consults this before binding a schema's response_format).
	SupportsStructuredOutput bool
}

// Registry is the thread-safe, Mongo-backed LLM Provider Registry.
type Registry struct {
	mu      sync.RWMutex
	coll    *mongo.Collection
	cipher  *crypto.Cipher
	byName  map[string]*models.LLMProvider
}

// New builds a Registry over coll, using cipher to seal/unseal provider tokens.
func New(coll *mongo.Collection, cipher *crypto.Cipher) *Registry {
	return &Registry{coll: coll, cipher: cipher, byName: make(map[string]*models.LLMProvider)}
}

// envLookup abstracts os.LookupEnv for testability.
type envLookup func(key string) (string, bool)

// Seed reconciles the registry against the canonical list: advertised is the
// set of models each canonical provider currently offers (from a live
// models-list call, or a static table for providers that don't expose one).
// Providers not present in canonical are removed (spec.md §4.E).
func (r *Registry) Seed(ctx context.Context, canonical []Canonical, advertised map[string][]string, lookupEnv envLookup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wantNames := make(map[string]bool, len(canonical))
	for _, c := range canonical {
		wantNames[c.Name] = true

		existing, err := r.fetchLocked(ctx, c.Name)
		if err != nil && err != apperr.ErrNotFound {
			return err
		}
		if existing == nil {
			existing = &models.LLMProvider{
				Name:            c.Name,
				DisplayName:     c.DisplayName,
				LiteLLMProvider: c.LiteLLMProvider,
				Enabled:         true,
			}
		}

		existing.ModelsAvailable = advertised[c.Name]
		existing.ModelsEnabled = intersect(c.ModelAllowList, advertised[c.Name])

		hasDefault := false
		for _, m := range existing.ModelsEnabled {
			if m == c.DefaultModel {
				hasDefault = true
				break
			}
		}
		if !hasDefault {
			replacement := c.DefaultModel
			if len(existing.ModelsEnabled) > 0 {
				replacement = existing.ModelsEnabled[0]
			}
			existing.ModelsEnabled = appendUnique(existing.ModelsEnabled, replacement)
		}

		if !existing.HasToken && c.EnvTokenVar != "" && lookupEnv != nil {
			if token, ok := lookupEnv(c.EnvTokenVar); ok && token != "" {
				enc, err := r.cipher.Encrypt(token)
				if err != nil {
					return fmt.Errorf("encrypting seeded token for %s: %w", c.Name, err)
				}
				existing.EncryptedToken = enc
				existing.HasToken = true
				now := time.Now().UTC()
				existing.TokenCreatedAt = &now
			}
		}

		if err := r.upsertLocked(ctx, existing); err != nil {
			return err
		}
		r.byName[c.Name] = existing
	}

	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": keys(wantNames)}}); err != nil {
		return err
	}
	for name := range r.byName {
		if !wantNames[name] {
			delete(r.byName, name)
		}
	}
	return nil
}

// Get returns the named provider.
func (r *Registry) Get(ctx context.Context, name string) (*models.LLMProvider, error) {
	r.mu.RLock()
	if p, ok := r.byName[name]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchLocked(ctx, name)
}

// ForModel returns the enabled provider that serves model, or ErrNotFound if
// none does (spec.md §4.G step 3: resolving a chosen model name to the
// provider that will actually be called).
func (r *Registry) ForModel(model string) (*models.LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byName {
		if p.IsSupportedModel(model) {
			return p, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// GetAll returns all known providers.
func (r *Registry) GetAll() []*models.LLMProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.LLMProvider, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	return out
}

// Token decrypts and returns the provider's stored token.
func (r *Registry) Token(provider *models.LLMProvider) (string, error) {
	if !provider.HasToken {
		return "", apperr.ErrNotFound
	}
	return r.cipher.Decrypt(provider.EncryptedToken)
}

func (r *Registry) fetchLocked(ctx context.Context, name string) (*models.LLMProvider, error) {
	var p models.LLMProvider
	err := r.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Registry) upsertLocked(ctx context.Context, p *models.LLMProvider) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.Name}, p, options.Replace().SetUpsert(true))
	return err
}

func intersect(allow, advertised []string) []string {
	advertisedSet := make(map[string]bool, len(advertised))
	for _, m := range advertised {
		advertisedSet[m] = true
	}
	var out []string
	for _, m := range allow {
		if advertisedSet[m] {
			out = append(out, m)
		}
	}
	return out
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
