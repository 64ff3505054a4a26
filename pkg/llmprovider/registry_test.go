package llmprovider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/llmprovider"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

func canonicalList() []llmprovider.Canonical {
	return []llmprovider.Canonical{
		{
			Name:            "openai",
			DisplayName:     "OpenAI",
			LiteLLMProvider: "openai",
			DefaultModel:    "gpt-4o",
			ModelAllowList:  []string{"gpt-4o", "gpt-4o-mini", "o1-preview"},
			EnvTokenVar:     "OPENAI_API_KEY",
		},
	}
}

func TestSeedIntersectsAllowListWithAdvertised(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := llmprovider.New(client.Collection("llm_providers"), crypto.New("secret"))

	advertised := map[string][]string{"openai": {"gpt-4o", "gpt-3.5-turbo"}}
	err := reg.Seed(ctx, canonicalList(), advertised, nil)
	require.NoError(t, err)

	p, err := reg.Get(ctx, "openai")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gpt-4o"}, p.ModelsEnabled, "gpt-3.5-turbo isn't on the allow list, o1-preview isn't advertised")
}

func TestSeedForcesDefaultModelIntoEnabledSet(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := llmprovider.New(client.Collection("llm_providers"), crypto.New("secret"))

	advertised := map[string][]string{"openai": {"gpt-4o-mini"}} // default "gpt-4o" missing
	err := reg.Seed(ctx, canonicalList(), advertised, nil)
	require.NoError(t, err)

	p, err := reg.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Contains(t, p.ModelsEnabled, "gpt-4o", "missing default model must be forcibly added")
}

func TestSeedAdoptsTokenFromEnvironment(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := llmprovider.New(client.Collection("llm_providers"), crypto.New("secret"))

	lookupEnv := func(key string) (string, bool) {
		if key == "OPENAI_API_KEY" {
			return "sk-test-token", true
		}
		return "", false
	}
	err := reg.Seed(ctx, canonicalList(), map[string][]string{"openai": {"gpt-4o"}}, lookupEnv)
	require.NoError(t, err)

	p, err := reg.Get(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, p.HasToken)
	assert.NotNil(t, p.TokenCreatedAt)

	token, err := reg.Token(p)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-token", token)
}

func TestForModelFindsEnabledProvider(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := llmprovider.New(client.Collection("llm_providers"), crypto.New("secret"))
	require.NoError(t, reg.Seed(ctx, canonicalList(), map[string][]string{"openai": {"gpt-4o", "gpt-4o-mini"}}, nil))

	p, err := reg.ForModel("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name)

	_, err = reg.ForModel("no-such-model")
	assert.Error(t, err)
}

func TestSeedRemovesProvidersNotInCanonicalList(t *testing.T) {
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	reg := llmprovider.New(client.Collection("llm_providers"), crypto.New("secret"))

	stale := []llmprovider.Canonical{{Name: "stale-provider", DefaultModel: "m"}}
	require.NoError(t, reg.Seed(ctx, stale, map[string][]string{"stale-provider": {"m"}}, nil))

	require.NoError(t, reg.Seed(ctx, canonicalList(), map[string][]string{"openai": {"gpt-4o"}}, nil))

	_, err := reg.Get(ctx, "stale-provider")
	assert.Error(t, err)
}
