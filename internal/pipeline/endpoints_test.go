package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classafix/caf-copilot/internal/infra"
	"github.com/classafix/caf-copilot/internal/providers/llm"
)

type mapKeys map[string]string

func (m mapKeys) Token(ctx context.Context, provider string) (string, error) {
	return m[provider], nil
}

type failingKeys struct{}

func (failingKeys) Token(ctx context.Context, provider string) (string, error) {
	return "", errors.New("db down")
}

func testConfig() *infra.Config {
	stage := infra.StageConfig{
		Provider:    "openai",
		Endpoint:    "https://openrouter.ai/api/v1/chat/completions",
		Model:       "m",
		Temperature: 0.2,
		MaxTokens:   800,
		Timeout:     30 * time.Second,
	}
	return &infra.Config{
		Stages: infra.StageConfigs{Triage: stage, Vision: stage, Diagnosis: stage, Pricing: stage, Quote: stage},
	}
}

func TestResolveEndpointsKeyPrecedence(t *testing.T) {
	cfg := testConfig()
	cfg.OpenRouterAPIKey = "env-key"
	cfg.Stages.Triage.APIKey = "stage-key"
	cfg.Stages.Vision.Provider = "gemini"

	eps, err := ResolveEndpoints(context.Background(), cfg, mapKeys{"gemini": "stored-gemini"})
	require.NoError(t, err)

	assert.Equal(t, "stage-key", eps.Triage.APIKey)
	assert.Equal(t, "env-key", eps.Diagnosis.APIKey)
	assert.Equal(t, llm.ProviderGemini, eps.Vision.Provider)
	assert.Equal(t, "stored-gemini", eps.Vision.APIKey)
	assert.Nil(t, eps.Vision.Headers)
	assert.Equal(t, "CAF Copilot", eps.Pricing.Headers["X-Title"])
	assert.Equal(t, 30*time.Second, eps.Quote.Timeout)
	assert.Equal(t, 800, eps.Quote.MaxTokens)
}

func TestResolveEndpointsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Stages.Pricing.Provider = "anthropic"
	_, err := ResolveEndpoints(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing endpoint")
}

func TestResolveEndpointsKeySourceError(t *testing.T) {
	_, err := ResolveEndpoints(context.Background(), testConfig(), failingKeys{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
