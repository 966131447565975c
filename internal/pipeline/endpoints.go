package pipeline

import (
	"context"
	"fmt"

	"github.com/classafix/caf-copilot/internal/infra"
	"github.com/classafix/caf-copilot/internal/providers/llm"
)

// KeySource looks up a stored provider token. An empty token means none is saved.
type KeySource interface {
	Token(ctx context.Context, provider string) (string, error)
}

// ResolveEndpoints builds the stage endpoints from configuration. A stage key
// wins over the process-wide provider key, which wins over a stored token.
func ResolveEndpoints(ctx context.Context, cfg *infra.Config, keys KeySource) (Endpoints, error) {
	var (
		out Endpoints
		err error
	)
	stages := []struct {
		dst  *llm.Endpoint
		name string
		cfg  infra.StageConfig
	}{
		{&out.Triage, "triage", cfg.Stages.Triage},
		{&out.Vision, "vision", cfg.Stages.Vision},
		{&out.Diagnosis, "diagnosis", cfg.Stages.Diagnosis},
		{&out.Pricing, "pricing", cfg.Stages.Pricing},
		{&out.Quote, "quote", cfg.Stages.Quote},
	}
	for _, st := range stages {
		if *st.dst, err = resolveEndpoint(ctx, cfg, st.cfg, keys); err != nil {
			return Endpoints{}, fmt.Errorf("%s endpoint: %w", st.name, err)
		}
	}
	return out, nil
}

func resolveEndpoint(ctx context.Context, cfg *infra.Config, sc infra.StageConfig, keys KeySource) (llm.Endpoint, error) {
	provider, ok := llm.ParseProvider(sc.Provider)
	if !ok {
		return llm.Endpoint{}, fmt.Errorf("unsupported provider %q", sc.Provider)
	}
	key := sc.APIKey
	if key == "" {
		key = cfg.ProviderKey(string(provider))
	}
	if key == "" && keys != nil {
		tok, err := keys.Token(ctx, string(provider))
		if err != nil {
			return llm.Endpoint{}, fmt.Errorf("load %s token: %w", provider, err)
		}
		key = tok
	}
	ep := llm.Endpoint{
		Provider:    provider,
		URL:         sc.Endpoint,
		APIKey:      key,
		Model:       sc.Model,
		Temperature: sc.Temperature,
		MaxTokens:   sc.MaxTokens,
		Timeout:     sc.Timeout,
	}
	if provider == llm.ProviderOpenAI {
		ep.Headers = map[string]string{"X-Title": "CAF Copilot"}
	}
	return ep, nil
}
