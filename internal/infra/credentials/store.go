package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/classafix/caf-copilot/internal/infra"
	"github.com/classafix/caf-copilot/internal/sqlinline"
)

// Provider names as stored in integration_tokens.provider.
const (
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
)

const cacheTTL = 5 * time.Minute

type Store struct {
	sql   infra.SQLExecutor
	cache *expirable.LRU[string, string]
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{
		sql:   sql,
		cache: expirable.NewLRU[string, string](16, nil, cacheTTL),
	}
}

// Token returns the stored token for provider, or "" when none is saved.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	provider = normalize(provider)
	if tok, ok := s.cache.Get(provider); ok {
		return tok, nil
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	token = strings.TrimSpace(token)
	s.cache.Add(provider, token)
	return token, nil
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	provider = normalize(provider)
	if !Known(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s token is required", provider)
	}
	if err := s.upsert(ctx, provider, token, map[string]any{"source": "cli"}); err != nil {
		return err
	}
	s.cache.Add(provider, token)
	return nil
}

func Known(provider string) bool {
	switch normalize(provider) {
	case ProviderOpenAI, ProviderHuggingFace, ProviderGemini:
		return true
	}
	return false
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
