package llm

import (
	"context"
	"strings"
	"time"
)

// Provider selects the wire protocol used to reach a model.
type Provider string

const (
	// ProviderOpenAI speaks the chat/completions protocol (OpenAI, OpenRouter and compatibles).
	ProviderOpenAI Provider = "openai"
	// ProviderHuggingFace speaks the text-generation inference protocol.
	ProviderHuggingFace Provider = "huggingface"
	// ProviderGemini goes through the Google genai SDK.
	ProviderGemini Provider = "gemini"
)

// DefaultTimeout bounds a model call when the endpoint leaves Timeout unset.
const DefaultTimeout = 60 * time.Second

// ParseProvider maps a configuration value onto a Provider.
func ParseProvider(value string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "openai", "openrouter", "chat":
		return ProviderOpenAI, true
	case "huggingface", "hf", "textgen":
		return ProviderHuggingFace, true
	case "gemini", "google":
		return ProviderGemini, true
	}
	return "", false
}

// Endpoint is the per-stage model configuration handed to the invoker on every
// call.
type Endpoint struct {
	Provider    Provider
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Headers     map[string]string
}

func (e Endpoint) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

// Image is a reference to a picture the model should look at.
type Image struct {
	URL         string
	ContentType string
}

// Request is a rendered prompt.
type Request struct {
	Stage  string
	System string
	User   string
	Images []Image
}

// Invoker performs exactly one model call and returns the raw completion text.
// Errors are *domain.Failure values of kind network or upstream.
type Invoker interface {
	Invoke(ctx context.Context, ep Endpoint, req Request) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, ep Endpoint, req Request) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, ep Endpoint, req Request) (string, error) {
	return f(ctx, ep, req)
}
