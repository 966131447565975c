package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/classafix/caf-copilot/internal/domain"
)

const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	Observer   Observer
}

// Client is the production Invoker. It holds no per-stage configuration; the
// endpoint arrives with every call.
type Client struct {
	http     *http.Client
	observer Observer
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	observer := opts.Observer
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Client{http: client, observer: observer}
}

// Invoke performs one call under the endpoint timeout. There is no retry.
func (c *Client) Invoke(ctx context.Context, ep Endpoint, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ep.timeout())
	defer cancel()

	start := time.Now()
	var (
		text string
		err  error
	)
	switch ep.Provider {
	case ProviderOpenAI, "":
		text, err = c.chat(ctx, ep, req)
	case ProviderHuggingFace:
		text, err = c.textGeneration(ctx, ep, req)
	case ProviderGemini:
		text, err = c.gemini(ctx, ep, req)
	default:
		err = domain.NewValidationFailure("unsupported provider %q", ep.Provider)
	}
	if err != nil {
		err = classify(ctx, err)
	}

	event := CallEvent{
		Stage:     req.Stage,
		Provider:  ep.Provider,
		Model:     ep.Model,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if f, ok := domain.AsFailure(err); ok {
		event.FailureKind = string(f.Kind)
		event.StatusCode = f.StatusCode
	}
	c.observer.OnCallComplete(event)

	if err != nil {
		return "", err
	}
	return text, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewTimeoutFailure(err)
	}
	if _, ok := domain.AsFailure(err); ok {
		return err
	}
	return domain.NewNetworkFailure(err)
}

func (c *Client) do(httpReq *http.Request) ([]byte, error) {
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewUpstreamFailure(resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

func setHeaders(httpReq *http.Request, ep Endpoint) {
	httpReq.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(ep.APIKey); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}
	for k, v := range ep.Headers {
		httpReq.Header.Set(k, v)
	}
}
