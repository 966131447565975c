package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/classafix/caf-copilot/internal/domain"
)

const maxImageBytes = 20 << 20

func (c *Client) gemini(ctx context.Context, ep Endpoint, req Request) (string, error) {
	if strings.TrimSpace(ep.APIKey) == "" {
		return "", domain.NewValidationFailure("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     ep.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.http,
	}
	if base := strings.TrimSpace(ep.URL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.User)}
	for _, img := range req.Images {
		data, mime, err := c.fetchImage(ctx, img)
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.NewPartFromBytes(data, mime))
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(ep.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if ep.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(ep.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := cli.Models.GenerateContent(ctx, ep.Model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, genCfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", domain.NewUpstreamFailure(apiErr.Code, apiErr.Message)
		}
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.NewEmptyCompletionFailure("")
	}
	return text, nil
}

// fetchImage downloads a referenced image so it can be sent inline.
func (c *Client) fetchImage(ctx context.Context, img Image) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", domain.NewUpstreamFailure(resp.StatusCode, "image fetch failed: "+img.URL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	mime := strings.TrimSpace(img.ContentType)
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
