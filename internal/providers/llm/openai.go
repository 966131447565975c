package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

const DefaultChatURL = "https://openrouter.ai/api/v1/chat/completions"

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

func buildChatRequest(ep Endpoint, req Request) chatRequest {
	payload := chatRequest{
		Model:       ep.Model,
		Temperature: ep.Temperature,
		MaxTokens:   ep.MaxTokens,
	}
	if strings.TrimSpace(req.System) != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	if len(req.Images) == 0 {
		payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.User})
		return payload
	}
	parts := []chatPart{{Type: "text", Text: req.User}}
	for _, img := range req.Images {
		parts = append(parts, chatPart{Type: "image_url", ImageURL: &chatImageURL{URL: img.URL}})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: parts})
	return payload
}

func (c *Client) chat(ctx context.Context, ep Endpoint, req Request) (string, error) {
	url := strings.TrimSpace(ep.URL)
	if url == "" {
		url = DefaultChatURL
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildChatRequest(ep, req)); err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	setHeaders(httpReq, ep)
	body, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	text := extractCompletion(body)
	if text == "" {
		return "", domain.NewEmptyCompletionFailure(truncate(string(body), maxErrorBody))
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
