package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

type textGenRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters textGenSettings `json:"parameters"`
}

type textGenSettings struct {
	Temperature    float64 `json:"temperature,omitempty"`
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

func (c *Client) textGeneration(ctx context.Context, ep Endpoint, req Request) (string, error) {
	url := strings.TrimSpace(ep.URL)
	if url == "" {
		return "", domain.NewValidationFailure("text generation endpoint url is required")
	}
	inputs := req.User
	if strings.TrimSpace(req.System) != "" {
		inputs = req.System + "\n\n" + req.User
	}
	payload := textGenRequest{
		Inputs: inputs,
		Parameters: textGenSettings{
			Temperature:  ep.Temperature,
			MaxNewTokens: ep.MaxTokens,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
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
