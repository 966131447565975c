package llm

import (
	"encoding/json"
	"strings"
)

type completionChoice struct {
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Text string `json:"text"`
}

type completionBody struct {
	Choices       []completionChoice `json:"choices"`
	GeneratedText string             `json:"generated_text"`
	Text          string             `json:"text"`
}

// extractCompletion reads the completion text from either response family:
// chat style {choices:[{message:{content}}]}, completion style
// {generated_text} or {text}, or an array of such objects.
func extractCompletion(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var items []completionBody
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return ""
		}
		for _, item := range items {
			if text := item.text(); text != "" {
				return text
			}
		}
		return ""
	}
	var single completionBody
	if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
		return ""
	}
	return single.text()
}

func (b completionBody) text() string {
	if len(b.Choices) > 0 {
		choice := b.Choices[0]
		if text := contentText(choice.Message.Content); text != "" {
			return text
		}
		if text := strings.TrimSpace(choice.Text); text != "" {
			return text
		}
	}
	if text := strings.TrimSpace(b.GeneratedText); text != "" {
		return text
	}
	return strings.TrimSpace(b.Text)
}

// contentText accepts a plain string or a list of typed parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}
