// Package jsonrepair pulls a JSON object out of free-form language model text.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

var (
	fenceMarker   = regexp.MustCompile("(?i)```[a-z0-9_-]*")
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	smartQuotes   = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "‟", `"`)

	errNoObject = errors.New("no json object found")
)

// Recover returns the JSON value contained in text. Failures are
// *domain.Failure of kind malformed_model_output carrying the original and
// the cleaned text.
func Recover(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	cleaned := stripFences(trimmed)
	span, ok := objectSpan(cleaned)
	if !ok {
		return nil, domain.NewMalformedOutputFailure(text, cleaned, errNoObject)
	}
	if json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	normalized := normalize(span)
	if json.Valid([]byte(normalized)) {
		return json.RawMessage(normalized), nil
	}
	var syntaxErr error
	var probe any
	if err := json.Unmarshal([]byte(normalized), &probe); err != nil {
		syntaxErr = err
	}
	return nil, domain.NewMalformedOutputFailure(text, normalized, syntaxErr)
}

// RecoverObject is Recover followed by decoding into a generic object. A JSON
// value that is not an object is reported as malformed output.
func RecoverObject(text string) (map[string]any, json.RawMessage, error) {
	raw, err := Recover(text)
	if err != nil {
		return nil, nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, nil, domain.NewMalformedOutputFailure(text, string(raw), errNoObject)
	}
	return obj, raw, nil
}

func stripFences(text string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(text, ""))
}

func objectSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// normalize applies the lossy textual repairs. Single quotes are only
// rewritten when the text has no double quotes at all, so apostrophes inside
// well-formed strings survive.
func normalize(text string) string {
	out := trailingComma.ReplaceAllString(text, "$1")
	out = smartQuotes.Replace(out)
	if !strings.Contains(out, `"`) {
		out = strings.ReplaceAll(out, "'", `"`)
		out = trailingComma.ReplaceAllString(out, "$1")
	}
	return out
}
