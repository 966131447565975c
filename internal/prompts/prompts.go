// Package prompts renders the instruction templates sent to each model stage.
// Builders are pure: the same inputs always produce the same prompt.
package prompts

import (
	"strconv"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

const (
	StageTriage    = "triage"
	StageVision    = "vision"
	StageDiagnosis = "diagnosis"
	StagePricing   = "pricing"
	StageQuote     = "quote_analysis"
)

// UnknownAnswer replaces checklist answers that are missing or marked as unknown.
const UnknownAnswer = "Unknown / not provided"

// DontKnowMarker is the answer value the dispatcher UI records for "I don't know".
const DontKnowMarker = "I_DONT_KNOW"

// Params are the output limits a stage was tuned with. A configured
// endpoint limit overrides them. Temperature always comes from the endpoint.
type Params struct {
	MaxTokens int
}

// Prompt is a rendered model request.
type Prompt struct {
	Stage  string
	System string
	User   string
	Images []domain.Media
	Params Params
}

// IsUnanswered reports whether a checklist answer carries no information.
func IsUnanswered(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	return trimmed == "" || trimmed == DontKnowMarker
}

// NormalizeAnswer maps unanswered values to UnknownAnswer.
func NormalizeAnswer(answer string) string {
	if IsUnanswered(answer) {
		return UnknownAnswer
	}
	return strings.TrimSpace(answer)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
