// Package pipeline runs the model-backed stages: each stage renders its
// prompt, calls the configured model once, recovers JSON from the reply and
// validates it into a typed result.
package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/jsonrepair"
	"github.com/classafix/caf-copilot/internal/prompts"
	"github.com/classafix/caf-copilot/internal/providers/llm"
)

// Endpoints holds the model configuration of every stage.
type Endpoints struct {
	Triage    llm.Endpoint
	Vision    llm.Endpoint
	Diagnosis llm.Endpoint
	Pricing   llm.Endpoint
	Quote     llm.Endpoint
}

// Executor runs pipeline stages. It never touches persisted state.
type Executor struct {
	invoker   llm.Invoker
	endpoints Endpoints
	logger    zerolog.Logger
}

func NewExecutor(invoker llm.Invoker, endpoints Endpoints, logger zerolog.Logger) *Executor {
	return &Executor{invoker: invoker, endpoints: endpoints, logger: logger}
}

// Endpoint returns the configuration used for a stage.
func (e *Executor) Endpoint(stage string) llm.Endpoint {
	switch stage {
	case prompts.StageTriage:
		return e.endpoints.Triage
	case prompts.StageVision:
		return e.endpoints.Vision
	case prompts.StageDiagnosis:
		return e.endpoints.Diagnosis
	case prompts.StagePricing:
		return e.endpoints.Pricing
	case prompts.StageQuote:
		return e.endpoints.Quote
	}
	return llm.Endpoint{}
}

// Triage classifies a job description.
func (e *Executor) Triage(ctx context.Context, description string) (*domain.TriageResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, stageFailure(prompts.StageTriage, domain.NewValidationFailure("description is required"))
	}
	obj, raw, err := e.run(ctx, prompts.Triage(description))
	if err != nil {
		return nil, err
	}
	result, err := decodeTriage(obj, raw)
	if err != nil {
		return nil, stageFailure(prompts.StageTriage, err)
	}
	return result, nil
}

// Vision describes the image media. Non-image media are ignored.
func (e *Executor) Vision(ctx context.Context, contextText string, media []domain.Media) (*domain.VisionRecon, error) {
	if strings.TrimSpace(contextText) == "" {
		return nil, stageFailure(prompts.StageVision, domain.NewValidationFailure("vision context is required"))
	}
	p := prompts.Vision(contextText, media)
	if len(p.Images) == 0 {
		return nil, stageFailure(prompts.StageVision, domain.NewValidationFailure("at least one image is required"))
	}
	obj, raw, err := e.run(ctx, p)
	if err != nil {
		return nil, err
	}
	result, err := decodeVision(obj, raw)
	if err != nil {
		return nil, stageFailure(prompts.StageVision, err)
	}
	return result, nil
}

// Diagnosis proposes ranked root causes.
func (e *Executor) Diagnosis(ctx context.Context, in prompts.DiagnosisInput) (*domain.DiagnosisSet, error) {
	switch {
	case strings.TrimSpace(in.Description) == "":
		return nil, stageFailure(prompts.StageDiagnosis, domain.NewValidationFailure("description is required"))
	case in.Triage == nil:
		return nil, stageFailure(prompts.StageDiagnosis, domain.NewValidationFailure("triage must run before final diagnosis"))
	case strings.TrimSpace(in.VisionRaw) == "":
		return nil, stageFailure(prompts.StageDiagnosis, domain.NewValidationFailure("vision recon JSON is required"))
	}
	obj, raw, err := e.run(ctx, prompts.Diagnosis(in))
	if err != nil {
		return nil, err
	}
	result, err := decodeDiagnoses(obj, raw)
	if err != nil {
		return nil, stageFailure(prompts.StageDiagnosis, err)
	}
	return result, nil
}

// Pricing prices one selected diagnosis.
func (e *Executor) Pricing(ctx context.Context, in prompts.PricingInput) (*domain.PricingRecommendation, error) {
	if strings.TrimSpace(in.Diagnosis.Title) == "" && strings.TrimSpace(in.Diagnosis.Description) == "" {
		return nil, stageFailure(prompts.StagePricing, domain.NewValidationFailure("a diagnosis must be selected for pricing"))
	}
	obj, _, err := e.run(ctx, prompts.Pricing(in))
	if err != nil {
		return nil, err
	}
	result, err := decodePricing(obj)
	if err != nil {
		return nil, stageFailure(prompts.StagePricing, err)
	}
	result.DiagnosisTitle = in.Diagnosis.Title
	return result, nil
}

// QuoteAnalysis benchmarks a job or subcontractor quote against the market.
func (e *Executor) QuoteAnalysis(ctx context.Context, input string) (*domain.QuoteAnalysis, error) {
	if strings.TrimSpace(input) == "" {
		return nil, stageFailure(prompts.StageQuote, domain.NewValidationFailure("quote input is required"))
	}
	obj, raw, err := e.run(ctx, prompts.Quote(input))
	if err != nil {
		return nil, err
	}
	result, err := decodeQuote(obj, raw)
	if err != nil {
		return nil, stageFailure(prompts.StageQuote, err)
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, p prompts.Prompt) (map[string]any, json.RawMessage, error) {
	ep := withParams(e.Endpoint(p.Stage), p.Params)
	req := llm.Request{Stage: p.Stage, System: p.System, User: p.User}
	for _, m := range p.Images {
		req.Images = append(req.Images, llm.Image{URL: m.URL, ContentType: m.ContentType})
	}
	text, err := e.invoker.Invoke(ctx, ep, req)
	if err != nil {
		return nil, nil, stageFailure(p.Stage, err)
	}
	e.logger.Debug().Str("stage", p.Stage).Str("raw", text).Msg("model output")
	obj, raw, err := jsonrepair.RecoverObject(text)
	if err != nil {
		return nil, nil, stageFailure(p.Stage, err)
	}
	return obj, raw, nil
}

// withParams fills the token limit from the stage defaults. Temperature is
// sent as configured, including 0.
func withParams(ep llm.Endpoint, params prompts.Params) llm.Endpoint {
	if ep.MaxTokens == 0 {
		ep.MaxTokens = params.MaxTokens
	}
	return ep
}

func stageFailure(stage string, err error) error {
	f, ok := domain.AsFailure(err)
	if !ok {
		f = domain.NewNetworkFailure(err)
	}
	return f.WithStage(stage)
}
