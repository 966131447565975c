package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/pipeline"
	"github.com/classafix/caf-copilot/internal/prompts"
	"github.com/classafix/caf-copilot/internal/providers/llm"
)

const (
	DefaultListLimit = 50
	maxListLimit     = 200
)

// Pipeline is the set of model-backed stages the service drives.
type Pipeline interface {
	Triage(ctx context.Context, description string) (*domain.TriageResult, error)
	Vision(ctx context.Context, contextText string, media []domain.Media) (*domain.VisionRecon, error)
	Diagnosis(ctx context.Context, in prompts.DiagnosisInput) (*domain.DiagnosisSet, error)
	Pricing(ctx context.Context, in prompts.PricingInput) (*domain.PricingRecommendation, error)
	QuoteAnalysis(ctx context.Context, input string) (*domain.QuoteAnalysis, error)
	Endpoint(stage string) llm.Endpoint
}

// Outcome is a stage result together with the case it was persisted into.
type Outcome[T any] struct {
	Result T            `json:"result"`
	Case   *domain.Case `json:"case"`
}

// Selection picks the diagnosis to price: an explicit candidate wins over an
// index into the stored diagnosis set.
type Selection struct {
	Index     *int
	Diagnosis *domain.Diagnosis
}

type Service struct {
	repo     domain.CaseRepository
	pipeline Pipeline
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo domain.CaseRepository, pipeline Pipeline, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		logger:   logger.With().Str("component", "cases").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateCase stores a new case in status new.
func (s *Service) CreateCase(ctx context.Context, externalJobID *string, description string) (*domain.Case, error) {
	now := s.now()
	c := &domain.Case{
		ID:          uuid.NewString(),
		Title:       domain.UntitledCase,
		Description: strings.TrimSpace(description),
		Media:       []domain.Media{},
		Status:      domain.CaseStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if externalJobID != nil && strings.TrimSpace(*externalJobID) != "" {
		id := strings.TrimSpace(*externalJobID)
		c.ExternalJobID = &id
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	s.logger.Info().Str("case_id", c.ID).Msg("case created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Case, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the most recently created cases first.
func (s *Service) List(ctx context.Context, limit int) ([]domain.Case, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// AttachMedia appends uploaded evidence to a case.
func (s *Service) AttachMedia(ctx context.Context, id string, media []domain.Media) (*domain.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := c.Clone()
	out.Media = mergeMedia(out.Media, media)
	out.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RunTriage classifies the case description. A non-blank description argument
// replaces the stored one.
func (s *Service) RunTriage(ctx context.Context, id, description string) (*Outcome[*domain.TriageResult], error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		description = c.Description
	}
	start := time.Now()
	result, err := s.pipeline.Triage(ctx, description)
	s.logStage(c.ID, prompts.StageTriage, start, err)
	if err != nil {
		return nil, err
	}
	updated, err := s.persist(ctx, c, TriageApplied{Description: description, Result: result})
	if err != nil {
		return nil, err
	}
	return &Outcome[*domain.TriageResult]{Result: result, Case: updated}, nil
}

// RunVisionRecon describes the photos. When media is empty the case's
// attached media are used.
func (s *Service) RunVisionRecon(ctx context.Context, id, contextText string, media []domain.Media) (*Outcome[*domain.VisionRecon], error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(media) == 0 {
		media = c.Media
	}
	start := time.Now()
	result, err := s.pipeline.Vision(ctx, contextText, media)
	s.logStage(c.ID, prompts.StageVision, start, err)
	if err != nil {
		return nil, err
	}
	updated, err := s.persist(ctx, c, VisionApplied{Context: strings.TrimSpace(contextText), Media: media, Result: result})
	if err != nil {
		return nil, err
	}
	return &Outcome[*domain.VisionRecon]{Result: result, Case: updated}, nil
}

// RunFinalDiagnosis proposes ranked diagnoses. An empty visionReconRaw falls
// back to the stored vision recon.
func (s *Service) RunFinalDiagnosis(ctx context.Context, id string, answers map[string]string, tenantText, visionReconRaw string) (*Outcome[*domain.DiagnosisSet], error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Triage == nil {
		return nil, domain.NewValidationFailure("triage must run before final diagnosis").WithStage(prompts.StageDiagnosis)
	}
	if strings.TrimSpace(visionReconRaw) == "" && c.Vision != nil {
		b, err := json.MarshalIndent(c.Vision, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode vision recon: %w", err)
		}
		visionReconRaw = string(b)
	}
	if answers == nil {
		answers = map[string]string{}
	}
	start := time.Now()
	result, err := s.pipeline.Diagnosis(ctx, prompts.DiagnosisInput{
		Description: c.Description,
		Triage:      c.Triage,
		Answers:     answers,
		TenantText:  tenantText,
		VisionRaw:   visionReconRaw,
	})
	s.logStage(c.ID, prompts.StageDiagnosis, start, err)
	if err != nil {
		return nil, err
	}
	updated, err := s.persist(ctx, c, DiagnosisApplied{Answers: answers, TenantText: strings.TrimSpace(tenantText), Result: result})
	if err != nil {
		return nil, err
	}
	return &Outcome[*domain.DiagnosisSet]{Result: result, Case: updated}, nil
}

// RunPricing prices the dispatcher-selected diagnosis.
func (s *Service) RunPricing(ctx context.Context, id string, sel Selection, description string) (*Outcome[*domain.PricingRecommendation], error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	selected, err := resolveSelection(c, sel)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		description = c.Description
	}
	start := time.Now()
	result, err := s.pipeline.Pricing(ctx, prompts.PricingInput{Diagnosis: selected, Description: description})
	s.logStage(c.ID, prompts.StagePricing, start, err)
	if err != nil {
		return nil, err
	}
	updated, err := s.persist(ctx, c, PricingApplied{Result: result})
	if err != nil {
		return nil, err
	}
	return &Outcome[*domain.PricingRecommendation]{Result: result, Case: updated}, nil
}

// resolveSelection picks the diagnosis to price. Pricing needs triage and a
// diagnosis set on the case even when the caller supplies the diagnosis.
func resolveSelection(c *domain.Case, sel Selection) (domain.Diagnosis, error) {
	if c.Triage == nil {
		return domain.Diagnosis{}, domain.NewValidationFailure("triage must run before pricing").WithStage(prompts.StagePricing)
	}
	if c.Diagnosis == nil || len(c.Diagnosis.Diagnoses) == 0 {
		return domain.Diagnosis{}, domain.NewValidationFailure("final diagnosis must run before pricing").WithStage(prompts.StagePricing)
	}
	if sel.Diagnosis != nil {
		return *sel.Diagnosis, nil
	}
	if sel.Index == nil {
		return domain.Diagnosis{}, domain.NewValidationFailure("a diagnosis must be selected for pricing").WithStage(prompts.StagePricing)
	}
	idx := *sel.Index
	if idx < 0 || idx >= len(c.Diagnosis.Diagnoses) {
		return domain.Diagnosis{}, domain.NewValidationFailure("diagnosis index %d out of range (0-%d)", idx, len(c.Diagnosis.Diagnoses)-1).WithStage(prompts.StagePricing)
	}
	return c.Diagnosis.Diagnoses[idx], nil
}

// RunQuoteAnalysis benchmarks a job description or subcontractor quote.
func (s *Service) RunQuoteAnalysis(ctx context.Context, id, input string) (*Outcome[*domain.QuoteAnalysis], error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.pipeline.QuoteAnalysis(ctx, input)
	s.logStage(c.ID, prompts.StageQuote, start, err)
	if err != nil {
		return nil, err
	}
	updated, err := s.persist(ctx, c, QuoteApplied{Result: result})
	if err != nil {
		return nil, err
	}
	return &Outcome[*domain.QuoteAnalysis]{Result: result, Case: updated}, nil
}

// TenantMessage renders the clarification message for the unanswered
// checklist items. Nil answers fall back to the stored answers.
func (s *Service) TenantMessage(ctx context.Context, id string, answers map[string]string) (string, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if c.Triage == nil {
		return "", domain.NewValidationFailure("triage must run before a tenant message can be drafted")
	}
	if answers == nil {
		answers = c.Answers
	}
	return pipeline.TenantMessage(c.Triage, answers), nil
}

func (s *Service) persist(ctx context.Context, c *domain.Case, r StageResult) (*domain.Case, error) {
	updated := Apply(c, r, s.now())
	if err := s.repo.Update(ctx, updated); err != nil {
		s.logger.Warn().Err(err).Str("case_id", c.ID).Str("stage", r.stageName()).Msg("persist stage result")
		return nil, err
	}
	return updated, nil
}

func (s *Service) logStage(caseID, stage string, start time.Time, err error) {
	ep := s.pipeline.Endpoint(stage)
	evt := s.logger.Info()
	outcome := "ok"
	if err != nil {
		evt = s.logger.Warn().Err(err)
		outcome = "failed"
		if f, ok := domain.AsFailure(err); ok {
			outcome = string(f.Kind)
		}
	}
	evt.Str("case_id", caseID).
		Str("stage", stage).
		Str("provider", string(ep.Provider)).
		Str("model", ep.Model).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Str("outcome", outcome).
		Msg("stage executed")
}
