package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/middleware"
	"github.com/classafix/caf-copilot/internal/storage"
)

// CaseService is the case workflow the handlers expose.
type CaseService interface {
	CreateCase(ctx context.Context, externalJobID *string, description string) (*domain.Case, error)
	Get(ctx context.Context, id string) (*domain.Case, error)
	List(ctx context.Context, limit int) ([]domain.Case, error)
	AttachMedia(ctx context.Context, id string, media []domain.Media) (*domain.Case, error)
	RunTriage(ctx context.Context, id, description string) (*cases.Outcome[*domain.TriageResult], error)
	RunVisionRecon(ctx context.Context, id, contextText string, media []domain.Media) (*cases.Outcome[*domain.VisionRecon], error)
	RunFinalDiagnosis(ctx context.Context, id string, answers map[string]string, tenantText, visionReconRaw string) (*cases.Outcome[*domain.DiagnosisSet], error)
	RunPricing(ctx context.Context, id string, sel cases.Selection, description string) (*cases.Outcome[*domain.PricingRecommendation], error)
	RunQuoteAnalysis(ctx context.Context, id, input string) (*cases.Outcome[*domain.QuoteAnalysis], error)
	TenantMessage(ctx context.Context, id string, answers map[string]string) (string, error)
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Cases          CaseService
	Store          storage.Store
	DB             Pinger
	Logger         zerolog.Logger
	UploadMaxBytes int64

	validate *validator.Validate
}

func NewApp(svc CaseService, store storage.Store, db Pinger, logger zerolog.Logger, uploadMaxBytes int64) *App {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 15 << 20
	}
	return &App{
		Cases:          svc,
		Store:          store,
		DB:             db,
		Logger:         logger,
		UploadMaxBytes: uploadMaxBytes,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	Stage      string   `json:"stage,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	Body       string   `json:"body,omitempty"`
	Timeout    bool     `json:"timeout,omitempty"`
	Raw        string   `json:"raw,omitempty"`
	Cleaned    string   `json:"cleaned,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Parsed     any      `json:"parsed,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{"error": errorBody{Kind: kind, Message: message}})
}

// fail maps a service error onto a status code and error body.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	if f, ok := domain.AsFailure(err); ok {
		body := errorBody{
			Kind:       string(f.Kind),
			Message:    f.Message,
			Stage:      f.Stage,
			StatusCode: f.StatusCode,
			Body:       f.Body,
			Timeout:    f.Timeout,
			Raw:        f.Raw,
			Cleaned:    f.Cleaned,
			Missing:    f.Missing,
			Parsed:     f.Parsed,
		}
		if body.Message == "" {
			body.Message = f.Error()
		}
		code := failureStatus(f)
		a.Logger.Warn().
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("kind", body.Kind).
			Str("stage", f.Stage).
			Int("status", code).
			Msg("stage failed")
		a.json(w, code, map[string]any{"error": body})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "case not found")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", "case was modified by another request, reload and retry")
	default:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func failureStatus(f *domain.Failure) int {
	switch f.Kind {
	case domain.FailureValidation:
		return http.StatusBadRequest
	case domain.FailureNetwork, domain.FailureUpstream:
		if f.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case domain.FailureMalformedOutput, domain.FailureSchemaViolation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
