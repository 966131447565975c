package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/classafix/caf-copilot/internal/domain"
)

const maxJSONBody = 1 << 20

type createCaseRequest struct {
	ExternalJobID *string `json:"external_job_id" validate:"omitempty,max=64"`
	Description   string  `json:"description" validate:"max=20000"`
}

type triageRequest struct {
	Description string `json:"description" validate:"omitempty,max=20000"`
}

type visionRequest struct {
	Context string         `json:"context" validate:"required,max=20000"`
	Media   []domain.Media `json:"media" validate:"omitempty,max=20"`
}

type tenantMessageRequest struct {
	Answers map[string]string `json:"answers"`
}

type diagnosisRequest struct {
	Answers        map[string]string `json:"answers"`
	TenantText     string            `json:"tenant_text" validate:"max=20000"`
	VisionReconRaw string            `json:"vision_recon_raw" validate:"max=50000"`
}

type pricingRequest struct {
	SelectedIndex *int              `json:"selected_index" validate:"required_without=Diagnosis,omitempty,gte=0"`
	Diagnosis     *domain.Diagnosis `json:"diagnosis"`
	Description   string            `json:"description" validate:"max=20000"`
}

type quoteAnalysisRequest struct {
	Input json.RawMessage `json:"input"`
}

// text returns input as free text: JSON strings are unquoted, objects are
// passed through verbatim.
func (q quoteAnalysisRequest) text() (string, error) {
	raw := bytes.TrimSpace(q.Input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

// decode reads a JSON body into v and runs struct validation. The returned
// error is a validation failure suitable for fail.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationFailure("request body is required")
		}
		return domain.NewValidationFailure("invalid payload: %v", err)
	}
	if err := a.validate.Struct(v); err != nil {
		return domain.NewValidationFailure("%s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "required_without":
			parts = append(parts, fmt.Sprintf("%s or %s is required", field, strings.ToLower(fe.Param())))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
