package handlers

import (
	"net/http"

	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/domain"
)

func (a *App) Triage(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req triageRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Cases.RunTriage(r.Context(), id, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

// Vision runs vision recon over the given media, or over every media item
// already attached to the case when none is given.
func (a *App) Vision(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req visionRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Cases.RunVisionRecon(r.Context(), id, req.Context, req.Media)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) TenantMessage(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req tenantMessageRequest
	if r.ContentLength != 0 {
		if err := a.decode(w, r, &req); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	msg, err := a.Cases.TenantMessage(r.Context(), id, req.Answers)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": msg})
}

func (a *App) Diagnosis(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req diagnosisRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Cases.RunFinalDiagnosis(r.Context(), id, req.Answers, req.TenantText, req.VisionReconRaw)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req pricingRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	sel := cases.Selection{Index: req.SelectedIndex, Diagnosis: req.Diagnosis}
	out, err := a.Cases.RunPricing(r.Context(), id, sel, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) QuoteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req quoteAnalysisRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	input, err := req.text()
	if err != nil {
		a.fail(w, r, domain.NewValidationFailure("input must be text or a JSON object"))
		return
	}
	out, err := a.Cases.RunQuoteAnalysis(r.Context(), id, input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}
