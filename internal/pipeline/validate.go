package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

const (
	maxChecklistItems = 10
	minDiagnoses      = 1
	maxDiagnoses      = 4
)

func missingKeys(obj map[string]any, prefix string, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			missing = append(missing, prefix+k)
		}
	}
	return missing
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func typeViolation(obj any, err error) *domain.Failure {
	return domain.NewSchemaViolation(obj, nil, fmt.Sprintf("unexpected field types: %v", err))
}

type triageWire struct {
	Category           string            `json:"category"`
	Hazards            []string          `json:"hazards"`
	Summary            string            `json:"summary"`
	QuestionsChecklist []json.RawMessage `json:"questions_checklist"`
	TenantMessage      string            `json:"tenant_message"`
	Diagnosis          struct {
		MostLikely   string   `json:"most_likely"`
		Alternatives []string `json:"alternatives"`
		Confidence   float64  `json:"confidence"`
	} `json:"diagnosis"`
}

func decodeTriage(obj map[string]any, raw json.RawMessage) (*domain.TriageResult, error) {
	missing := missingKeys(obj, "", "category", "hazards", "summary", "questions_checklist", "diagnosis")
	if diag, ok := obj["diagnosis"].(map[string]any); ok {
		missing = append(missing, missingKeys(diag, "diagnosis.", "most_likely", "confidence")...)
	} else if _, present := obj["diagnosis"]; present {
		missing = append(missing, "diagnosis.most_likely", "diagnosis.confidence")
	}
	if len(missing) > 0 {
		return nil, domain.NewSchemaViolation(obj, missing, "triage response is incomplete")
	}
	var wire triageWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, typeViolation(obj, err)
	}

	checklist := make([]domain.QuestionItem, 0, len(wire.QuestionsChecklist))
	for _, item := range wire.QuestionsChecklist {
		q, ok := decodeQuestion(item)
		if !ok {
			continue
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", len(checklist)+1)
		}
		checklist = append(checklist, q)
	}
	if len(checklist) == 0 {
		return nil, domain.NewSchemaViolation(obj, []string{"questions_checklist"}, "triage checklist is empty")
	}
	if len(checklist) > maxChecklistItems {
		checklist = checklist[:maxChecklistItems]
	}

	return &domain.TriageResult{
		Category:           strings.TrimSpace(wire.Category),
		Hazards:            nonNil(wire.Hazards),
		Summary:            strings.TrimSpace(wire.Summary),
		QuestionsChecklist: checklist,
		TenantMessage:      strings.TrimSpace(wire.TenantMessage),
		Diagnosis: domain.PreliminaryDiagnosis{
			MostLikely:   strings.TrimSpace(wire.Diagnosis.MostLikely),
			Alternatives: nonNil(wire.Diagnosis.Alternatives),
			Confidence:   clamp01(wire.Diagnosis.Confidence),
		},
	}, nil
}

// decodeQuestion accepts either a checklist object or a bare question string.
func decodeQuestion(raw json.RawMessage) (domain.QuestionItem, bool) {
	var q domain.QuestionItem
	if err := json.Unmarshal(raw, &q); err == nil {
		q.ID = strings.TrimSpace(q.ID)
		q.Question = strings.TrimSpace(q.Question)
		return q, q.Question != ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
		return domain.QuestionItem{Question: strings.TrimSpace(text)}, true
	}
	return domain.QuestionItem{}, false
}

func decodeVision(obj map[string]any, raw json.RawMessage) (*domain.VisionRecon, error) {
	if missing := missingKeys(obj, "", "vision_summary"); len(missing) > 0 {
		return nil, domain.NewSchemaViolation(obj, missing, "vision response is incomplete")
	}
	var v domain.VisionRecon
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, typeViolation(obj, err)
	}
	v.Objects = nonNil(v.Objects)
	v.Hazards = nonNil(v.Hazards)
	v.LabelsOrText = nonNil(v.LabelsOrText)
	v.VisibleDamage = nonNilMap(v.VisibleDamage)
	v.Materials = nonNilMap(v.Materials)
	v.Measurements = nonNilMap(v.Measurements)
	return &v, nil
}

var diagnosisFields = []string{
	"title", "description", "confidence", "severity", "urgency_hours", "safety_concerns",
	"trade_required", "repair_steps", "materials_needed", "estimated_labor_minutes", "estimated_material_cost",
}

// Integer fields are decoded as numbers and rounded; models often emit 60.0.
type diagnosisWire struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	Confidence            float64  `json:"confidence"`
	Severity              string   `json:"severity"`
	UrgencyHours          float64  `json:"urgency_hours"`
	SafetyConcerns        []string `json:"safety_concerns"`
	TradeRequired         string   `json:"trade_required"`
	RepairSteps           []string `json:"repair_steps"`
	MaterialsNeeded       []string `json:"materials_needed"`
	EstimatedLaborMinutes float64  `json:"estimated_labor_minutes"`
	EstimatedMaterialCost float64  `json:"estimated_material_cost"`
}

func decodeDiagnoses(obj map[string]any, raw json.RawMessage) (*domain.DiagnosisSet, error) {
	items, ok := obj["diagnoses"].([]any)
	if !ok {
		return nil, domain.NewSchemaViolation(obj, []string{"diagnoses"}, "diagnosis response has no diagnoses list")
	}
	if len(items) < minDiagnoses || len(items) > maxDiagnoses {
		return nil, domain.NewSchemaViolation(obj, nil, fmt.Sprintf("expected %d to %d diagnoses, got %d", minDiagnoses, maxDiagnoses, len(items)))
	}
	var missing []string
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			missing = append(missing, fmt.Sprintf("diagnoses[%d]", i))
			continue
		}
		missing = append(missing, missingKeys(m, fmt.Sprintf("diagnoses[%d].", i), diagnosisFields...)...)
	}
	if len(missing) > 0 {
		return nil, domain.NewSchemaViolation(obj, missing, "diagnosis response is incomplete")
	}

	var wire struct {
		Diagnoses []diagnosisWire `json:"diagnoses"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, typeViolation(obj, err)
	}
	set := &domain.DiagnosisSet{Diagnoses: make([]domain.Diagnosis, 0, len(wire.Diagnoses))}
	for i, d := range wire.Diagnoses {
		severity := domain.Severity(strings.ToLower(strings.TrimSpace(d.Severity)))
		if !severity.Valid() {
			return nil, domain.NewSchemaViolation(obj, nil, fmt.Sprintf("diagnoses[%d].severity %q is not low, medium or high", i, d.Severity))
		}
		set.Diagnoses = append(set.Diagnoses, domain.Diagnosis{
			Title:                 strings.TrimSpace(d.Title),
			Description:           strings.TrimSpace(d.Description),
			Confidence:            clamp01(d.Confidence),
			Severity:              severity,
			UrgencyHours:          int(math.Round(d.UrgencyHours)),
			SafetyConcerns:        nonNil(d.SafetyConcerns),
			TradeRequired:         strings.TrimSpace(d.TradeRequired),
			RepairSteps:           nonNil(d.RepairSteps),
			MaterialsNeeded:       nonNil(d.MaterialsNeeded),
			EstimatedLaborMinutes: int(math.Round(d.EstimatedLaborMinutes)),
			EstimatedMaterialCost: d.EstimatedMaterialCost,
		})
	}
	return set, nil
}

var pricingFields = []string{
	"currency", "labour_minutes_estimated", "labour_cost_estimated", "materials_cost_estimated",
	"materials_with_buffer", "materials_with_markup", "subtotal_before_markup", "job_markup_percent",
	"job_markup_amount", "final_recommended_price", "notes",
}

func decodePricing(obj map[string]any) (*domain.PricingRecommendation, error) {
	inner, prefix := obj, ""
	if nested, present := obj["price_recommendation"]; present {
		m, ok := nested.(map[string]any)
		if !ok {
			return nil, domain.NewSchemaViolation(obj, nil, "price_recommendation is not an object")
		}
		inner, prefix = m, "price_recommendation."
	}
	if missing := missingKeys(inner, prefix, pricingFields...); len(missing) > 0 {
		return nil, domain.NewSchemaViolation(obj, missing, "pricing response is incomplete")
	}
	b, err := json.Marshal(inner)
	if err != nil {
		return nil, typeViolation(obj, err)
	}
	var p domain.PricingRecommendation
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, typeViolation(obj, err)
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	return &p, nil
}

var quoteFields = []string{
	"currency", "fair_range_low", "fair_range_high", "subcontractor_quote_incl_gst", "position_vs_market",
	"recommended_markup_percent", "recommended_markup_amount", "caf_recommended_sell_price",
	"caf_position_after_markup", "should_negotiate_or_change_subbie", "breakdown",
}

func decodeQuote(obj map[string]any, raw json.RawMessage) (*domain.QuoteAnalysis, error) {
	if missing := missingKeys(obj, "", quoteFields...); len(missing) > 0 {
		return nil, domain.NewSchemaViolation(obj, missing, "quote analysis response is incomplete")
	}
	breakdown, ok := obj["breakdown"].(map[string]any)
	if !ok {
		return nil, domain.NewSchemaViolation(obj, []string{"breakdown"}, "breakdown is not an object")
	}
	var invalid []string
	for _, k := range []string{"scope_summary", "comparison_summary", "markup_strategy"} {
		if _, ok := breakdown[k].(string); !ok {
			invalid = append(invalid, "breakdown."+k)
		}
	}
	for _, k := range []string{"baseline_costs", "market_benchmarks"} {
		if _, ok := breakdown[k].([]any); !ok {
			invalid = append(invalid, "breakdown."+k)
		}
	}
	if len(invalid) > 0 {
		return nil, domain.NewSchemaViolation(obj, invalid, "breakdown section is invalid or incomplete")
	}
	var q domain.QuoteAnalysis
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, typeViolation(obj, err)
	}
	q.Breakdown.BaselineCosts = nonNil(q.Breakdown.BaselineCosts)
	q.Breakdown.MarketBenchmarks = nonNil(q.Breakdown.MarketBenchmarks)
	return &q, nil
}
