package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/prompts"
	"github.com/classafix/caf-copilot/internal/providers/llm"
)

type fakeInvoker struct {
	reply   string
	err     error
	calls   int
	lastEP  llm.Endpoint
	lastReq llm.Request
}

func (f *fakeInvoker) Invoke(ctx context.Context, ep llm.Endpoint, req llm.Request) (string, error) {
	f.calls++
	f.lastEP = ep
	f.lastReq = req
	return f.reply, f.err
}

func newExecutor(inv llm.Invoker) *Executor {
	return NewExecutor(inv, Endpoints{
		Triage:  llm.Endpoint{Model: "triage-model", Temperature: 0.2},
		Pricing: llm.Endpoint{Model: "pricing-model", MaxTokens: 0},
	}, zerolog.Nop())
}

const scenarioTriageReply = `{"category":"Plumbing","hazards":[],"summary":"Leaking tap","questions_checklist":[{"id":"q1","question":"What type of tap?"}],"diagnosis":{"most_likely":"Worn cartridge","alternatives":[],"confidence":0.8}}`

func TestTriageScenario(t *testing.T) {
	inv := &fakeInvoker{reply: scenarioTriageReply}
	result, err := newExecutor(inv).Triage(context.Background(), "Kitchen tap is leaking")
	require.NoError(t, err)
	assert.Equal(t, "Plumbing", result.Category)
	assert.Equal(t, "Leaking tap", result.Summary)
	require.Len(t, result.QuestionsChecklist, 1)
	assert.Equal(t, "q1", result.QuestionsChecklist[0].ID)
	assert.Equal(t, 0.8, result.Diagnosis.Confidence)
	assert.NotNil(t, result.Hazards)

	assert.Equal(t, "triage-model", inv.lastEP.Model)
	assert.Equal(t, 1200, inv.lastEP.MaxTokens)
	assert.Equal(t, 0.2, inv.lastEP.Temperature)
	assert.Equal(t, prompts.StageTriage, inv.lastReq.Stage)
	assert.Contains(t, inv.lastReq.User, "Kitchen tap is leaking")
}

func TestConfiguredZeroTemperatureIsSent(t *testing.T) {
	inv := &fakeInvoker{reply: scenarioTriageReply}
	exec := NewExecutor(inv, Endpoints{Triage: llm.Endpoint{Model: "triage-model", Temperature: 0, MaxTokens: 300}}, zerolog.Nop())
	_, err := exec.Triage(context.Background(), "Kitchen tap is leaking")
	require.NoError(t, err)
	assert.Zero(t, inv.lastEP.Temperature)
	assert.Equal(t, 300, inv.lastEP.MaxTokens)
}

func TestTriageRequiresDescription(t *testing.T) {
	inv := &fakeInvoker{reply: scenarioTriageReply}
	_, err := newExecutor(inv).Triage(context.Background(), "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, inv.calls)
}

func TestTriageNormalizesModelOutput(t *testing.T) {
	reply := "```json\n" + `{"category":"Electrical","hazards":["exposed wiring"],"summary":"Sparking outlet",
"questions_checklist":["Is the outlet warm?",{"question":"Any burning smell?"},{"id":"q9","question":"  "},
"a","b","c","d","e","f","g","h","i"],
"diagnosis":{"most_likely":"Loose terminal","confidence":1.7}}` + "\n```"
	result, err := newExecutor(&fakeInvoker{reply: reply}).Triage(context.Background(), "Outlet sparks")
	require.NoError(t, err)
	require.Len(t, result.QuestionsChecklist, 10)
	assert.Equal(t, domain.QuestionItem{ID: "q1", Question: "Is the outlet warm?"}, result.QuestionsChecklist[0])
	assert.Equal(t, "q2", result.QuestionsChecklist[1].ID)
	assert.Equal(t, 1.0, result.Diagnosis.Confidence)
	assert.Equal(t, []string{}, result.Diagnosis.Alternatives)
}

func TestTriageFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  error
	}{
		{name: "no json", reply: "I am unable to help.", want: domain.ErrMalformedOutput},
		{name: "missing summary", reply: `{"category":"x","hazards":[],"questions_checklist":["q"],"diagnosis":{"most_likely":"y","confidence":0.5}}`, want: domain.ErrSchemaViolation},
		{name: "empty checklist", reply: `{"category":"x","hazards":[],"summary":"s","questions_checklist":[],"diagnosis":{"most_likely":"y","confidence":0.5}}`, want: domain.ErrSchemaViolation},
		{name: "diagnosis without confidence", reply: `{"category":"x","hazards":[],"summary":"s","questions_checklist":["q"],"diagnosis":{"most_likely":"y"}}`, want: domain.ErrSchemaViolation},
		{name: "upstream", err: domain.NewUpstreamFailure(503, "busy"), want: domain.ErrUpstream},
		{name: "plain error", err: errors.New("dial tcp: refused"), want: domain.ErrNetwork},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newExecutor(&fakeInvoker{reply: tc.reply, err: tc.err}).Triage(context.Background(), "desc")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			f, ok := domain.AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, prompts.StageTriage, f.Stage)
		})
	}
}

func TestTriageMalformedCarriesText(t *testing.T) {
	_, err := newExecutor(&fakeInvoker{reply: "```json\n{\"category\": \n```"}).Triage(context.Background(), "desc")
	f, ok := domain.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureMalformedOutput, f.Kind)
	assert.Equal(t, "```json\n{\"category\": \n```", f.Raw)
	assert.NotEmpty(t, f.Cleaned)
}

func TestVisionPreconditions(t *testing.T) {
	inv := &fakeInvoker{reply: `{"vision_summary":"stain"}`}
	ex := newExecutor(inv)

	_, err := ex.Vision(context.Background(), "", []domain.Media{{URL: "a", ContentType: "image/png"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ex.Vision(context.Background(), "ceiling", []domain.Media{{URL: "a.pdf", ContentType: "application/pdf"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, inv.calls)

	media := []domain.Media{{URL: "a.pdf", ContentType: "application/pdf"}, {URL: "b.jpg", ContentType: "image/jpeg"}}
	v, err := ex.Vision(context.Background(), "ceiling", media)
	require.NoError(t, err)
	assert.Equal(t, "stain", v.VisionSummary)
	assert.NotNil(t, v.VisibleDamage)
	assert.Equal(t, []string{}, v.Objects)
	require.Len(t, inv.lastReq.Images, 1)
	assert.Equal(t, "b.jpg", inv.lastReq.Images[0].URL)
}

func diagnosisInput() prompts.DiagnosisInput {
	return prompts.DiagnosisInput{
		Description: "Kitchen tap is leaking",
		Triage:      &domain.TriageResult{Category: "Plumbing"},
		VisionRaw:   `{"vision_summary":"dripping"}`,
	}
}

const twoDiagnoses = `{"diagnoses":[
{"title":"Burst pipe","description":"Pipe split","confidence":0.7,"severity":"HIGH","urgency_hours":4.0,"safety_concerns":["water near power"],"trade_required":"plumber","repair_steps":["Isolate water","Replace section"],"materials_needed":["copper pipe"],"estimated_labor_minutes":120.0,"estimated_material_cost":85.5},
{"title":"Worn washer","description":"Washer perished","confidence":0.3,"severity":"low","urgency_hours":72,"safety_concerns":[],"trade_required":"handyman","repair_steps":["Replace washer"],"materials_needed":["washer kit"],"estimated_labor_minutes":45,"estimated_material_cost":12.4}
]}`

func TestDiagnosisDecodesCandidates(t *testing.T) {
	set, err := newExecutor(&fakeInvoker{reply: twoDiagnoses}).Diagnosis(context.Background(), diagnosisInput())
	require.NoError(t, err)
	require.Len(t, set.Diagnoses, 2)
	assert.Equal(t, domain.SeverityHigh, set.Diagnoses[0].Severity)
	assert.Equal(t, 4, set.Diagnoses[0].UrgencyHours)
	assert.Equal(t, 120, set.Diagnoses[0].EstimatedLaborMinutes)
	assert.Equal(t, "handyman", set.Diagnoses[1].TradeRequired)
	assert.Equal(t, 12.4, set.Diagnoses[1].EstimatedMaterialCost)
}

func TestDiagnosisPreconditions(t *testing.T) {
	inv := &fakeInvoker{reply: twoDiagnoses}
	ex := newExecutor(inv)

	in := diagnosisInput()
	in.Triage = nil
	_, err := ex.Diagnosis(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = diagnosisInput()
	in.VisionRaw = "  "
	_, err = ex.Diagnosis(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, inv.calls)
}

func TestDiagnosisSchemaViolations(t *testing.T) {
	item := `{"title":"t","description":"d","confidence":0.5,"severity":"medium","urgency_hours":1,"safety_concerns":[],"trade_required":"x","repair_steps":[],"materials_needed":[],"estimated_labor_minutes":1,"estimated_material_cost":1}`
	tests := map[string]string{
		"empty list":       `{"diagnoses":[]}`,
		"too many":         `{"diagnoses":[` + item + `,` + item + `,` + item + `,` + item + `,` + item + `]}`,
		"missing list":     `{"diagnosis":[` + item + `]}`,
		"missing field":    `{"diagnoses":[{"title":"t"}]}`,
		"unknown severity": `{"diagnoses":[` + item[:len(item)-1] + `,"severity":"critical"}]}`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newExecutor(&fakeInvoker{reply: reply}).Diagnosis(context.Background(), diagnosisInput())
			assert.ErrorIs(t, err, domain.ErrSchemaViolation)
		})
	}
}

const fullPricing = `{"price_recommendation":{"currency":"aud","labour_minutes_estimated":90,"labour_cost_estimated":180,"materials_cost_estimated":85.5,"materials_with_buffer":89.78,"materials_with_markup":107.73,"subtotal_before_markup":287.73,"job_markup_percent":20,"job_markup_amount":57.55,"final_recommended_price":345.28,"notes":"1.5h plumber"}}`

func TestPricingUsesSelectedDiagnosis(t *testing.T) {
	inv := &fakeInvoker{reply: fullPricing}
	d := domain.Diagnosis{Title: "Worn washer", TradeRequired: "handyman", EstimatedMaterialCost: 12.4}
	p, err := newExecutor(inv).Pricing(context.Background(), prompts.PricingInput{Diagnosis: d, Description: "tap"})
	require.NoError(t, err)
	assert.Equal(t, "AUD", p.Currency)
	assert.Equal(t, 345.28, p.FinalRecommendedPrice)
	assert.Equal(t, "Worn washer", p.DiagnosisTitle)
	assert.Equal(t, 800, inv.lastEP.MaxTokens)
	assert.Contains(t, inv.lastReq.User, "Trade required: handyman")
	assert.Contains(t, inv.lastReq.User, "Estimated material cost: 12.4")
}

func TestPricingMissingFinalPrice(t *testing.T) {
	reply := `{"price_recommendation":{"currency":"AUD","labour_minutes_estimated":60,"labour_cost_estimated":120,"materials_cost_estimated":10,"materials_with_buffer":10.5,"materials_with_markup":12.6,"subtotal_before_markup":132.6,"job_markup_percent":20,"job_markup_amount":26.52,"notes":"n"}}`
	p, err := newExecutor(&fakeInvoker{reply: reply}).Pricing(context.Background(), prompts.PricingInput{Diagnosis: domain.Diagnosis{Title: "x"}})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
	assert.NotErrorIs(t, err, domain.ErrMalformedOutput)

	f, ok := domain.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, []string{"price_recommendation.final_recommended_price"}, f.Missing)
	assert.NotNil(t, f.Parsed)
}

func TestPricingRequiresSelection(t *testing.T) {
	inv := &fakeInvoker{reply: fullPricing}
	_, err := newExecutor(inv).Pricing(context.Background(), prompts.PricingInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, inv.calls)
}

func TestPricingNumericStringsViolateSchema(t *testing.T) {
	reply := `{"currency":"AUD","labour_minutes_estimated":"60","labour_cost_estimated":120,"materials_cost_estimated":10,"materials_with_buffer":10.5,"materials_with_markup":12.6,"subtotal_before_markup":132.6,"job_markup_percent":20,"job_markup_amount":26.52,"final_recommended_price":159.12,"notes":"n"}`
	_, err := newExecutor(&fakeInvoker{reply: reply}).Pricing(context.Background(), prompts.PricingInput{Diagnosis: domain.Diagnosis{Title: "x"}})
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
}

const fullQuote = `{"currency":"AUD","fair_range_low":280,"fair_range_high":360,"subcontractor_quote_incl_gst":null,"position_vs_market":"n/a","recommended_markup_percent":18,"recommended_markup_amount":52,"caf_recommended_sell_price":330,"caf_position_after_markup":"mid_range","should_negotiate_or_change_subbie":false,
"breakdown":{"scope_summary":"Replace mixer","baseline_costs":[{"item":"labour","estimated_cost_ex_gst":140,"notes":"1h"}],"market_benchmarks":["Typical 250-350"],"comparison_summary":"n/a","markup_strategy":"mid range"}}`

func TestQuoteAnalysis(t *testing.T) {
	q, err := newExecutor(&fakeInvoker{reply: fullQuote}).QuoteAnalysis(context.Background(), "Replace kitchen tap")
	require.NoError(t, err)
	assert.Nil(t, q.SubcontractorQuoteInclGST)
	assert.Equal(t, 330.0, q.CAFRecommendedSellPrice)
	require.Len(t, q.Breakdown.BaselineCosts, 1)
	assert.Equal(t, 140.0, q.Breakdown.BaselineCosts[0].EstimatedCostExGST)
}

func TestQuoteAnalysisBreakdownTypes(t *testing.T) {
	reply := `{"currency":"AUD","fair_range_low":1,"fair_range_high":2,"subcontractor_quote_incl_gst":1.5,"position_vs_market":"mid_range","recommended_markup_percent":1,"recommended_markup_amount":1,"caf_recommended_sell_price":2,"caf_position_after_markup":"mid_range","should_negotiate_or_change_subbie":false,
"breakdown":{"scope_summary":"s","baseline_costs":"none","market_benchmarks":[],"comparison_summary":"c"}}`
	_, err := newExecutor(&fakeInvoker{reply: reply}).QuoteAnalysis(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrSchemaViolation)
	f, _ := domain.AsFailure(err)
	assert.ElementsMatch(t, []string{"breakdown.baseline_costs", "breakdown.markup_strategy"}, f.Missing)

	_, err = newExecutor(&fakeInvoker{reply: `{"currency":"AUD"}`}).QuoteAnalysis(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
}
