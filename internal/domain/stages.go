package domain

// QuestionItem is one entry of the triage follow-up checklist.
type QuestionItem struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Reason   string `json:"reason,omitempty"`
}

// PreliminaryDiagnosis is the early guess produced alongside triage.
type PreliminaryDiagnosis struct {
	MostLikely   string   `json:"most_likely"`
	Alternatives []string `json:"alternatives"`
	Confidence   float64  `json:"confidence"`
}

// TriageResult is the output of the triage stage.
type TriageResult struct {
	Category           string               `json:"category"`
	Hazards            []string             `json:"hazards"`
	Summary            string               `json:"summary"`
	QuestionsChecklist []QuestionItem       `json:"questions_checklist"`
	TenantMessage      string               `json:"tenant_message,omitempty"`
	Diagnosis          PreliminaryDiagnosis `json:"diagnosis"`
}

// VisionRecon is a purely visual description of the uploaded photos.
type VisionRecon struct {
	VisionSummary string         `json:"vision_summary"`
	Objects       []string       `json:"objects"`
	VisibleDamage map[string]any `json:"visible_damage"`
	Hazards       []string       `json:"hazards"`
	Materials     map[string]any `json:"materials"`
	LabelsOrText  []string       `json:"labels_or_text"`
	Measurements  map[string]any `json:"measurements"`
	LocationHint  string         `json:"location_hint"`
}

// Severity grades how bad a diagnosed fault is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Diagnosis is one ranked candidate root cause with its repair estimate.
type Diagnosis struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	Confidence            float64  `json:"confidence"`
	Severity              Severity `json:"severity"`
	UrgencyHours          int      `json:"urgency_hours"`
	SafetyConcerns        []string `json:"safety_concerns"`
	TradeRequired         string   `json:"trade_required"`
	RepairSteps           []string `json:"repair_steps"`
	MaterialsNeeded       []string `json:"materials_needed"`
	EstimatedLaborMinutes int      `json:"estimated_labor_minutes"`
	EstimatedMaterialCost float64  `json:"estimated_material_cost"`
}

// DiagnosisSet holds between one and four candidates, in model order.
type DiagnosisSet struct {
	Diagnoses []Diagnosis `json:"diagnoses"`
}

// PricingRecommendation is the price suggested for one selected diagnosis.
type PricingRecommendation struct {
	Currency               string  `json:"currency"`
	LabourMinutesEstimated float64 `json:"labour_minutes_estimated"`
	LabourCostEstimated    float64 `json:"labour_cost_estimated"`
	MaterialsCostEstimated float64 `json:"materials_cost_estimated"`
	MaterialsWithBuffer    float64 `json:"materials_with_buffer"`
	MaterialsWithMarkup    float64 `json:"materials_with_markup"`
	SubtotalBeforeMarkup   float64 `json:"subtotal_before_markup"`
	JobMarkupPercent       float64 `json:"job_markup_percent"`
	JobMarkupAmount        float64 `json:"job_markup_amount"`
	FinalRecommendedPrice  float64 `json:"final_recommended_price"`
	Notes                  string  `json:"notes"`
	// DiagnosisTitle records which candidate was priced.
	DiagnosisTitle string `json:"diagnosis_title,omitempty"`
}

// BaselineCost is one line of a quote analysis cost build-up.
type BaselineCost struct {
	Item               string  `json:"item"`
	EstimatedCostExGST float64 `json:"estimated_cost_ex_gst"`
	Notes              string  `json:"notes"`
}

// QuoteBreakdown explains how a quote analysis was reached.
type QuoteBreakdown struct {
	ScopeSummary      string         `json:"scope_summary"`
	BaselineCosts     []BaselineCost `json:"baseline_costs"`
	MarketBenchmarks  []string       `json:"market_benchmarks"`
	ComparisonSummary string         `json:"comparison_summary"`
	MarkupStrategy    string         `json:"markup_strategy"`
}

// QuoteAnalysis compares a job (and optionally a subcontractor quote) against a
// fair market range and recommends a sell price.
type QuoteAnalysis struct {
	Currency                      string         `json:"currency"`
	FairRangeLow                  float64        `json:"fair_range_low"`
	FairRangeHigh                 float64        `json:"fair_range_high"`
	SubcontractorQuoteInclGST     *float64       `json:"subcontractor_quote_incl_gst"`
	PositionVsMarket              string         `json:"position_vs_market"`
	RecommendedMarkupPercent      float64        `json:"recommended_markup_percent"`
	RecommendedMarkupAmount       float64        `json:"recommended_markup_amount"`
	CAFRecommendedSellPrice       float64        `json:"caf_recommended_sell_price"`
	CAFPositionAfterMarkup        string         `json:"caf_position_after_markup"`
	ShouldNegotiateOrChangeSubbie bool           `json:"should_negotiate_or_change_subbie"`
	Breakdown                     QuoteBreakdown `json:"breakdown"`
}
