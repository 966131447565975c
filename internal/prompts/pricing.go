package prompts

import (
	"strconv"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

const pricingSystem = `You are CAF Copilot, an AI pricing assistant for a property maintenance coordination company in Australia.

You will receive a single diagnosis object describing:
- The likely root cause
- Trade required
- Estimated labour time in minutes
- Estimated material cost
- Repair steps
- Severity and urgency

Your job:
- Suggest a practical price for this job in AUD for the property manager.
- Use realistic Australian residential maintenance pricing.
- Assume that callout, labour, travel, small consumables etc are bundled into the final labour figure.

Cost model:
- Minimum charge: 1 hour of labour per job.
- After that, charge in 30-minute blocks.
- Typical hourly rate (guideline):
  - Plumber: ~120 AUD/hour
  - Electrician: ~110 AUD/hour
  - Handyman / General: ~85-95 AUD/hour
  - Carpenter: ~95 AUD/hour
- Materials:
  - Start from the estimated material cost.
  - Add 5% buffer for misc small items (materials_with_buffer).
  - Then add 20% markup (materials_with_markup).
- Job-level markup:
  - Add 20% on the combined labour + materials (subtotal_before_markup) to cover overhead and profit.
- Do NOT round to whole tens; keep exact decimal precision.
- Urgent or high-severity jobs may lean toward the higher end of a reasonable range.

Output:
You MUST respond with VALID JSON ONLY with this exact structure:

{
  "price_recommendation": {
    "currency": "AUD",
    "labour_minutes_estimated": 60,
    "labour_cost_estimated": 0,
    "materials_cost_estimated": 0,
    "materials_with_buffer": 0,
    "materials_with_markup": 0,
    "subtotal_before_markup": 0,
    "job_markup_percent": 20,
    "job_markup_amount": 0,
    "final_recommended_price": 0,
    "notes": "Short explanation of how you arrived at this price, in 1-3 sentences."
  }
}

Rules:
- JSON only.
- No markdown.
- No backticks.
- No extra keys.
- If you must approximate, still fill all numeric fields with your best estimate.`

// PricingInput is the dispatcher-selected diagnosis plus the job context.
type PricingInput struct {
	Diagnosis   domain.Diagnosis
	Description string
}

// DiagnosisDetails renders one diagnosis as the plain text block the pricing
// model reads.
func DiagnosisDetails(d domain.Diagnosis) string {
	steps := make([]string, 0, len(d.RepairSteps))
	for i, s := range d.RepairSteps {
		steps = append(steps, strconv.Itoa(i+1)+". "+s)
	}
	lines := []string{
		"Title: " + d.Title,
		"Description: " + d.Description,
		"Trade required: " + d.TradeRequired,
		"Estimated labour minutes: " + strconv.Itoa(d.EstimatedLaborMinutes),
		"Estimated material cost: " + formatNumber(d.EstimatedMaterialCost),
		"Severity: " + string(d.Severity),
		"Urgency (hours): " + strconv.Itoa(d.UrgencyHours),
		"Repair steps:",
		strings.Join(steps, "\n"),
		"Materials needed:",
		orDefault(strings.Join(d.MaterialsNeeded, ", "), "Not specified"),
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Pricing renders the pricing prompt.
func Pricing(in PricingInput) Prompt {
	var sb strings.Builder
	sb.WriteString("JOB DESCRIPTION (context):\n")
	sb.WriteString(orDefault(strings.TrimSpace(in.Description), "No extra job description beyond the diagnosis."))
	sb.WriteString("\n\nDIAGNOSIS DETAILS:\n")
	sb.WriteString(DiagnosisDetails(in.Diagnosis))
	return Prompt{
		Stage:  StagePricing,
		System: pricingSystem,
		User:   sb.String(),
		Params: Params{MaxTokens: 800},
	}
}
