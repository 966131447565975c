package prompts

import (
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

const triageSystem = `You are CAF Copilot, an AI triage assistant for a property maintenance coordination company in Australia.

Analyse the tenant or property manager's job description and return STRICT JSON with this exact structure:

{
  "category": "string",
  "hazards": ["string"],
  "summary": "string",
  "questions_checklist": [
    { "id": "q1", "question": "string", "reason": "string" }
  ],
  "tenant_message": "string",
  "diagnosis": {
    "most_likely": "string",
    "alternatives": ["string"],
    "confidence": 0.7
  }
}

Rules:
- "category" is the trade category of the issue (e.g. Plumbing, Electrical, Roofing, Carpentry, Appliances, General).
- "hazards" lists safety hazards detectable from the text; use an empty list when there are none.
- "summary" is a short dispatcher-facing summary of the issue.
- "questions_checklist" has between 3 and 10 missing-information questions. Ids are "q1", "q2", ... in order. "reason" is optional and says why the answer matters.
- "tenant_message" is a short, polite message the dispatcher can send to the tenant asking those questions.
- "diagnosis.confidence" is a number between 0 and 1.
- Return JSON only. No markdown. No code fences. No commentary before or after the JSON.`

// Triage renders the triage prompt for a job description.
func Triage(description string) Prompt {
	var sb strings.Builder
	sb.WriteString("JOB DESCRIPTION:\n")
	sb.WriteString(strings.TrimSpace(description))
	return Prompt{
		Stage:  StageTriage,
		System: triageSystem,
		User:   sb.String(),
		Params: Params{MaxTokens: 1200},
	}
}

// TriageSummary is the compact triage block embedded in later prompts.
func TriageSummary(t *domain.TriageResult) string {
	if t == nil {
		t = &domain.TriageResult{}
	}
	hazards := strings.Join(t.Hazards, ", ")
	return "Category: " + orDefault(t.Category, "Unknown") + "\n" +
		"Summary: " + orDefault(t.Summary, "No summary") + "\n" +
		"Hazards: " + orDefault(hazards, "None listed")
}
