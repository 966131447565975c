package prompts

import (
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
)

const diagnosisSystem = `You are CAF Copilot, an AI assistant for a property maintenance coordination company.

You will receive:
- A job description
- An initial triage summary (category, hazards, summary)
- Dispatcher Q&A (what is already known, what is unknown)
- Tenant reply text
- A visual recon report (JSON) generated from photos

Your task:
1. Propose between 1 and 4 plausible diagnoses (root causes) for the issue.
2. For EACH diagnosis, provide:
   - A clear title
   - A short description
   - Confidence (0-1)
   - Severity: "low", "medium", or "high"
   - Urgency in hours (how soon it should be attended to)
   - Safety concerns (list of strings)
   - Trade required (e.g. "plumber", "electrician", "carpenter", "roofer", "handyman")
   - Repair steps: high-level steps a tradesperson usually takes to fix this
   - Materials needed: list of typical materials or parts
   - Estimated labour time in minutes (integer)
   - Estimated material cost in local currency (numeric, rough estimate)

Important:
- Use ALL inputs together: description, triage, Q&A, tenant text, and vision recon JSON.
- Be realistic and practical for Australian residential property maintenance.
- Do NOT invent exotic repairs or unrealistic materials.
- If something is uncertain, reflect that in lower confidence.
- At least one diagnosis should be the most likely with highest confidence.

You MUST respond with VALID JSON ONLY, with this exact top-level structure:

{
  "diagnoses": [
    {
      "title": "string",
      "description": "string",
      "confidence": 0.82,
      "severity": "low" | "medium" | "high",
      "urgency_hours": 48,
      "safety_concerns": ["string"],
      "trade_required": "string",
      "repair_steps": ["string"],
      "materials_needed": ["string"],
      "estimated_labor_minutes": 60,
      "estimated_material_cost": 120
    }
  ]
}

Rules:
- No commentary before or after the JSON.
- No markdown.
- No code fences.
- If you are unsure about some fields, still fill them with your best professional estimate.`

// DiagnosisInput is everything the final diagnosis prompt draws on.
type DiagnosisInput struct {
	Description string
	Triage      *domain.TriageResult
	Answers     map[string]string
	TenantText  string
	VisionRaw   string
}

// QAText renders the checklist with its answers, one "Q:/A:" pair per item.
func QAText(t *domain.TriageResult, answers map[string]string) string {
	if t == nil || len(t.QuestionsChecklist) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(t.QuestionsChecklist))
	for _, q := range t.QuestionsChecklist {
		blocks = append(blocks, "Q: "+q.Question+"\nA: "+NormalizeAnswer(answers[q.ID]))
	}
	return strings.Join(blocks, "\n\n")
}

// Diagnosis renders the final diagnosis prompt.
func Diagnosis(in DiagnosisInput) Prompt {
	var sb strings.Builder
	sb.WriteString("JOB DESCRIPTION:\n")
	sb.WriteString(strings.TrimSpace(in.Description))
	sb.WriteString("\n\nTRIAGE SUMMARY:\n")
	sb.WriteString(TriageSummary(in.Triage))
	sb.WriteString("\n\nDISPATCHER Q&A:\n")
	sb.WriteString(orDefault(QAText(in.Triage, in.Answers), "No structured Q&A available."))
	sb.WriteString("\n\nTENANT REPLY TEXT:\n")
	sb.WriteString(orDefault(strings.TrimSpace(in.TenantText), "No extra tenant text provided."))
	sb.WriteString("\n\nVISION RECON JSON:\n")
	sb.WriteString(strings.TrimSpace(in.VisionRaw))
	return Prompt{
		Stage:  StageDiagnosis,
		System: diagnosisSystem,
		User:   sb.String(),
		Params: Params{MaxTokens: 1600},
	}
}
