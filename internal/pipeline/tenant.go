package pipeline

import (
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/prompts"
)

const (
	tenantGreeting    = "Hi, could you please clarify the following so we can diagnose the issue properly:\n\n"
	tenantSignoff     = "\n\nThank you!"
	tenantAllAnswered = "All items have been answered — nothing extra to send to tenant."
)

// UnansweredQuestions returns the checklist items still lacking an answer, in
// checklist order.
func UnansweredQuestions(t *domain.TriageResult, answers map[string]string) []domain.QuestionItem {
	if t == nil {
		return nil
	}
	var out []domain.QuestionItem
	for _, q := range t.QuestionsChecklist {
		if prompts.IsUnanswered(answers[q.ID]) {
			out = append(out, q)
		}
	}
	return out
}

// TenantMessage composes a single clarification message covering every
// unanswered checklist item.
func TenantMessage(t *domain.TriageResult, answers map[string]string) string {
	pending := UnansweredQuestions(t, answers)
	if len(pending) == 0 {
		return tenantAllAnswered
	}
	lines := make([]string, 0, len(pending))
	for _, q := range pending {
		lines = append(lines, "• "+q.Question)
	}
	return tenantGreeting + strings.Join(lines, "\n") + tenantSignoff
}
