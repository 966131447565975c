// Package cases applies stage results to the case record and exposes the
// case operations used by the HTTP API and the CLI.
package cases

import (
	"strings"
	"time"
	"unicode/utf8"

	textcases "golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/classafix/caf-copilot/internal/domain"
)

const titleSummaryRunes = 60

// StageResult is one successful stage output ready to be applied to a case.
type StageResult interface {
	stageName() string
}

type TriageApplied struct {
	Description string
	Result      *domain.TriageResult
}

type VisionApplied struct {
	Context string
	Media   []domain.Media
	Result  *domain.VisionRecon
}

type DiagnosisApplied struct {
	Answers    map[string]string
	TenantText string
	Result     *domain.DiagnosisSet
}

type PricingApplied struct {
	Result *domain.PricingRecommendation
}

type QuoteApplied struct {
	Result *domain.QuoteAnalysis
}

func (TriageApplied) stageName() string    { return "triage" }
func (VisionApplied) stageName() string    { return "vision" }
func (DiagnosisApplied) stageName() string { return "diagnosis" }
func (PricingApplied) stageName() string   { return "pricing" }
func (QuoteApplied) stageName() string     { return "quote_analysis" }

// Apply returns a copy of c with r written in. Every later stage is cleared
// first; media are never cleared.
func Apply(c *domain.Case, r StageResult, now time.Time) *domain.Case {
	out := c.Clone()
	switch res := r.(type) {
	case TriageApplied:
		clearFromVision(out)
		if strings.TrimSpace(res.Description) != "" {
			out.Description = strings.TrimSpace(res.Description)
		}
		out.Triage = res.Result
		out.Status = domain.CaseStatusTriaged
	case VisionApplied:
		clearFromDiagnosis(out)
		out.Vision = res.Result
		out.VisionContext = res.Context
		out.Media = mergeMedia(out.Media, res.Media)
		if out.Triage != nil {
			out.Status = domain.CaseStatusVisioned
		}
	case DiagnosisApplied:
		clearFromPricing(out)
		out.Diagnosis = res.Result
		out.Answers = res.Answers
		out.TenantText = res.TenantText
		out.Status = domain.CaseStatusDiagnosed
	case PricingApplied:
		out.Pricing = res.Result
		out.Status = domain.CaseStatusPriced
	case QuoteApplied:
		out.QuoteAnalysis = res.Result
	}
	out.Title = DeriveTitle(out)
	out.UpdatedAt = now
	return out
}

func clearFromVision(c *domain.Case) {
	c.Vision = nil
	c.VisionContext = ""
	clearFromDiagnosis(c)
}

func clearFromDiagnosis(c *domain.Case) {
	c.Diagnosis = nil
	clearFromPricing(c)
}

func clearFromPricing(c *domain.Case) {
	c.Pricing = nil
	c.QuoteAnalysis = nil
}

// mergeMedia appends items whose URL is not attached yet.
func mergeMedia(existing, incoming []domain.Media) []domain.Media {
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.URL] = struct{}{}
	}
	out := existing
	for _, m := range incoming {
		if _, ok := seen[m.URL]; ok || strings.TrimSpace(m.URL) == "" {
			continue
		}
		seen[m.URL] = struct{}{}
		out = append(out, m)
	}
	return out
}

// DeriveTitle computes the case title from its triage. Without triage the
// current title, or the placeholder, is kept.
func DeriveTitle(c *domain.Case) string {
	if c.Triage == nil {
		if strings.TrimSpace(c.Title) == "" {
			return domain.UntitledCase
		}
		return c.Title
	}
	category := strings.TrimSpace(c.Triage.Category)
	if category == "" {
		category = "General"
	} else if category == strings.ToLower(category) {
		category = textcases.Title(language.English).String(category)
	}
	summary := truncateRunes(strings.Join(strings.Fields(c.Triage.Summary), " "), titleSummaryRunes)
	if summary == "" {
		summary = "No summary"
	}
	title := category + ": " + summary
	if c.ExternalJobID != nil && strings.TrimSpace(*c.ExternalJobID) != "" {
		title = "[" + strings.TrimSpace(*c.ExternalJobID) + "] " + title
	}
	return title
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
