package domain

import (
	"strings"
	"time"
)

// CaseStatus enumerates the pipeline progress of a case.
type CaseStatus string

const (
	CaseStatusNew       CaseStatus = "new"
	CaseStatusTriaged   CaseStatus = "triaged"
	CaseStatusVisioned  CaseStatus = "visioned"
	CaseStatusDiagnosed CaseStatus = "diagnosed"
	CaseStatusPriced    CaseStatus = "priced"
)

// UntitledCase is the title a case carries until triage has run.
const UntitledCase = "Untitled Case"

// Rank orders statuses along the pipeline. Unknown statuses rank below new.
func (s CaseStatus) Rank() int {
	switch s {
	case CaseStatusNew:
		return 0
	case CaseStatusTriaged:
		return 1
	case CaseStatusVisioned:
		return 2
	case CaseStatusDiagnosed:
		return 3
	case CaseStatusPriced:
		return 4
	default:
		return -1
	}
}

// Media is an uploaded piece of evidence attached to a case.
type Media struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// IsImage reports whether the media item can be handed to a vision model.
func (m Media) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.ContentType)), "image/")
}

// ImageMedia filters media down to image items, preserving order.
func ImageMedia(items []Media) []Media {
	var out []Media
	for _, m := range items {
		if m.IsImage() && strings.TrimSpace(m.URL) != "" {
			out = append(out, m)
		}
	}
	return out
}

// Case is the record every pipeline stage enriches. Stage fields are nil until
// the corresponding stage succeeds.
type Case struct {
	ID            string                 `json:"id"`
	ExternalJobID *string                `json:"external_job_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Triage        *TriageResult          `json:"triage"`
	Answers       map[string]string      `json:"answers"`
	TenantText    string                 `json:"tenant_text"`
	VisionContext string                 `json:"vision_context"`
	Vision        *VisionRecon           `json:"vision"`
	Diagnosis     *DiagnosisSet          `json:"diagnosis"`
	Pricing       *PricingRecommendation `json:"pricing"`
	QuoteAnalysis *QuoteAnalysis         `json:"quote_analysis"`
	Media         []Media                `json:"media"`
	Status        CaseStatus             `json:"status"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Clone returns a deep enough copy for read-modify-write: slices and maps are
// copied, stage results are shared because they are replaced, never mutated.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	if c.ExternalJobID != nil {
		id := *c.ExternalJobID
		out.ExternalJobID = &id
	}
	if c.Media != nil {
		out.Media = append([]Media(nil), c.Media...)
	}
	if c.Answers != nil {
		out.Answers = make(map[string]string, len(c.Answers))
		for k, v := range c.Answers {
			out.Answers[k] = v
		}
	}
	return &out
}
