package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/infra"
	"github.com/classafix/caf-copilot/internal/sqlinline"
)

// CaseRepositoryPG implements domain.CaseRepository on the cases table. Stage
// results are stored as jsonb documents.
type CaseRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCaseRepository(sql infra.SQLExecutor) *CaseRepositoryPG {
	return &CaseRepositoryPG{sql: sql}
}

// Create inserts a new case and sets its initial version.
func (r *CaseRepositoryPG) Create(ctx context.Context, c *domain.Case) error {
	media, err := json.Marshal(nonNilMedia(c.Media))
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}
	var externalID string
	if c.ExternalJobID != nil {
		externalID = *c.ExternalJobID
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCase,
		c.ID,
		externalID,
		c.Title,
		c.Description,
		media,
		string(c.Status),
		c.CreatedAt,
	)
	if err := row.Scan(&c.Version); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// GetByID fetches a case by its identifier.
func (r *CaseRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	c, err := scanCase(r.sql.QueryRow(ctx, sqlinline.QSelectCaseByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update writes c if the stored version equals c.Version and bumps it.
func (r *CaseRepositoryPG) Update(ctx context.Context, c *domain.Case) error {
	docs, err := encodeStages(c)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateCase,
		c.ID,
		c.Version,
		c.Title,
		c.Description,
		docs.triage,
		docs.answers,
		c.TenantText,
		c.VisionContext,
		docs.vision,
		docs.diagnosis,
		docs.pricing,
		docs.quote,
		docs.media,
		string(c.Status),
		c.UpdatedAt,
	)
	var version int
	if err := row.Scan(&version); err != nil {
		if !infra.IsNoRows(err) {
			return fmt.Errorf("update case: %w", err)
		}
		if _, getErr := r.GetByID(ctx, c.ID); getErr != nil {
			return getErr
		}
		return domain.ErrConflict
	}
	c.Version = version
	return nil
}

// ListRecent returns cases newest first.
func (r *CaseRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Case, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentCases, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type stageDocs struct {
	triage, answers, vision, diagnosis, pricing, quote, media []byte
}

func encodeStages(c *domain.Case) (stageDocs, error) {
	var (
		d   stageDocs
		err error
	)
	if d.triage, err = jsonOrNil(c.Triage); err != nil {
		return d, fmt.Errorf("encode triage: %w", err)
	}
	if c.Answers != nil {
		if d.answers, err = json.Marshal(c.Answers); err != nil {
			return d, fmt.Errorf("encode answers: %w", err)
		}
	}
	if d.vision, err = jsonOrNil(c.Vision); err != nil {
		return d, fmt.Errorf("encode vision: %w", err)
	}
	if d.diagnosis, err = jsonOrNil(c.Diagnosis); err != nil {
		return d, fmt.Errorf("encode diagnosis: %w", err)
	}
	if d.pricing, err = jsonOrNil(c.Pricing); err != nil {
		return d, fmt.Errorf("encode pricing: %w", err)
	}
	if d.quote, err = jsonOrNil(c.QuoteAnalysis); err != nil {
		return d, fmt.Errorf("encode quote analysis: %w", err)
	}
	if d.media, err = json.Marshal(nonNilMedia(c.Media)); err != nil {
		return d, fmt.Errorf("encode media: %w", err)
	}
	return d, nil
}

func scanCase(row pgx.Row) (*domain.Case, error) {
	var (
		c                                                              domain.Case
		status                                                         string
		triage, answers, vision, diagnosis, pricing, quote, mediaBytes []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.ExternalJobID,
		&c.Title,
		&c.Description,
		&triage,
		&answers,
		&c.TenantText,
		&c.VisionContext,
		&vision,
		&diagnosis,
		&pricing,
		&quote,
		&mediaBytes,
		&status,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = domain.CaseStatus(status)

	var err error
	if c.Triage, err = decodeDoc[domain.TriageResult](triage); err != nil {
		return nil, fmt.Errorf("decode triage: %w", err)
	}
	if c.Vision, err = decodeDoc[domain.VisionRecon](vision); err != nil {
		return nil, fmt.Errorf("decode vision: %w", err)
	}
	if c.Diagnosis, err = decodeDoc[domain.DiagnosisSet](diagnosis); err != nil {
		return nil, fmt.Errorf("decode diagnosis: %w", err)
	}
	if c.Pricing, err = decodeDoc[domain.PricingRecommendation](pricing); err != nil {
		return nil, fmt.Errorf("decode pricing: %w", err)
	}
	if c.QuoteAnalysis, err = decodeDoc[domain.QuoteAnalysis](quote); err != nil {
		return nil, fmt.Errorf("decode quote analysis: %w", err)
	}
	if m, err := decodeDoc[map[string]string](answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	} else if m != nil {
		c.Answers = *m
	}
	c.Media = []domain.Media{}
	if len(mediaBytes) > 0 {
		if err := json.Unmarshal(mediaBytes, &c.Media); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
	}
	return &c, nil
}

func jsonOrNil[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeDoc[T any](raw []byte) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func nonNilMedia(m []domain.Media) []domain.Media {
	if m == nil {
		return []domain.Media{}
	}
	return m
}
