package domain

import "context"

// CaseRepository persists cases. Update is an optimistic write: it succeeds
// only when the stored version equals c.Version, and bumps c.Version on success.
type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id string) (*Case, error)
	Update(ctx context.Context, c *Case) error
	ListRecent(ctx context.Context, limit int) ([]Case, error)
}
