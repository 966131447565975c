package cases

import (
	"context"
	"sort"
	"sync"

	"github.com/classafix/caf-copilot/internal/domain"
)

type memRepo struct {
	mu          sync.Mutex
	cases       map[string]*domain.Case
	updates     int
	beforeWrite func()
}

func newMemRepo() *memRepo {
	return &memRepo{cases: map[string]*domain.Case{}}
}

func (r *memRepo) Create(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Version = 1
	r.cases[c.ID] = c.Clone()
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *memRepo) Update(ctx context.Context, c *domain.Case) error {
	if hook := r.beforeWrite; hook != nil {
		r.beforeWrite = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != c.Version {
		return domain.ErrConflict
	}
	c.Version++
	r.updates++
	r.cases[c.ID] = c.Clone()
	return nil
}

func (r *memRepo) ListRecent(ctx context.Context, limit int) ([]domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, *c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
