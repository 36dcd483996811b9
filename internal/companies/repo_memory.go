package companies

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	Rows map[string]Company
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{Rows: make(map[string]Company)} }

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, companyID string) (Company, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Rows[companyID]
	if !ok || c.WorkspaceID != workspaceID {
		return Company{}, false, nil
	}
	return c, true, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string) ([]Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Company
	for _, c := range r.Rows {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Create(ctx context.Context, c Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rows[c.ID] = c
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rows[c.ID] = c
	return nil
}
