package deals

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	deals map[string]Deal
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{deals: make(map[string]Deal)}
}

func (r *MemoryRepo) Create(_ context.Context, d Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deals[d.ID] = d
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, d Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.deals[d.ID]
	if !ok || cur.WorkspaceID != d.WorkspaceID {
		return ErrNotFound
	}
	r.deals[d.ID] = d
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, workspaceID, id string) (Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deals[id]
	if !ok || d.WorkspaceID != workspaceID {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) List(_ context.Context, workspaceID string, f ListFilter) ([]Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Deal
	for _, d := range r.deals {
		if d.WorkspaceID != workspaceID {
			continue
		}
		if f.Stage != nil && d.Stage != *f.Stage {
			continue
		}
		if f.ContactID != "" && d.ContactID != f.ContactID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
