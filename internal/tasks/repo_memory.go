package tasks

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: make(map[string]Task)}
}

func (r *MemoryRepo) Create(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[t.ID]
	if !ok || cur.WorkspaceID != t.WorkspaceID {
		return ErrNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, workspaceID, id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok || t.WorkspaceID != workspaceID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) List(_ context.Context, workspaceID string, f ListFilter) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Task
	for _, t := range r.tasks {
		if t.WorkspaceID != workspaceID {
			continue
		}
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.ContactID != "" && t.ContactID != f.ContactID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.DueBefore != nil {
			if t.DueAt == nil || t.DueAt.After(*f.DueBefore) {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueAt == nil && b.DueAt == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		default:
			return a.DueAt.Before(*b.DueAt)
		}
	})
	return out, nil
}

type MemoryActivityRepo struct {
	mu   sync.RWMutex
	rows []Activity
}

func NewMemoryActivityRepo() *MemoryActivityRepo {
	return &MemoryActivityRepo{}
}

func (r *MemoryActivityRepo) Append(_ context.Context, a Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, a)
	return nil
}

func (r *MemoryActivityRepo) List(_ context.Context, workspaceID string, f ActivityFilter) ([]Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Activity
	for _, a := range r.rows {
		if a.WorkspaceID != workspaceID {
			continue
		}
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.ContactID != "" && a.ContactID != f.ContactID {
			continue
		}
		if f.Since != nil && a.OccurredAt.Before(*f.Since) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}
