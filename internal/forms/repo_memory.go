package forms

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu          sync.RWMutex
	forms       map[string]Form // id -> form
	submissions []Submission
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{forms: make(map[string]Form)}
}

func (r *MemoryRepo) Create(_ context.Context, f Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[f.ID] = f
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, f Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.forms[f.ID]
	if !ok || cur.WorkspaceID != f.WorkspaceID {
		return ErrNotFound
	}
	r.forms[f.ID] = f
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, workspaceID, id string) (Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[id]
	if !ok || f.WorkspaceID != workspaceID {
		return Form{}, ErrNotFound
	}
	return f, nil
}

func (r *MemoryRepo) GetByPublicKey(_ context.Context, publicKey string) (Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.forms {
		if f.PublicKey == publicKey {
			return f, nil
		}
	}
	return Form{}, ErrNotFound
}

func (r *MemoryRepo) List(_ context.Context, workspaceID string) ([]Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Form
	for _, f := range r.forms {
		if f.WorkspaceID == workspaceID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) AppendSubmission(_ context.Context, s Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, s)
	return nil
}

func (r *MemoryRepo) ListSubmissions(_ context.Context, workspaceID, formID string) ([]Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Submission
	for i := len(r.submissions) - 1; i >= 0; i-- {
		s := r.submissions[i]
		if s.WorkspaceID == workspaceID && s.FormID == formID {
			out = append(out, s)
		}
	}
	return out, nil
}
