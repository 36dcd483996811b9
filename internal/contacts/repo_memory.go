package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bell-crm/internal/funnel"
)

// MemoryRepo is an in-memory Repository for tests and local development.
type MemoryRepo struct {
	mu       sync.RWMutex
	contacts map[string]Contact // id -> contact
	history  map[string][]StageChange
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		contacts: make(map[string]Contact),
		history:  make(map[string][]StageChange),
	}
}

func (r *MemoryRepo) Create(_ context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.contacts[c.ID]
	if !ok || cur.WorkspaceID != c.WorkspaceID {
		return ErrNotFound
	}
	r.contacts[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, workspaceID, id string) (Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[id]
	if !ok || c.WorkspaceID != workspaceID {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, workspaceID, email string) (Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.contacts {
		if c.WorkspaceID == workspaceID && strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return Contact{}, ErrNotFound
}

func (r *MemoryRepo) List(_ context.Context, workspaceID string, f ListFilter) ([]Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Contact
	for _, c := range r.contacts {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if f.Stage != nil && c.FunnelStage != *f.Stage {
			continue
		}
		if f.PersonType != nil && c.PersonType != *f.PersonType {
			continue
		}
		if f.CompanyID != "" && c.CompanyID != f.CompanyID {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			hay := strings.ToLower(c.DisplayName() + " " + c.Email)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) DeleteMany(_ context.Context, workspaceID string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c, ok := r.contacts[id]; ok && c.WorkspaceID == workspaceID {
			delete(r.contacts, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) MoveStage(_ context.Context, workspaceID, id string, to funnel.Stage, now time.Time) (funnel.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok || c.WorkspaceID != workspaceID {
		return "", ErrNotFound
	}
	from := c.FunnelStage
	if from == to {
		return from, nil
	}
	c.FunnelStage = to
	if to == funnel.StageAction {
		c.PersonType = PersonCustomer
	}
	c.UpdatedAt = now
	r.contacts[id] = c
	r.history[id] = append(r.history[id], StageChange{
		ID:        uuid.NewString(),
		ContactID: id,
		FromStage: from,
		ToStage:   to,
		ChangedAt: now,
	})
	return from, nil
}

func (r *MemoryRepo) StageHistory(_ context.Context, workspaceID, id string) ([]StageChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[id]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	out := make([]StageChange, len(r.history[id]))
	copy(out, r.history[id])
	return out, nil
}
