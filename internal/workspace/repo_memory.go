package workspace

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
//
// NOTE: This is not intended for production; use the Postgres implementation.
type MemoryRepo struct {
	mu         sync.Mutex
	Workspaces map[string]Workspace
	MemberRows []Member
	InviteRows []Invite
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{Workspaces: make(map[string]Workspace)}
}

func (r *MemoryRepo) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.Workspaces[workspaceID]
	return w, ok, nil
}

func (r *MemoryRepo) CreateWorkspace(ctx context.Context, w Workspace, firstMember Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Workspaces[w.ID] = w
	r.MemberRows = append(r.MemberRows, firstMember)
	return nil
}

func (r *MemoryRepo) FindMembership(ctx context.Context, userID string) (Member, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.MemberRows {
		if m.UserID == userID {
			return m, true, nil
		}
	}
	return Member{}, false, nil
}

func (r *MemoryRepo) GetMember(ctx context.Context, workspaceID, userID string) (Member, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.MemberRows {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			return m, true, nil
		}
	}
	return Member{}, false, nil
}

func (r *MemoryRepo) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Member
	for _, m := range r.MemberRows {
		if m.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepo) AddMember(ctx context.Context, m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.MemberRows {
		if existing.WorkspaceID == m.WorkspaceID && existing.UserID == m.UserID {
			return nil
		}
	}
	r.MemberRows = append(r.MemberRows, m)
	return nil
}

func (r *MemoryRepo) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.MemberRows[:0]
	for _, m := range r.MemberRows {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			continue
		}
		out = append(out, m)
	}
	r.MemberRows = out
	return nil
}

func (r *MemoryRepo) FindInviteByEmail(ctx context.Context, email string) (Invite, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, inv := range r.InviteRows {
		if inv.Email == normalized {
			return inv, true, nil
		}
	}
	return Invite{}, false, nil
}

func (r *MemoryRepo) ListInvites(ctx context.Context, workspaceID string) ([]Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invite
	for _, inv := range r.InviteRows {
		if inv.WorkspaceID == workspaceID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CreateInvite(ctx context.Context, inv Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.InviteRows = append(r.InviteRows, inv)
	return nil
}

func (r *MemoryRepo) DeleteInvite(ctx context.Context, workspaceID, inviteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.InviteRows[:0]
	for _, inv := range r.InviteRows {
		if inv.WorkspaceID == workspaceID && inv.ID == inviteID {
			continue
		}
		out = append(out, inv)
	}
	r.InviteRows = out
	return nil
}
