package workspace

import (
	"context"
	"testing"
	"time"
)

func fixedClock() time.Time { return time.Unix(1700000000, 0).UTC() }

func TestEnsureForUser_CreatesFreeWorkspaceAsAdmin(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = fixedClock

	id, err := svc.EnsureForUser(context.Background(), "user-1", "jane@example.com")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if id == "" {
		t.Fatalf("expected workspace id")
	}

	w, ok, _ := repo.GetWorkspace(context.Background(), id)
	if !ok || w.Plan != TierFree {
		t.Fatalf("expected FREE workspace, got %+v", w)
	}
	m, ok, _ := repo.GetMember(context.Background(), id, "user-1")
	if !ok || m.Role != MemberRoleAdmin {
		t.Fatalf("expected admin membership, got %+v", m)
	}

	// Second call resolves the same workspace.
	again, err := svc.EnsureForUser(context.Background(), "user-1", "jane@example.com")
	if err != nil || again != id {
		t.Fatalf("expected stable workspace id, got %q err=%v", again, err)
	}
}

func TestEnsureForUser_ConsumesPendingInvite(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = fixedClock

	// Existing workspace with an invite for bob.
	ownerWs, err := svc.EnsureForUser(context.Background(), "owner", "owner@example.com")
	if err != nil {
		t.Fatalf("ensure owner: %v", err)
	}
	if err := repo.CreateInvite(context.Background(), Invite{
		ID: "inv-1", WorkspaceID: ownerWs, Email: "bob@example.com", Role: MemberRoleMember, CreatedAt: fixedClock(),
	}); err != nil {
		t.Fatalf("invite: %v", err)
	}

	got, err := svc.EnsureForUser(context.Background(), "bob", "Bob@Example.com")
	if err != nil {
		t.Fatalf("ensure bob: %v", err)
	}
	if got != ownerWs {
		t.Fatalf("expected bob to join %q, got %q", ownerWs, got)
	}
	if invites, _ := repo.ListInvites(context.Background(), ownerWs); len(invites) != 0 {
		t.Fatalf("expected invite consumed, got %d", len(invites))
	}
	m, ok, _ := repo.GetMember(context.Background(), ownerWs, "bob")
	if !ok || m.Role != MemberRoleMember {
		t.Fatalf("expected member role, got %+v", m)
	}
}

func TestIsAdmin_FreePlanAlwaysAdmin(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = fixedClock

	id, _ := svc.EnsureForUser(context.Background(), "solo", "solo@example.com")

	// Even a MEMBER row is admin on FREE.
	_ = repo.RemoveMember(context.Background(), id, "solo")
	_ = repo.AddMember(context.Background(), Member{ID: "m2", WorkspaceID: id, UserID: "solo", Role: MemberRoleMember, CreatedAt: fixedClock()})

	ok, err := svc.IsAdmin(context.Background(), id, "solo")
	if err != nil || !ok {
		t.Fatalf("expected admin on free plan, got %v err=%v", ok, err)
	}
}

func TestInvite_EnforcesPlanUserLimit(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = fixedClock

	id, _ := svc.EnsureForUser(context.Background(), "solo", "solo@example.com")

	// FREE allows a single user; the first invite must be rejected.
	if _, err := svc.Invite(context.Background(), id, "new@example.com", MemberRoleMember); err != ErrUserLimit {
		t.Fatalf("expected ErrUserLimit, got %v", err)
	}

	// Upgrade to STARTER and retry.
	w := repo.Workspaces[id]
	w.Plan = TierStarter
	repo.Workspaces[id] = w

	inv, err := svc.Invite(context.Background(), id, "New@Example.com", MemberRoleMember)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", inv.Email)
	}
}
