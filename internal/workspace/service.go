package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("workspace: not found")
	ErrInvalidArgument = errors.New("workspace: invalid argument")
	ErrUserLimit       = errors.New("workspace: plan user limit reached")
)

// Repository abstracts workspace persistence.
//
// Tenancy invariant: member/invite reads are keyed by workspace_id or by the
// globally unique user_id/email; there is no cross-workspace listing.
type Repository interface {
	GetWorkspace(ctx context.Context, workspaceID string) (Workspace, bool, error)
	CreateWorkspace(ctx context.Context, w Workspace, firstMember Member) error

	FindMembership(ctx context.Context, userID string) (Member, bool, error)
	GetMember(ctx context.Context, workspaceID, userID string) (Member, bool, error)
	ListMembers(ctx context.Context, workspaceID string) ([]Member, error)
	AddMember(ctx context.Context, m Member) error
	RemoveMember(ctx context.Context, workspaceID, userID string) error

	FindInviteByEmail(ctx context.Context, email string) (Invite, bool, error)
	ListInvites(ctx context.Context, workspaceID string) ([]Invite, error)
	CreateInvite(ctx context.Context, inv Invite) error
	DeleteInvite(ctx context.Context, workspaceID, inviteID string) error
}

// Service resolves and manages workspaces.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// EnsureForUser resolves the user's workspace, creating one if needed.
// Resolution order:
//  1. existing membership
//  2. pending invite matching the user's email (consumed on join)
//  3. fresh FREE workspace with the user as admin
func (s *Service) EnsureForUser(ctx context.Context, userID, email string) (string, error) {
	if userID == "" {
		return "", ErrInvalidArgument
	}

	if m, ok, err := s.repo.FindMembership(ctx, userID); err != nil {
		return "", err
	} else if ok {
		return m.WorkspaceID, nil
	}

	now := s.clock().UTC()

	if normalized := strings.ToLower(strings.TrimSpace(email)); normalized != "" {
		inv, ok, err := s.repo.FindInviteByEmail(ctx, normalized)
		if err != nil {
			return "", err
		}
		if ok {
			member := Member{
				ID:          uuid.NewString(),
				WorkspaceID: inv.WorkspaceID,
				UserID:      userID,
				Role:        inv.Role,
				CreatedAt:   now,
			}
			if err := s.repo.AddMember(ctx, member); err != nil {
				return "", err
			}
			// Best effort: a leftover invite row only re-adds the same member.
			_ = s.repo.DeleteInvite(ctx, inv.WorkspaceID, inv.ID)
			return inv.WorkspaceID, nil
		}
	}

	w := Workspace{
		ID:        uuid.NewString(),
		Name:      "My workspace",
		Plan:      TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	first := Member{
		ID:          uuid.NewString(),
		WorkspaceID: w.ID,
		UserID:      userID,
		Role:        MemberRoleAdmin,
		CreatedAt:   now,
	}
	if err := s.repo.CreateWorkspace(ctx, w, first); err != nil {
		return "", err
	}
	return w.ID, nil
}

// IsAdmin reports whether the user can manage the workspace.
// On the FREE plan the single user is always admin.
func (s *Service) IsAdmin(ctx context.Context, workspaceID, userID string) (bool, error) {
	if workspaceID == "" || userID == "" {
		return false, ErrInvalidArgument
	}
	m, ok, err := s.repo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	w, ok, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	if ok && w.Plan == TierFree {
		return true, nil
	}
	return m.Role == MemberRoleAdmin, nil
}

func (s *Service) Get(ctx context.Context, workspaceID string) (Workspace, error) {
	w, ok, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Workspace{}, err
	}
	if !ok {
		return Workspace{}, ErrNotFound
	}
	return w, nil
}

func (s *Service) Members(ctx context.Context, workspaceID string) ([]Member, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListMembers(ctx, workspaceID)
}

// UserIDs returns all member user ids, used for cross-user reporting queries
// (e.g. emails sent per user).
func (s *Service) UserIDs(ctx context.Context, workspaceID string) ([]string, error) {
	members, err := s.Members(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.UserID)
	}
	return out, nil
}

func (s *Service) Invites(ctx context.Context, workspaceID string) ([]Invite, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListInvites(ctx, workspaceID)
}

// Invite creates a pending invite, enforcing the plan's user limit against
// current members plus outstanding invites.
func (s *Service) Invite(ctx context.Context, workspaceID, email string, role MemberRole) (Invite, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if workspaceID == "" || normalized == "" {
		return Invite{}, ErrInvalidArgument
	}
	if role != MemberRoleAdmin && role != MemberRoleMember {
		return Invite{}, ErrInvalidArgument
	}

	w, ok, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Invite{}, err
	}
	if !ok {
		return Invite{}, ErrNotFound
	}

	members, err := s.repo.ListMembers(ctx, workspaceID)
	if err != nil {
		return Invite{}, err
	}
	invites, err := s.repo.ListInvites(ctx, workspaceID)
	if err != nil {
		return Invite{}, err
	}
	if len(members)+len(invites)+1 > GetPlanLimits(w.Plan).Users {
		return Invite{}, ErrUserLimit
	}

	inv := Invite{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Email:       normalized,
		Role:        role,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.repo.CreateInvite(ctx, inv); err != nil {
		return Invite{}, err
	}
	return inv, nil
}

func (s *Service) RevokeInvite(ctx context.Context, workspaceID, inviteID string) error {
	if workspaceID == "" || inviteID == "" {
		return ErrInvalidArgument
	}
	return s.repo.DeleteInvite(ctx, workspaceID, inviteID)
}

func (s *Service) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	if workspaceID == "" || userID == "" {
		return ErrInvalidArgument
	}
	return s.repo.RemoveMember(ctx, workspaceID, userID)
}
