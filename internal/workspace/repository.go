package workspace

import (
	"context"
	"database/sql"
	"errors"

	"bell-crm/pkg/utils"
)

// PostgresRepo persists workspaces, memberships and invites.
//
// NOTE: This repository assumes the following tables exist:
// - workspaces (id, name, plan, created_at, updated_at)
// - workspace_members (id, workspace_id, user_id, role, created_at)
//   with UNIQUE (workspace_id, user_id)
// - workspace_invites (id, workspace_id, email, role, created_at)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, bool, error) {
	const q = `
SELECT id, name, plan, created_at, updated_at
FROM workspaces
WHERE id = $1
`
	var w Workspace
	err := r.db.QueryRowContext(ctx, q, workspaceID).Scan(&w.ID, &w.Name, &w.Plan, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Workspace{}, false, nil
	}
	if err != nil {
		return Workspace{}, false, err
	}
	return w, true, nil
}

func (r *PostgresRepo) CreateWorkspace(ctx context.Context, w Workspace, firstMember Member) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const insertWorkspace = `
INSERT INTO workspaces (id, name, plan, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`
		if _, err := tx.ExecContext(ctx, insertWorkspace, w.ID, w.Name, w.Plan, w.CreatedAt, w.UpdatedAt); err != nil {
			return err
		}
		const insertMember = `
INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
VALUES ($1, $2, $3, $4, $5)
`
		_, err := tx.ExecContext(ctx, insertMember, firstMember.ID, firstMember.WorkspaceID, firstMember.UserID, firstMember.Role, firstMember.CreatedAt)
		return err
	})
}

func (r *PostgresRepo) FindMembership(ctx context.Context, userID string) (Member, bool, error) {
	const q = `
SELECT id, workspace_id, user_id, role, created_at
FROM workspace_members
WHERE user_id = $1
ORDER BY created_at ASC
LIMIT 1
`
	var m Member
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, false, nil
	}
	if err != nil {
		return Member{}, false, err
	}
	return m, true, nil
}

func (r *PostgresRepo) GetMember(ctx context.Context, workspaceID, userID string) (Member, bool, error) {
	const q = `
SELECT id, workspace_id, user_id, role, created_at
FROM workspace_members
WHERE workspace_id = $1 AND user_id = $2
`
	var m Member
	err := r.db.QueryRowContext(ctx, q, workspaceID, userID).Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, false, nil
	}
	if err != nil {
		return Member{}, false, err
	}
	return m, true, nil
}

func (r *PostgresRepo) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	const q = `
SELECT id, workspace_id, user_id, role, created_at
FROM workspace_members
WHERE workspace_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) AddMember(ctx context.Context, m Member) error {
	const q = `
INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (workspace_id, user_id) DO NOTHING
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.WorkspaceID, m.UserID, m.Role, m.CreatedAt)
	return err
}

func (r *PostgresRepo) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	const q = `
DELETE FROM workspace_members
WHERE workspace_id = $1 AND user_id = $2
`
	_, err := r.db.ExecContext(ctx, q, workspaceID, userID)
	return err
}

func (r *PostgresRepo) FindInviteByEmail(ctx context.Context, email string) (Invite, bool, error) {
	const q = `
SELECT id, workspace_id, email, role, created_at
FROM workspace_invites
WHERE lower(email) = lower($1)
ORDER BY created_at ASC
LIMIT 1
`
	var inv Invite
	err := r.db.QueryRowContext(ctx, q, email).Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Invite{}, false, nil
	}
	if err != nil {
		return Invite{}, false, err
	}
	return inv, true, nil
}

func (r *PostgresRepo) ListInvites(ctx context.Context, workspaceID string) ([]Invite, error) {
	const q = `
SELECT id, workspace_id, email, role, created_at
FROM workspace_invites
WHERE workspace_id = $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invite
	for rows.Next() {
		var inv Invite
		if err := rows.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateInvite(ctx context.Context, inv Invite) error {
	const q = `
INSERT INTO workspace_invites (id, workspace_id, email, role, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.db.ExecContext(ctx, q, inv.ID, inv.WorkspaceID, inv.Email, inv.Role, inv.CreatedAt)
	return err
}

func (r *PostgresRepo) DeleteInvite(ctx context.Context, workspaceID, inviteID string) error {
	const q = `
DELETE FROM workspace_invites
WHERE workspace_id = $1 AND id = $2
`
	_, err := r.db.ExecContext(ctx, q, workspaceID, inviteID)
	return err
}
