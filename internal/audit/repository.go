package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events.
//
// NOTE: This repository assumes an append-only table:
//
//	audit_events (id, workspace_id, type, actor_user_id, actor_role,
//	              ip_address, contact_id, recipe_id, message, metadata, created_at)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, workspace_id, type, actor_user_id, actor_role, ip_address, contact_id, recipe_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.WorkspaceID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		nullIfEmpty(e.ContactID),
		nullIfEmpty(e.RecipeID),
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
