package email

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresAccountRepo struct {
	db *sql.DB
}

func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const upsertAccountSQL = `
INSERT INTO email_accounts
	(id, user_id, workspace_id, provider, email, access_token, refresh_token, token_expiry, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) DO UPDATE SET
	email = EXCLUDED.email,
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	token_expiry = EXCLUDED.token_expiry,
	updated_at = EXCLUDED.updated_at`

func (r *PostgresAccountRepo) Upsert(ctx context.Context, acc ConnectedAccount) error {
	_, err := r.db.ExecContext(ctx, upsertAccountSQL,
		acc.ID, acc.UserID, acc.WorkspaceID, acc.Provider, acc.Email,
		acc.AccessToken, acc.RefreshToken, acc.TokenExpiry, acc.CreatedAt, acc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert email account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) GetByUser(ctx context.Context, userID string) (ConnectedAccount, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, workspace_id, provider, email, access_token, refresh_token,
			token_expiry, created_at, updated_at
		 FROM email_accounts WHERE user_id = $1`,
		userID)
	var acc ConnectedAccount
	err := row.Scan(
		&acc.ID, &acc.UserID, &acc.WorkspaceID, &acc.Provider, &acc.Email,
		&acc.AccessToken, &acc.RefreshToken, &acc.TokenExpiry, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ConnectedAccount{}, false, nil
	}
	if err != nil {
		return ConnectedAccount{}, false, fmt.Errorf("get email account: %w", err)
	}
	return acc, true, nil
}

func (r *PostgresAccountRepo) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM email_accounts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete email account: %w", err)
	}
	return nil
}

type PostgresRecordRepo struct {
	db *sql.DB
}

func NewPostgresRecordRepo(db *sql.DB) *PostgresRecordRepo {
	return &PostgresRecordRepo{db: db}
}

func (r *PostgresRecordRepo) Append(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_records (id, workspace_id, user_id, to_addr, subject, template_id, status, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.WorkspaceID, rec.UserID, rec.To, rec.Subject, rec.TemplateID, rec.Status, rec.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert email record: %w", err)
	}
	return nil
}

func (r *PostgresRecordRepo) List(ctx context.Context, workspaceID, userID string, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, user_id, to_addr, subject, template_id, status, sent_at
		 FROM email_records
		 WHERE workspace_id = $1 AND ($2 = '' OR user_id = $2)
		 ORDER BY sent_at DESC LIMIT $3`,
		workspaceID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list email records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.WorkspaceID, &rec.UserID, &rec.To, &rec.Subject,
			&rec.TemplateID, &rec.Status, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan email record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
