package deals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const dealColumns = `id, workspace_id, contact_id, title, value_minor, currency, stage,
created_at, updated_at, closed_at`

func scanDeal(row interface{ Scan(...any) error }) (Deal, error) {
	var d Deal
	var closedAt sql.NullTime
	err := row.Scan(
		&d.ID, &d.WorkspaceID, &d.ContactID, &d.Title, &d.ValueMinor, &d.Currency, &d.Stage,
		&d.CreatedAt, &d.UpdatedAt, &closedAt,
	)
	if err != nil {
		return Deal{}, err
	}
	if closedAt.Valid {
		t := closedAt.Time
		d.ClosedAt = &t
	}
	return d, nil
}

func (r *PostgresRepo) Create(ctx context.Context, d Deal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deals (`+dealColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.WorkspaceID, d.ContactID, d.Title, d.ValueMinor, d.Currency, d.Stage,
		d.CreatedAt, d.UpdatedAt, d.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, d Deal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deals SET title = $3, value_minor = $4, stage = $5, updated_at = $6, closed_at = $7
		 WHERE workspace_id = $1 AND id = $2`,
		d.WorkspaceID, d.ID, d.Title, d.ValueMinor, d.Stage, d.UpdatedAt, d.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Deal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return d, err
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, f ListFilter) ([]Deal, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + dealColumns + ` FROM deals WHERE workspace_id = $1`)
	args := []any{workspaceID}
	if f.Stage != nil {
		args = append(args, *f.Stage)
		fmt.Fprintf(&sb, " AND stage = $%d", len(args))
	}
	if f.ContactID != "" {
		args = append(args, f.ContactID)
		fmt.Fprintf(&sb, " AND contact_id = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var out []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
