package tasks

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

const taskColumns = `id, workspace_id, user_id, contact_id, deal_id, title, notes, status,
origin, due_at, completed_at, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	var contactID, dealID sql.NullString
	var dueAt, completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.WorkspaceID, &t.UserID, &contactID, &dealID, &t.Title, &t.Notes, &t.Status,
		&t.Origin, &dueAt, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	t.ContactID = contactID.String
	t.DealID = dealID.String
	if dueAt.Valid {
		d := dueAt.Time
		t.DueAt = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return t, nil
}

func (r *PostgresRepo) Create(ctx context.Context, t Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.WorkspaceID, t.UserID, nullIfEmpty(t.ContactID), nullIfEmpty(t.DealID),
		t.Title, t.Notes, t.Status, t.Origin, t.DueAt, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, t Task) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $3, notes = $4, status = $5, due_at = $6,
			completed_at = $7, updated_at = $8
		 WHERE workspace_id = $1 AND id = $2`,
		t.WorkspaceID, t.ID, t.Title, t.Notes, t.Status, t.DueAt, t.CompletedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
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

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, f ListFilter) ([]Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE workspace_id = $1`)
	args := []any{workspaceID}
	if f.UserID != "" {
		args = append(args, f.UserID)
		fmt.Fprintf(&sb, " AND user_id = $%d", len(args))
	}
	if f.ContactID != "" {
		args = append(args, f.ContactID)
		fmt.Fprintf(&sb, " AND contact_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if f.DueBefore != nil {
		args = append(args, *f.DueBefore)
		fmt.Fprintf(&sb, " AND due_at IS NOT NULL AND due_at <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY due_at ASC NULLS LAST, created_at DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PostgresActivityRepo persists contact activities.
type PostgresActivityRepo struct {
	db *sql.DB
}

func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

func (r *PostgresActivityRepo) Append(ctx context.Context, a Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, workspace_id, user_id, contact_id, type, note, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.WorkspaceID, a.UserID, a.ContactID, a.Type, a.Note, a.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *PostgresActivityRepo) List(ctx context.Context, workspaceID string, f ActivityFilter) ([]Activity, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, user_id, contact_id, type, note, occurred_at
		FROM activities WHERE workspace_id = $1`)
	args := []any{workspaceID}
	if f.UserID != "" {
		args = append(args, f.UserID)
		fmt.Fprintf(&sb, " AND user_id = $%d", len(args))
	}
	if f.ContactID != "" {
		args = append(args, f.ContactID)
		fmt.Fprintf(&sb, " AND contact_id = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		fmt.Fprintf(&sb, " AND occurred_at >= $%d", len(args))
	}
	sb.WriteString(" ORDER BY occurred_at DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a := Activity{WorkspaceID: workspaceID}
		if err := rows.Scan(&a.ID, &a.UserID, &a.ContactID, &a.Type, &a.Note, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
