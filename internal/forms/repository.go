package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const formColumns = `id, workspace_id, user_id, name, title, description, public_key,
fields, active, created_at, updated_at`

func scanForm(row interface{ Scan(...any) error }) (Form, error) {
	var f Form
	var fieldsJSON []byte
	err := row.Scan(
		&f.ID, &f.WorkspaceID, &f.UserID, &f.Name, &f.Title, &f.Description, &f.PublicKey,
		&fieldsJSON, &f.Active, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return Form{}, err
	}
	if err := json.Unmarshal(fieldsJSON, &f.Fields); err != nil {
		return Form{}, fmt.Errorf("decode form fields: %w", err)
	}
	return f, nil
}

func (r *PostgresRepo) Create(ctx context.Context, f Form) error {
	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return fmt.Errorf("encode form fields: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO forms (`+formColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.WorkspaceID, f.UserID, f.Name, f.Title, f.Description, f.PublicKey,
		fields, f.Active, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert form: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, f Form) error {
	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return fmt.Errorf("encode form fields: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE forms SET name = $3, title = $4, description = $5, fields = $6,
			active = $7, updated_at = $8
		 WHERE workspace_id = $1 AND id = $2`,
		f.WorkspaceID, f.ID, f.Name, f.Title, f.Description, fields, f.Active, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update form: %w", err)
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

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Form, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+formColumns+` FROM forms WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id)
	f, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Form{}, ErrNotFound
	}
	return f, err
}

func (r *PostgresRepo) GetByPublicKey(ctx context.Context, publicKey string) (Form, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+formColumns+` FROM forms WHERE public_key = $1`, publicKey)
	f, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Form{}, ErrNotFound
	}
	return f, err
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string) ([]Form, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+formColumns+` FROM forms WHERE workspace_id = $1 ORDER BY created_at DESC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var out []Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) AppendSubmission(ctx context.Context, s Submission) error {
	values, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("encode submission values: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO form_submissions (id, form_id, workspace_id, contact_id, field_values, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.FormID, s.WorkspaceID, nullIfEmpty(s.ContactID), values, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListSubmissions(ctx context.Context, workspaceID, formID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, form_id, contact_id, field_values, created_at
		 FROM form_submissions
		 WHERE workspace_id = $1 AND form_id = $2
		 ORDER BY created_at DESC`,
		workspaceID, formID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		s := Submission{WorkspaceID: workspaceID}
		var contactID sql.NullString
		var values []byte
		if err := rows.Scan(&s.ID, &s.FormID, &contactID, &values, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.ContactID = contactID.String
		if err := json.Unmarshal(values, &s.Values); err != nil {
			return nil, fmt.Errorf("decode submission values: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
