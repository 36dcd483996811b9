package companies

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists companies.
//
// NOTE: This repository assumes the table:
//
//	companies (id, workspace_id, user_id, name, industry, size_turnover,
//	           size_personnel, city, state, country, created_at, updated_at)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const companyColumns = `id, workspace_id, user_id, name, industry, size_turnover, size_personnel, city, state, country, created_at, updated_at`

func scanCompany(row interface{ Scan(...any) error }) (Company, error) {
	var c Company
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.UserID, &c.Name, &c.Industry,
		&c.SizeTurnover, &c.SizePersonnel, &c.City, &c.State, &c.Country,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, companyID string) (Company, bool, error) {
	q := `SELECT ` + companyColumns + ` FROM companies WHERE workspace_id = $1 AND id = $2`
	c, err := scanCompany(r.db.QueryRowContext(ctx, q, workspaceID, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, false, nil
	}
	if err != nil {
		return Company{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string) ([]Company, error) {
	q := `SELECT ` + companyColumns + ` FROM companies WHERE workspace_id = $1 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Create(ctx context.Context, c Company) error {
	const q = `
INSERT INTO companies (` + companyColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.WorkspaceID, c.UserID, c.Name, c.Industry,
		c.SizeTurnover, c.SizePersonnel, c.City, c.State, c.Country,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, c Company) error {
	const q = `
UPDATE companies
SET name = $3, industry = $4, size_turnover = $5, size_personnel = $6,
    city = $7, state = $8, country = $9, updated_at = $10
WHERE workspace_id = $1 AND id = $2
`
	_, err := r.db.ExecContext(ctx, q,
		c.WorkspaceID, c.ID, c.Name, c.Industry, c.SizeTurnover, c.SizePersonnel,
		c.City, c.State, c.Country, c.UpdatedAt,
	)
	return err
}
