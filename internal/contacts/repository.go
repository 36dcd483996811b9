package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bell-crm/internal/funnel"
	"bell-crm/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const contactColumns = `id, workspace_id, first_name, last_name, name, email, phone,
company_id, funnel_stage, person_type, lead_source, referral_from, form_id,
created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (Contact, error) {
	var c Contact
	var companyID, referralFrom, formID sql.NullString
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.FirstName, &c.LastName, &c.Name, &c.Email, &c.Phone,
		&companyID, &c.FunnelStage, &c.PersonType, &c.LeadSource, &referralFrom, &formID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Contact{}, err
	}
	c.CompanyID = companyID.String
	c.ReferralFrom = referralFrom.String
	c.FormID = formID.String
	return c, nil
}

const insertContactSQL = `
INSERT INTO contacts (` + contactColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func (r *PostgresRepo) Create(ctx context.Context, c Contact) error {
	_, err := r.db.ExecContext(ctx, insertContactSQL,
		c.ID, c.WorkspaceID, c.FirstName, c.LastName, c.Name, c.Email, c.Phone,
		nullIfEmpty(c.CompanyID), c.FunnelStage, c.PersonType, c.LeadSource,
		nullIfEmpty(c.ReferralFrom), nullIfEmpty(c.FormID),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

const updateContactSQL = `
UPDATE contacts SET
	first_name = $3, last_name = $4, email = $5, phone = $6, company_id = $7,
	lead_source = $8, referral_from = $9, updated_at = $10
WHERE workspace_id = $1 AND id = $2`

func (r *PostgresRepo) Update(ctx context.Context, c Contact) error {
	res, err := r.db.ExecContext(ctx, updateContactSQL,
		c.WorkspaceID, c.ID,
		c.FirstName, c.LastName, c.Email, c.Phone, nullIfEmpty(c.CompanyID),
		c.LeadSource, nullIfEmpty(c.ReferralFrom), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, workspaceID, email string) (Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE workspace_id = $1 AND lower(email) = lower($2)`,
		workspaceID, email)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, f ListFilter) ([]Contact, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + contactColumns + ` FROM contacts WHERE workspace_id = $1`)
	args := []any{workspaceID}
	if f.Stage != nil {
		args = append(args, *f.Stage)
		fmt.Fprintf(&sb, " AND funnel_stage = $%d", len(args))
	}
	if f.PersonType != nil {
		args = append(args, *f.PersonType)
		fmt.Fprintf(&sb, " AND person_type = $%d", len(args))
	}
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		fmt.Fprintf(&sb, " AND company_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		n := len(args)
		fmt.Fprintf(&sb,
			" AND (lower(first_name || ' ' || last_name) LIKE $%d OR lower(name) LIKE $%d OR lower(email) LIKE $%d)",
			n, n, n)
	}
	sb.WriteString(" ORDER BY created_at DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) DeleteMany(ctx context.Context, workspaceID string, ids []string) (int, error) {
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, workspaceID)
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	q := `DELETE FROM contacts WHERE workspace_id = $1 AND id IN (` + strings.Join(placeholders, ", ") + `)`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete contacts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MoveStage runs the stage update, the history insert and the CUSTOMER
// promotion in one transaction so a crash cannot leave the stage and its
// history out of step.
func (r *PostgresRepo) MoveStage(ctx context.Context, workspaceID, id string, to funnel.Stage, now time.Time) (funnel.Stage, error) {
	var from funnel.Stage
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT funnel_stage FROM contacts WHERE workspace_id = $1 AND id = $2 FOR UPDATE`,
			workspaceID, id)
		if err := row.Scan(&from); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock contact: %w", err)
		}
		if from == to {
			return nil
		}

		personType := PersonLead
		if to == funnel.StageAction {
			personType = PersonCustomer
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE contacts SET funnel_stage = $3,
				person_type = CASE WHEN $4 = 'CUSTOMER' THEN 'CUSTOMER' ELSE person_type END,
				updated_at = $5
			 WHERE workspace_id = $1 AND id = $2`,
			workspaceID, id, to, string(personType), now); err != nil {
			return fmt.Errorf("update stage: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contact_stage_history (id, workspace_id, contact_id, from_stage, to_stage, changed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), workspaceID, id, from, to, now); err != nil {
			return fmt.Errorf("insert stage history: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return from, nil
}

func (r *PostgresRepo) StageHistory(ctx context.Context, workspaceID, id string) ([]StageChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, contact_id, from_stage, to_stage, changed_at
		 FROM contact_stage_history
		 WHERE workspace_id = $1 AND contact_id = $2
		 ORDER BY changed_at ASC`,
		workspaceID, id)
	if err != nil {
		return nil, fmt.Errorf("stage history: %w", err)
	}
	defer rows.Close()

	var out []StageChange
	for rows.Next() {
		var sc StageChange
		if err := rows.Scan(&sc.ID, &sc.ContactID, &sc.FromStage, &sc.ToStage, &sc.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan stage change: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
