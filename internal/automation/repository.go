package automation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSettingsRepo persists enablement flags in automation_settings.
// Schema:
//
//	CREATE TABLE automation_settings (
//	    user_id    TEXT NOT NULL,
//	    recipe_id  TEXT NOT NULL,
//	    enabled    BOOLEAN NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (user_id, recipe_id)
//	);
type PostgresSettingsRepo struct {
	db *sql.DB
}

func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

const upsertSettingSQL = `
INSERT INTO automation_settings (user_id, recipe_id, enabled, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, recipe_id)
DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`

func (r *PostgresSettingsRepo) Upsert(ctx context.Context, userID, recipeID string, enabled bool, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, upsertSettingSQL, userID, recipeID, enabled, now); err != nil {
		return fmt.Errorf("upsert automation setting: %w", err)
	}
	return nil
}

const listEnabledSQL = `
SELECT recipe_id FROM automation_settings
WHERE user_id = $1 AND enabled = TRUE
ORDER BY recipe_id`

func (r *PostgresSettingsRepo) ListEnabledRecipeIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listEnabledSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list enabled recipes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipe id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
