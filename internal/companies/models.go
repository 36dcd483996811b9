package companies

import "time"

// Company is an organization contacts can belong to.
// Multi-tenant invariant: workspace_id required.
type Company struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	UserID      string `json:"user_id" db:"user_id"`

	Name     string `json:"name" db:"name"`
	Industry string `json:"industry,omitempty" db:"industry"`

	// Size descriptors are free-form (e.g. "1-10 MSEK", "11-50").
	SizeTurnover  string `json:"size_turnover,omitempty" db:"size_turnover"`
	SizePersonnel string `json:"size_personnel,omitempty" db:"size_personnel"`

	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
	Country string `json:"country,omitempty" db:"country"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
