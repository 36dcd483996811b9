package deals

import "time"

type Stage string

const (
	StageOpen       Stage = "OPEN"
	StageClosedWon  Stage = "CLOSED_WON"
	StageClosedLost Stage = "CLOSED_LOST"
)

// Deal is a revenue opportunity attached to a contact.
// Monetary values are stored in minor units (cents) to avoid float drift.
type Deal struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	ContactID   string     `json:"contact_id" db:"contact_id"`
	Title       string     `json:"title" db:"title"`
	ValueMinor  int64      `json:"value_minor" db:"value_minor"`
	Currency    string     `json:"currency" db:"currency"`
	Stage       Stage      `json:"stage" db:"stage"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

func (d Deal) Closed() bool {
	return d.Stage == StageClosedWon || d.Stage == StageClosedLost
}
