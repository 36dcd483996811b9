package tasks

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

type Origin string

const (
	OriginManual     Origin = "manual"
	OriginAutomation Origin = "automation"
)

// Task is a follow-up item owned by a user, optionally bound to a contact
// and a deal.
type Task struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	ContactID   string     `json:"contact_id,omitempty" db:"contact_id"`
	DealID      string     `json:"deal_id,omitempty" db:"deal_id"`
	Title       string     `json:"title" db:"title"`
	Notes       string     `json:"notes,omitempty" db:"notes"`
	Status      Status     `json:"status" db:"status"`
	Origin      Origin     `json:"origin" db:"origin"`
	DueAt       *time.Time `json:"due_at,omitempty" db:"due_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func (t Task) Overdue(now time.Time) bool {
	return t.Status == StatusPending && t.DueAt != nil && t.DueAt.Before(now)
}

type ActivityType string

const (
	ActivityCall    ActivityType = "CALL"
	ActivityEmail   ActivityType = "EMAIL"
	ActivityMeeting ActivityType = "MEETING"
	ActivityNote    ActivityType = "NOTE"
)

// Activity is a logged touchpoint with a contact.
type Activity struct {
	ID          string       `json:"id" db:"id"`
	WorkspaceID string       `json:"workspace_id" db:"workspace_id"`
	UserID      string       `json:"user_id" db:"user_id"`
	ContactID   string       `json:"contact_id" db:"contact_id"`
	Type        ActivityType `json:"type" db:"type"`
	Note        string       `json:"note,omitempty" db:"note"`
	OccurredAt  time.Time    `json:"occurred_at" db:"occurred_at"`
}
