package email

import "time"

const ProviderGoogle = "google"

// ConnectedAccount holds the OAuth grant for a user's mailbox.
// Tokens are stored as issued; refresh happens lazily on send.
type ConnectedAccount struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	WorkspaceID  string    `json:"workspace_id" db:"workspace_id"`
	Provider     string    `json:"provider" db:"provider"`
	Email        string    `json:"email" db:"email"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	TokenExpiry  time.Time `json:"-" db:"token_expiry"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type SendStatus string

const (
	StatusSent    SendStatus = "SENT"
	StatusStubbed SendStatus = "STUBBED"
)

// Record is the log line kept for every outbound message, whether it went
// through a connected mailbox or was stubbed because none is connected.
type Record struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	To          string     `json:"to" db:"to_addr"`
	Subject     string     `json:"subject" db:"subject"`
	TemplateID  string     `json:"template_id,omitempty" db:"template_id"`
	Status      SendStatus `json:"status" db:"status"`
	SentAt      time.Time  `json:"sent_at" db:"sent_at"`
}
