package forms

import "time"

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldTextarea FieldType = "textarea"
)

// Field is one input on a public form.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Form is an embeddable lead-capture form. PublicKey is the unguessable
// handle the public endpoint is addressed by; the form's internal ID is
// never exposed outside the workspace.
type Form struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	PublicKey   string    `json:"public_key" db:"public_key"`
	Fields      []Field   `json:"fields" db:"fields"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Submission is one public post against a form.
type Submission struct {
	ID          string            `json:"id" db:"id"`
	FormID      string            `json:"form_id" db:"form_id"`
	WorkspaceID string            `json:"workspace_id" db:"workspace_id"`
	ContactID   string            `json:"contact_id,omitempty" db:"contact_id"`
	Values      map[string]string `json:"values" db:"values"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}
