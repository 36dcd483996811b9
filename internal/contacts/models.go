package contacts

import (
	"strings"
	"time"

	"bell-crm/internal/funnel"
)

type PersonType string

const (
	PersonLead     PersonType = "LEAD"
	PersonCustomer PersonType = "CUSTOMER"
)

type LeadSource string

const (
	SourceWebsiteForm LeadSource = "WEBSITE_FORM"
	SourceReferral    LeadSource = "REFERRAL"
	SourceOutbound    LeadSource = "OUTBOUND"
	SourceEvent       LeadSource = "EVENT"
	SourceOther       LeadSource = "OTHER"
)

// Contact is a person in a workspace's funnel.
//
// Name is the legacy single-field form; newer records carry FirstName and
// LastName. DisplayName reconciles the two.
type Contact struct {
	ID          string       `json:"id" db:"id"`
	WorkspaceID string       `json:"workspace_id" db:"workspace_id"`
	FirstName   string       `json:"first_name" db:"first_name"`
	LastName    string       `json:"last_name" db:"last_name"`
	Name        string       `json:"name,omitempty" db:"name"`
	Email       string       `json:"email" db:"email"`
	Phone       string       `json:"phone" db:"phone"`
	CompanyID   string       `json:"company_id,omitempty" db:"company_id"`
	FunnelStage funnel.Stage `json:"funnel_stage" db:"funnel_stage"`
	PersonType  PersonType   `json:"person_type" db:"person_type"`
	LeadSource  LeadSource   `json:"lead_source,omitempty" db:"lead_source"`
	// ReferralFrom names the referrer when LeadSource is REFERRAL.
	ReferralFrom string `json:"referral_from,omitempty" db:"referral_from"`
	// FormID links contacts captured through a public form.
	FormID    string    `json:"form_id,omitempty" db:"form_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName prefers the split name fields and falls back to the legacy
// single field, then the email address.
func (c Contact) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if full != "" {
		return full
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

// TelHref renders the phone number as a tel: link target, stripping
// everything except digits and a leading plus.
func (c Contact) TelHref() string {
	if c.Phone == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range c.Phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "tel:" + b.String()
}

// StageChange is one entry in a contact's funnel history.
type StageChange struct {
	ID        string       `json:"id" db:"id"`
	ContactID string       `json:"contact_id" db:"contact_id"`
	FromStage funnel.Stage `json:"from_stage" db:"from_stage"`
	ToStage   funnel.Stage `json:"to_stage" db:"to_stage"`
	ChangedAt time.Time    `json:"changed_at" db:"changed_at"`
}
