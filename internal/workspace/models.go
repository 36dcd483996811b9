package workspace

import "time"

// Workspace is the tenancy root. All CRM data (contacts, companies, deals,
// tasks, forms) is scoped by workspace_id.
type Workspace struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	Plan BillingTier `json:"plan" db:"plan"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type BillingTier string

const (
	TierFree    BillingTier = "FREE"
	TierStarter BillingTier = "STARTER"
	TierGrowth  BillingTier = "GROWTH"
	// TierPaid is legacy; treated as GROWTH for limits.
	TierPaid BillingTier = "PAID"
)

// MemberRole is the workspace-level role stored on a membership row.
// It maps onto rbac role strings at token-issue time.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Member links a user to a workspace.
// Unique per (workspace_id, user_id).
type Member struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Role        MemberRole `json:"role" db:"role"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Invite is a pending, email-addressed invitation. When a user with a
// matching email first resolves their workspace, the invite is consumed and
// they join the inviting workspace instead of getting a fresh one.
type Invite struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	Email       string     `json:"email" db:"email"`
	Role        MemberRole `json:"role" db:"role"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
