package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
//
// Workspace roles mirror the team-management model: admins manage the
// account (invites, forms, plan), members work the pipeline. super_admin
// is an internal support role and is never granted to tenant users.
const (
	RoleAdmin      = "admin"
	RoleMember     = "member"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
