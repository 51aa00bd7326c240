package rbac

// Role names carried in access tokens.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
