package auth

// Staff API roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
