package auth

// UserRole is the user's role
type UserRole string

const (
	// RoleCustomer is the default role for registered users
	RoleCustomer UserRole = "customer"
	// RoleAdmin is an admin role
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the role value
func (r UserRole) String() string {
	return string(r)
}

// ParseRole returns the role for the given value, falling back to
// RoleCustomer for unknown values.
func ParseRole(s string) UserRole {
	r := UserRole(s)
	if r.IsValid() {
		return r
	}
	return RoleCustomer
}
