package auth

import "strings"

// UserRole is the user's role name
type UserRole = string

const (
	// RoleUser is the default customer role
	RoleUser UserRole = "user"
	// RoleAdmin is the back-office role; it can never be self-registered
	RoleAdmin UserRole = "admin"
)

// NormalizeRole lower-cases and trims a role name. Role names are normalized
// once at the boundary so the rest of the code can use plain equality.
func NormalizeRole(roleStr string) UserRole {
	return UserRole(strings.ToLower(strings.TrimSpace(roleStr)))
}

// ParseRole safely parses a string into a UserRole
func ParseRole(roleStr string) (UserRole, bool) {
	role := NormalizeRole(roleStr)
	switch role {
	case RoleUser, RoleAdmin:
		return role, true
	default:
		return role, false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}
