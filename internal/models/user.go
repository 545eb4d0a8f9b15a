package models

import (
	"fmt"
	"strings"
	"time"
)

// UserRole represents the closed set of roles known to the portal.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleLecturer UserRole = "lecturer"
	RoleStudent  UserRole = "student"
)

// Roles lists every role in display order.
var Roles = []UserRole{RoleAdmin, RoleLecturer, RoleStudent}

// ParseUserRole maps a free-form role string onto the closed enum.
func ParseUserRole(raw string) (UserRole, error) {
	switch UserRole(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleLecturer:
		return RoleLecturer, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// User is the profile projection of an account held by the auth provider.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Actor identifies who performs an operation. It is built per request from validated claims.
type Actor struct {
	UserID string
	Role   UserRole
}

// Is reports whether the actor holds the given role.
func (a *Actor) Is(role UserRole) bool {
	return a != nil && a.Role == role
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
