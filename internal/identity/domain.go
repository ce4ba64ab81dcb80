// Package identity owns user accounts, roles and the suspension flag.
package identity

import "time"

// Role is one of the three fixed platform roles.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents an account stored in the users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	Suspended    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity attached to a request. It is
// derived fresh per request from a verified token plus a live lookup and is
// never persisted.
type Principal struct {
	UserID string
	Role   Role
}
