// Package model defines the data structures used throughout the application.
//
// STRUCT TAGS:
// `json:"..."` sets the key used in API bodies. `db:"..."` names the column
// the repository reads it from. Fields tagged `json:"-"` never leave the
// server.
//
// Models carry no behaviour beyond small helpers such as IsAdmin. Rules
// about who may change what live in the service package.
package model

import "time"

// Roles a User can hold. Role is informational for most routes; only the
// staff directory routes require RoleAdmin.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a staff member who has signed in at least once.
//
// Email is the key. It is always stored lower-cased so lookups are
// case-insensitive without collation tricks in SQL.
type User struct {
	Email     string    `json:"email"     db:"email"`
	Role      string    `json:"role"      db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
