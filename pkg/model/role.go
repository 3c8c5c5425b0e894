// Package model defines the core domain types for gochat.
package model

// Role represents a session's permission level.
type Role int

const (
	RoleRegular Role = iota // Default role, can chat, whisper and ignore
	RoleAdmin               // Can additionally block addresses and kick sessions
)

func (r Role) String() string {
	switch r {
	case RoleRegular:
		return "regular"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid returns true if the role is a recognised value.
func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// Permission represents a specific action that can be checked against a role.
type Permission int

const (
	PermBlockUser Permission = iota
	PermAdminHelp
)

// RoleForName derives the role granted to a freshly named session.
// The reserved name is compared case-insensitively.
func RoleForName(name string) Role {
	if IsReservedAdminName(name) {
		return RoleAdmin
	}
	return RoleRegular
}
