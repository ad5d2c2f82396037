package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of portal account kinds.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleInstructor}

// ParseRole normalises a free-form role string.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// UserRecord is implemented only by *Student and *Instructor.
type UserRecord interface {
	Role() Role
	RecordID() string
	AuthUID() string
	EmailAddress() string
	DisplayName() string
	LinkedCode() string

	userRecord()
}

