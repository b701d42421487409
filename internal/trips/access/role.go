// Package access decides whether an account may act on a trip.
package access

import "strings"

// Role represents a trip permission level. The set is closed and ordered:
// editor satisfies every viewer requirement, never the other way around.
type Role int

const (
	// RoleUnspecified represents an invalid role.
	RoleUnspecified Role = iota
	// RoleViewer grants read access to a trip.
	RoleViewer
	// RoleEditor grants read and write access to a trip.
	RoleEditor
)

// Satisfies reports whether the role meets a minimum required role.
// Unspecified roles never satisfy anything, including each other.
func (r Role) Satisfies(min Role) bool {
	if r == RoleUnspecified || min == RoleUnspecified {
		return false
	}
	return r >= min
}

// RoleLabel returns the string label for a role.
func RoleLabel(role Role) string {
	switch role {
	case RoleViewer:
		return "VIEWER"
	case RoleEditor:
		return "EDITOR"
	default:
		return "UNSPECIFIED"
	}
}

// RoleFromLabel converts a role label to a Role value.
func RoleFromLabel(label string) Role {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "VIEWER":
		return RoleViewer
	case "EDITOR":
		return RoleEditor
	default:
		return RoleUnspecified
	}
}
