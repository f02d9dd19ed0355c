package domain

import "fmt"

// Role is a position on the total order member < moderator < admin.
// Compare roles only through AtLeast and Compare.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var roleOrder = []Role{RoleMember, RoleModerator, RoleAdmin}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q: %w", s, ErrInvalidInput)
	}
	return r, nil
}

func (r Role) Valid() bool {
	return r.position() >= 0
}

// Compare returns -1, 0 or 1 as r is below, equal to or above other.
// Unknown roles sort below every known role.
func (r Role) Compare(other Role) int {
	a, b := r.position(), other.position()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r meets the threshold min. An unknown role never
// meets any threshold.
func (r Role) AtLeast(min Role) bool {
	if !r.Valid() || !min.Valid() {
		return false
	}
	return r.Compare(min) >= 0
}

func (r Role) position() int {
	for i, known := range roleOrder {
		if known == r {
			return i
		}
	}
	return -1
}
