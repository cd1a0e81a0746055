package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTourist Role = "TOURIST"
	RoleGuide   Role = "GUIDE"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleTourist

// authorityPrefix prefixes roles inside the token "roles" claim.
const authorityPrefix = "ROLE_"

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleTourist, RoleGuide}
}

// ParseRole accepts a role name in any case, with or without the ROLE_ prefix.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, authorityPrefix)

	r := Role(name)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTourist, RoleGuide:
		return true
	}
	return false
}

// Authority is the claim form of the role, e.g. ROLE_ADMIN.
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

func (r Role) String() string {
	return string(r)
}

// RoleFromAuthorities returns the first valid role found in a roles claim.
func RoleFromAuthorities(authorities []string) (Role, bool) {
	for _, a := range authorities {
		if !strings.HasPrefix(a, authorityPrefix) {
			continue
		}
		if r := Role(strings.TrimPrefix(a, authorityPrefix)); r.Valid() {
			return r, true
		}
	}
	return "", false
}
