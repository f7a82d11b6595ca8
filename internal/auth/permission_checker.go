package auth

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleSales   Role = "SALES"
)

// AllRoles is the closed set of roles. SALES_EXECUTIVE is not an alias.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleSales}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// IsPrivileged reports whether the role sees every lead.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func HasAnyRole(role Role, allowed []Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
