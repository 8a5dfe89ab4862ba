package identity

import "strings"

// IsAuthorized reports whether role is one of required.
func IsAuthorized(role Role, required []Role) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

// ParseRoles splits a comma-separated role list, dropping blanks.
func ParseRoles(s string) []Role {
	var out []Role
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, Role(p))
		}
	}
	return out
}
