package tokens

import "slices"

// Authorize reports whether role is one of allowed.
func Authorize(role string, allowed []string) bool {
	return role != "" && slices.Contains(allowed, role)
}
