package authz

import "strings"

// Privileged role markers, matched on the normalized form.
// "super admin", "Super-Admin" and "SUPER_ADMIN" all normalize identically.
var privilegedRoles = map[string]struct{}{
	"admin":       {},
	"super_admin": {},
}

// IsPrivileged reports whether any role in the set matches a privileged
// marker. It runs before any network call and must stay cheap: the bypass
// path has to work when the PDP is unreachable.
func IsPrivileged(roles []Role) bool {
	for _, r := range roles {
		if matchesPrivileged(r) {
			return true
		}
	}
	return false
}

func matchesPrivileged(r Role) bool {
	if rec := r.Record(); rec != nil {
		return isPrivilegedName(rec.Name) || isPrivilegedName(rec.Code)
	}
	return isPrivilegedName(r.Name())
}

func isPrivilegedName(name string) bool {
	if name == "" {
		return false
	}
	_, ok := privilegedRoles[normalizeRole(name)]
	return ok
}

// normalizeRole lower-cases and collapses whitespace, hyphen and underscore
// runs into a single underscore, so role spellings accumulated across the
// system's history compare equal.
func normalizeRole(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), func(c rune) bool {
		return c == ' ' || c == '\t' || c == '-' || c == '_'
	})
	return strings.Join(fields, "_")
}
