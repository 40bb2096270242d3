package auth

import "strings"

// Decision is the ephemeral outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Check is a pure predicate over an already-resolved, active user.
// Checks perform no store access.
type Check func(u *User) Decision

// RequireRole passes when the user's role name is one of the allowed names.
func RequireRole(allowed ...string) Check {
	return func(u *User) Decision {
		for _, name := range allowed {
			if u.Role.Name == name {
				return allow()
			}
		}
		return deny("requires one of roles: " + strings.Join(allowed, ", "))
	}
}

// RequirePermissions passes when the user's role carries every required
// permission name. The denial names the first missing permission.
func RequirePermissions(required ...string) Check {
	return func(u *User) Decision {
		for _, name := range required {
			if !u.Role.HasPermission(name) {
				return deny("missing permission: " + name)
			}
		}
		return allow()
	}
}

// All combines checks with logical AND, short-circuiting on the first denial.
func All(checks ...Check) Check {
	return func(u *User) Decision {
		for _, check := range checks {
			if d := check(u); !d.Allowed {
				return d
			}
		}
		return allow()
	}
}
