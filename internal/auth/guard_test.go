package auth

import (
	"strings"
	"testing"
)

func guardUser(role string, perms ...string) *User {
	r := Role{ID: "role-1", Name: role}
	for _, p := range perms {
		r.Permissions = append(r.Permissions, Permission{Name: p})
	}
	return &User{ID: "u-1", Username: "alice", IsActive: true, Role: r}
}

func TestRequireRole(t *testing.T) {
	check := RequireRole("Administrador", "Gestor")

	if d := check(guardUser("Administrador")); !d.Allowed {
		t.Fatalf("admin denied: %s", d.Reason)
	}
	if d := check(guardUser("Gestor")); !d.Allowed {
		t.Fatalf("gestor denied: %s", d.Reason)
	}
	d := check(guardUser("Usuario"))
	if d.Allowed {
		t.Fatal("usuario allowed")
	}
	if !strings.Contains(d.Reason, "Administrador") || !strings.Contains(d.Reason, "Gestor") {
		t.Fatalf("denial does not name allowed roles: %s", d.Reason)
	}
}

func TestRequirePermissions(t *testing.T) {
	check := RequirePermissions("crear_pqrs", "gestionar_pqrs")

	if d := check(guardUser("Gestor", "crear_pqrs", "gestionar_pqrs", "ver_pqrs")); !d.Allowed {
		t.Fatalf("denied despite all permissions: %s", d.Reason)
	}

	d := check(guardUser("Usuario", "crear_pqrs"))
	if d.Allowed {
		t.Fatal("allowed with partial permissions")
	}
	if !strings.Contains(d.Reason, "gestionar_pqrs") {
		t.Fatalf("denial does not name the missing permission: %s", d.Reason)
	}
}

func TestAll(t *testing.T) {
	check := All(
		RequireRole("Gestor"),
		RequirePermissions("gestionar_pqrs"),
	)

	if d := check(guardUser("Gestor", "gestionar_pqrs")); !d.Allowed {
		t.Fatalf("denied: %s", d.Reason)
	}
	// Short-circuits on the first denial.
	d := check(guardUser("Usuario", "gestionar_pqrs"))
	if d.Allowed || !strings.Contains(d.Reason, "roles") {
		t.Fatalf("expected role denial first, got %+v", d)
	}
	d = check(guardUser("Gestor"))
	if d.Allowed || !strings.Contains(d.Reason, "gestionar_pqrs") {
		t.Fatalf("expected permission denial, got %+v", d)
	}
}

func TestAllEmpty(t *testing.T) {
	if d := All()(guardUser("Usuario")); !d.Allowed {
		t.Fatalf("empty conjunction should allow: %s", d.Reason)
	}
}
