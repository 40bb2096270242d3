package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedUser(t *testing.T, store *MemoryStore, active bool) *User {
	t.Helper()
	role := store.AddRole(Role{
		Name:        "Usuario",
		Permissions: []Permission{{ID: "p-1", Name: "crear_pqrs"}},
	})
	hash, err := HashPassword("Strong1!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &User{
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice Doe",
		PasswordHash: hash,
		IsActive:     active,
		Role:         role,
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return user
}

func TestResolverResolve(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := newTestTokenService(t, &now)
	store := NewMemoryStore()
	user := seedUser(t, store, true)
	resolver := NewResolver(tokens, store)

	raw, err := tokens.IssueAccess(IdentityFromUser(user))
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	resolved, err := resolver.Resolve(context.Background(), raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ID != user.ID || resolved.Username != "alice" {
		t.Fatalf("wrong user resolved: %+v", resolved)
	}
	if !resolved.Role.HasPermission("crear_pqrs") {
		t.Fatal("resolved user missing role permissions")
	}
}

func TestResolverRejectsGarbage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resolver := NewResolver(newTestTokenService(t, &now), NewMemoryStore())

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := resolver.Resolve(context.Background(), raw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("token %q: got %v, want ErrInvalidCredentials", raw, err)
		}
	}
}

func TestResolverRejectsDeletedUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := newTestTokenService(t, &now)
	store := NewMemoryStore()
	user := seedUser(t, store, true)
	resolver := NewResolver(tokens, store)

	raw, err := tokens.IssueAccess(IdentityFromUser(user))
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if err := store.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// A valid token for a vanished user is indistinguishable from a bad token.
	if _, err := resolver.Resolve(context.Background(), raw); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestResolveActiveRejectsInactive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := newTestTokenService(t, &now)
	store := NewMemoryStore()
	user := seedUser(t, store, false)
	resolver := NewResolver(tokens, store)

	raw, err := tokens.IssueAccess(IdentityFromUser(user))
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), raw); err != nil {
		t.Fatalf("Resolve should not filter inactive users: %v", err)
	}
	if _, err := resolver.ResolveActive(context.Background(), raw); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("got %v, want ErrInactiveAccount", err)
	}
}
