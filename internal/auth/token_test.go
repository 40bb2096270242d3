package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testIdentity() Identity {
	return Identity{
		UserID:      "user-42",
		Username:    "alice",
		Email:       "alice@example.com",
		FullName:    "Alice Doe",
		RoleName:    "Gestor",
		RoleID:      "role-7",
		Permissions: []string{"crear_pqrs", "gestionar_pqrs"},
	}
}

func newTestTokenService(t *testing.T, now *time.Time, opts ...TokenOption) *TokenService {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return *now }))
	svc, err := NewTokenService("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestIssueAndVerifyAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	token, err := svc.IssueAccess(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	claims, err := svc.Verify(token, TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("identity claims not preserved: %+v", claims)
	}
	if claims.Role != "Gestor" || claims.RoleID != "role-7" {
		t.Fatalf("role claims not preserved: %+v", claims)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "crear_pqrs" {
		t.Fatalf("permission claims not preserved: %v", claims.Permissions)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("unexpected token type: %s", claims.TokenType)
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	access, err := svc.IssueAccess(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, err := svc.IssueRefresh("user-42")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := svc.Verify(access, TokenTypeRefresh); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := svc.Verify(refresh, TokenTypeAccess); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now, WithAccessTTL(30*time.Minute))

	token, err := svc.IssueAccess(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	now = now.Add(31 * time.Minute)
	if _, err := svc.Verify(token, TokenTypeAccess); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	token, err := svc.IssueAccess(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	forged := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	if _, err := svc.Verify(forged, TokenTypeAccess); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("tampered token accepted: %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	other, err := NewTokenService("other-secret", WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, err := other.IssueAccess(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := svc.Verify(token, TokenTypeAccess); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("token signed with foreign secret accepted: %v", err)
	}
}

func TestIssuePair(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	pair, err := svc.IssuePair(testIdentity())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("unexpected token_type: %s", pair.TokenType)
	}

	access, err := svc.Verify(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if access.Username != "alice" || len(access.Permissions) != 2 {
		t.Fatalf("access claims incomplete: %+v", access)
	}

	refresh, err := svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if refresh.Subject != "user-42" {
		t.Fatalf("unexpected refresh subject: %s", refresh.Subject)
	}
	// Refresh tokens carry only the subject.
	if refresh.Username != "" || refresh.Email != "" || refresh.Role != "" || len(refresh.Permissions) != 0 {
		t.Fatalf("refresh token leaks identity claims: %+v", refresh)
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
