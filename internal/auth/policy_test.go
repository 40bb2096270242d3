package auth

import (
	"strings"
	"testing"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
		reason   string
	}{
		{"valid", "Valid123!", true, ""},
		{"too short", "short", false, "at least 8 characters"},
		{"seven chars", "Weak1!a", false, "at least 8 characters"},
		{"no uppercase", "nodigits1!", false, "uppercase"},
		{"no lowercase", "NODIGITS1!", false, "lowercase"},
		{"no digit", "NoDigits!", false, "digit"},
		{"no special", "NoSpecial1", false, "special"},
		{"special from set", `Quoted1"pw`, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidatePasswordStrength(tc.password)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v (reason=%q)", ok, tc.ok, reason)
			}
			if tc.ok && reason != "" {
				t.Fatalf("unexpected reason for valid password: %q", reason)
			}
			if !tc.ok && !strings.Contains(reason, tc.reason) {
				t.Fatalf("reason %q does not mention %q", reason, tc.reason)
			}
		})
	}
}

// The first failing rule wins: a password missing several classes reports
// the earliest rule in the fixed order.
func TestValidatePasswordStrengthOrder(t *testing.T) {
	ok, reason := ValidatePasswordStrength("abc")
	if ok || !strings.Contains(reason, "8 characters") {
		t.Fatalf("expected length failure first, got %q", reason)
	}
	ok, reason = ValidatePasswordStrength("alllowercase")
	if ok || !strings.Contains(reason, "uppercase") {
		t.Fatalf("expected uppercase failure before digit/special, got %q", reason)
	}
}
