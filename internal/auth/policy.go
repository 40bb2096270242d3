package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

const minPasswordLength = 8

// ValidatePasswordStrength checks the structural password policy. Rules run
// in a fixed order and short-circuit, so the returned reason always names
// the first rule that failed.
func ValidatePasswordStrength(password string) (bool, string) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return false, "password must be at least 8 characters long"
	}
	if !containsRune(password, unicode.IsUpper) {
		return false, "password must contain at least one uppercase letter"
	}
	if !containsRune(password, unicode.IsLower) {
		return false, "password must contain at least one lowercase letter"
	}
	if !containsRune(password, unicode.IsDigit) {
		return false, "password must contain at least one digit"
	}
	if !strings.ContainsAny(password, passwordSpecialChars) {
		return false, "password must contain at least one special character"
	}
	return true, ""
}

func containsRune(s string, match func(rune) bool) bool {
	for _, r := range s {
		if match(r) {
			return true
		}
	}
	return false
}
