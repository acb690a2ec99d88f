package auth

import (
	"strings"
	"unicode"

	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var ErrWeakPassword = apperrors.Validation("WEAK_PASSWORD", "Password must contain at least one letter and one digit")

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the composition rules binding tags cannot express.
func ValidatePassword(password string) error {
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}
