package account

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Password length limits in bytes. bcrypt ignores anything past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
	maxFullNameLength = 200
)

// normalizeEmail trims and lowercases an address for storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	return nil
}

func validatePassword(password string) error {
	switch n := len(password); {
	case n < MinPasswordLength:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	case n > MaxPasswordLength:
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

func validateSignup(fullName, email, password string) error {
	if fullName == "" {
		return fmt.Errorf("full name is required")
	}
	if utf8.RuneCountInString(fullName) > maxFullNameLength {
		return fmt.Errorf("full name must be at most %d characters", maxFullNameLength)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}
