package account

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/tphakala/mediscan/internal/errors"
)

// ErrPasswordMismatch is returned by a CredentialVerifier when the password
// does not match the stored hash.
var ErrPasswordMismatch = errors.NewStd("password does not match")

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// BcryptVerifier is the default CredentialVerifier.
type BcryptVerifier struct {
	Cost int // 0 uses bcrypt.DefaultCost
}

// Hash returns the bcrypt hash of password.
func (v BcryptVerifier) Hash(password string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares password with hash. A wrong password yields
// ErrPasswordMismatch, a malformed hash is returned as is.
func (v BcryptVerifier) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
