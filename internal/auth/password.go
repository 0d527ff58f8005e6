package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost keeps a bcrypt comparison in the tens of milliseconds.
const DefaultPasswordCost = 10

// MaxPasswordBytes is the longest password bcrypt reads in full. Anything
// past it would be ignored by the comparison.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordVerifier compares a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(plaintext, storedHash string) bool
}

// BcryptVerifier verifies bcrypt hashes. The comparison is constant time.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(plaintext, storedHash string) bool {
	if storedHash == "" || len(plaintext) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// HashPassword produces a salted bcrypt hash.
func HashPassword(plaintext string, cost int) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("hash password: %w", ErrPasswordTooLong)
	}
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
