// Package auth provides password hashing and signed session credentials.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a plaintext password does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword returns a salted bcrypt hash of plain. A cost of 0 uses bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares plain against hash in constant time.
func VerifyPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// dummyHash is compared against when no account matches, so unknown emails
// cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("agora-timing-equalizer"), bcrypt.DefaultCost)

// BurnVerification performs a throwaway comparison.
func BurnVerification(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
