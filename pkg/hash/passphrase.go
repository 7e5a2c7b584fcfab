package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost         = 12
	MinPassphraseLength = 8
)

var ErrTooShort = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)

func Hash(passphrase string) (string, error) {
	return HashWithCost(passphrase, DefaultCost)
}

func HashWithCost(passphrase string, cost int) (string, error) {
	if len(passphrase) < MinPassphraseLength {
		return "", ErrTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}

	return string(hashed), nil
}

func Compare(hashed, passphrase string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(passphrase))
}

// IsHash reports whether s is already a bcrypt hash, so configuration may
// hold either a hash or a plain passphrase.
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// Mismatch reports whether err is a wrong-passphrase result from Compare.
func Mismatch(err error) bool {
	return errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)
}
