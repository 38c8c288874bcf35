package security

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("password hashing failed")
	MinPasswordLen   = 4
)

const DefaultBcryptCost = bcrypt.DefaultCost

// PasswordHasher provides interface for password operations
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(storedCredential, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new password hasher using bcrypt
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", errors.New("password too short")
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

// Compare accepts both bcrypt hashes and legacy plaintext credentials.
// Rows migrated from the old system store the password verbatim; those are
// matched in constant time until the user next changes their password.
func (b *bcryptHasher) Compare(storedCredential, password string) error {
	if strings.HasPrefix(storedCredential, "$2a$") || strings.HasPrefix(storedCredential, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(storedCredential), []byte(password))
	}
	if subtle.ConstantTimeCompare([]byte(storedCredential), []byte(password)) != 1 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}
