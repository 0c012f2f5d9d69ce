// Package password provides one-way salted password hashing and verification.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher isolates the hashing algorithm from callers.
type Hasher interface {
	// Hash creates a salted, algorithm-tagged digest from a password.
	Hash(password string) (string, error)

	// Verify reports whether password matches digest. A malformed digest
	// verifies as false.
	Verify(password, digest string) bool

	// NeedsRehash reports whether digest was created with other parameters.
	NeedsRehash(digest string) bool
}

// DefaultCost is the bcrypt cost used when none is configured.
const DefaultCost = 12

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher, clamping cost to bcrypt's range.
// A zero cost selects DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash creates a bcrypt hash from a password. Passwords longer than 72 bytes
// are rejected by bcrypt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares in constant time via bcrypt.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

func (h *BcryptHasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// Cost returns the configured cost.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

var _ Hasher = (*BcryptHasher)(nil)
