package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// BcryptHasher hashes and verifies passwords with bcrypt.
type BcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher uses bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &BcryptHasher{cost: cost}
	// Same cost as real hashes so a miss takes as long as a mismatch.
	h.dummy, _ = bcrypt.GenerateFromPassword([]byte("keygate-dummy-password"), cost)
	return h
}

func (h *BcryptHasher) Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), h.cost)
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (h *BcryptHasher) Verify(hash []byte, password string) bool {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	return err == nil
}

// VerifyDummy burns the same CPU as Verify against a real account.
func (h *BcryptHasher) VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

// IsTooLong reports whether bcrypt would reject the password outright. The
// limit is in bytes, so multibyte passwords hit it before 72 characters.
func IsTooLong(password string) bool {
	return len(password) > MaxPasswordBytes
}
