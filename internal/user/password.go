package user

import "golang.org/x/crypto/bcrypt"

// Hasher is the one-way password function. Digests are opaque to callers.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// ErrPasswordTooLong is returned by BcryptHasher for input over 72 bytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
