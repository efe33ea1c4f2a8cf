package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("access code hashing failed")
	MinAccessCodeLen = 8
)

// AccessCodeHasher hashes and verifies handler access codes.
type AccessCodeHasher interface {
	Hash(code string) (string, error)
	Compare(hashedCode, code string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates an access code hasher using bcrypt
func NewBcryptHasher(cost int) AccessCodeHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(code string) (string, error) {
	if len(code) < MinAccessCodeLen {
		return "", errors.New("access code too short")
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(code), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Compare(hashedCode, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code))
}
