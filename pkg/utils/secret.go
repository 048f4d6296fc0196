package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost used for verification codes
const DefaultHashCost = 10

var (
	// ErrEmptySecret indicates there is nothing to hash
	ErrEmptySecret = errors.New("secret cannot be empty")
	// ErrEmptyAlphabet indicates a random string was requested from no characters
	ErrEmptyAlphabet = errors.New("alphabet cannot be empty")
	// ErrInvalidLength indicates a non-positive random string length
	ErrInvalidLength = errors.New("length must be positive")
)

// SecretHasher hashes short secrets with bcrypt, which salts every hash
type SecretHasher struct {
	cost int
}

// NewSecretHasher creates a hasher using the given bcrypt cost.
// Out of range costs fall back to DefaultHashCost.
func NewSecretHasher(cost int) *SecretHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &SecretHasher{cost: cost}
}

// Hash returns the salted one-way hash of secret
func (h *SecretHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether secret matches hash. bcrypt compares in constant time.
func (h *SecretHasher) Compare(hash, secret string) bool {
	if hash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// RandomString draws length characters uniformly from alphabet using crypto/rand
func RandomString(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	chars := []rune(alphabet)
	if len(chars) == 0 {
		return "", ErrEmptyAlphabet
	}

	max := big.NewInt(int64(len(chars)))
	out := make([]rune, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}
