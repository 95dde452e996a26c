package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/jwtgate/ports"
)

// DefaultCost matches the rounds used by the hash command
const DefaultCost = 9

// Bcrypt compares passwords against bcrypt hashes
type Bcrypt struct {
	placeholder string
}

// NewBcrypt creates a hasher whose placeholder is generated at cost, so an
// unknown user costs as much as a known one hashed at the same cost.
func NewBcrypt(cost int) (ports.PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}

	placeholder, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate placeholder hash: %w", err)
	}

	return &Bcrypt{placeholder: string(placeholder)}, nil
}

// CostOf returns the highest cost among hashes, or DefaultCost when none parse
func CostOf(hashes []string) int {
	best := 0
	for _, h := range hashes {
		if c, err := bcrypt.Cost([]byte(h)); err == nil && c > best {
			best = c
		}
	}
	if best == 0 {
		return DefaultCost
	}
	return best
}

// Compare reports whether password matches the bcrypt hash
func (b *Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Placeholder returns a hash no password matches, at the configured cost
func (b *Bcrypt) Placeholder() string { return b.placeholder }

// Hash hashes password at cost
func Hash(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Plaintext compares stored values verbatim. Test deployments only.
type Plaintext struct {
	placeholder string
}

// NewPlaintext creates a plaintext comparer
func NewPlaintext() (ports.PasswordHasher, error) {
	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	return &Plaintext{placeholder: secret}, nil
}

// Compare reports whether password equals the stored value
func (p *Plaintext) Compare(hash, password string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(password)) == 1
}

// Placeholder returns a random value no password matches
func (p *Plaintext) Placeholder() string { return p.placeholder }

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
