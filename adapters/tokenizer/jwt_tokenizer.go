package tokenizer

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/ports"
)

const (
	// DefaultIssuer identifies the gateway in the iss claim
	DefaultIssuer = "test.jwt.server"

	// DefaultLifetime is how long an issued token stays valid
	DefaultLifetime = 24 * time.Hour

	// IssuedAtSkew backdates iat to tolerate clock drift between issuer and verifier
	IssuedAtSkew = 10 * time.Second
)

var signingMethod = jwt.SigningMethodRS256

// JWTTokenizer implements the Tokenizer interface using RS256 JWTs
type JWTTokenizer struct {
	signKey   *rsa.PrivateKey
	verifyKey *rsa.PublicKey
	issuer    string
	lifetime  time.Duration
	now       func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithIssuer sets the iss claim
func WithIssuer(issuer string) Option {
	return func(j *JWTTokenizer) { j.issuer = issuer }
}

// WithLifetime sets the token lifetime
func WithLifetime(d time.Duration) Option {
	return func(j *JWTTokenizer) { j.lifetime = d }
}

// WithClock overrides the time source used for issuing and verifying
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) { j.now = now }
}

// NewJWTTokenizer creates a new JWT tokenizer. signKey may be nil for a
// verify-only tokenizer.
func NewJWTTokenizer(signKey *rsa.PrivateKey, verifyKey *rsa.PublicKey, opts ...Option) ports.Tokenizer {
	j := &JWTTokenizer{
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    DefaultIssuer,
		lifetime:  DefaultLifetime,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue signs an identity assertion for subject
func (j *JWTTokenizer) Issue(subject string, scope any) (string, error) {
	if j.signKey == nil {
		return "", fmt.Errorf("tokenizer has no signing key")
	}

	issuedAt := j.now().Add(-IssuedAtSkew).Truncate(time.Second)
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.lifetime)),
		},
		Scope: scope,
	}

	token := jwt.NewWithClaims(signingMethod, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, algorithm and expiry of a token. Every
// failure is reported as core.ErrInvalidToken wrapping the cause.
func (j *JWTTokenizer) Verify(tokenStr string) (*core.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if token.Method != signingMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.verifyKey, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", core.ErrInvalidToken)
	}

	identity := &core.Identity{
		Subject:   claims.Subject,
		Scope:     claims.Scope,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}

	return identity, nil
}
