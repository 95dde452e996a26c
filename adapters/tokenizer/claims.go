package tokenizer

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims combines standard claims with the principal's scope
type IdentityClaims struct {
	jwt.RegisteredClaims
	Scope any `json:"scope,omitempty"`
}
