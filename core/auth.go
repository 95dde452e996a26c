package core

import "time"

// Challenge is a pending captcha answer keyed by its session id
type Challenge struct {
	SessionID string    // Opaque single-use identifier
	Answer    string    // Expected puzzle solution
	CreatedAt time.Time // When the challenge was stored
	ExpiresAt time.Time // After this instant the challenge is inert
}

// Expired reports whether the challenge is no longer usable at now
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ChallengeTicket is what a client receives when it requests a challenge
type ChallengeTicket struct {
	SessionID string
	Puzzle    string // Renderable puzzle, a data URI
	TTL       time.Duration
}

// Puzzle is a human-solvable image and its expected answer
type Puzzle struct {
	Image  string
	Answer string
}

// Credential is one registered principal
type Credential struct {
	Username     string
	PasswordHash string
	Scope        any // Copied verbatim into issued tokens
}

// Identity is the verified content of a token
type Identity struct {
	Subject   string
	Scope     any
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginRequest carries a login attempt. SessionID and Answer are only
// consulted when captcha mode is on.
type LoginRequest struct {
	Username  string
	Password  string
	SessionID string
	Answer    string
}
