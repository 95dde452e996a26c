package ports

import "github.com/layer-3/jwtgate/core"

// PasswordHasher compares a password against a stored hash
type PasswordHasher interface {
	Compare(hash, password string) bool
	// Placeholder returns a hash no password matches. It is compared
	// against when a user is unknown so both paths cost the same.
	Placeholder() string
}

// PuzzleGenerator produces a challenge puzzle and its answer
type PuzzleGenerator interface {
	Generate() (core.Puzzle, error)
}
