package ports

import (
	"context"

	"github.com/layer-3/jwtgate/core"
)

// ChallengeStore holds pending challenges until they are consumed or expire
type ChallengeStore interface {
	Save(ctx context.Context, challenge core.Challenge) error
	// Consume removes the challenge and returns it. Only one caller can
	// ever observe a given session id; found is false for unknown or
	// already expired ids.
	Consume(ctx context.Context, sessionID string) (challenge core.Challenge, found bool, err error)
}

// ChallengeLister is implemented by stores that can enumerate pending challenges
type ChallengeLister interface {
	List(ctx context.Context) ([]core.Challenge, error)
}

// CredentialStore is a read-only view over registered principals
type CredentialStore interface {
	Lookup(username string) (core.Credential, bool)
}
