package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/ports"
)

// DefaultSessionTTL is how long a challenge can be answered
const DefaultSessionTTL = 5 * time.Minute

// ChallengeCache issues single-use captcha challenges
type ChallengeCache struct {
	store     ports.ChallengeStore
	generator ports.PuzzleGenerator
	ttl       time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewChallengeCache creates a cache over store. A non-positive ttl selects DefaultSessionTTL.
func NewChallengeCache(store ports.ChallengeStore, generator ports.PuzzleGenerator, ttl time.Duration, logger zerolog.Logger) *ChallengeCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &ChallengeCache{
		store:     store,
		generator: generator,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// TTL returns the challenge lifetime
func (c *ChallengeCache) TTL() time.Duration { return c.ttl }

// Create generates a puzzle and stores its answer under a fresh session id
func (c *ChallengeCache) Create(ctx context.Context) (core.ChallengeTicket, error) {
	puzzle, err := c.generator.Generate()
	if err != nil {
		return core.ChallengeTicket{}, fmt.Errorf("failed to generate puzzle: %w", err)
	}

	now := c.now()
	challenge := core.Challenge{
		SessionID: uuid.NewString(),
		Answer:    puzzle.Answer,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	if err := c.store.Save(ctx, challenge); err != nil {
		return core.ChallengeTicket{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	return core.ChallengeTicket{
		SessionID: challenge.SessionID,
		Puzzle:    puzzle.Image,
		TTL:       c.ttl,
	}, nil
}

// ConsumeAndValidate removes the challenge and reports whether answer
// matched a live record. The session id is spent even on failure.
func (c *ChallengeCache) ConsumeAndValidate(ctx context.Context, sessionID, answer string) bool {
	if sessionID == "" {
		return false
	}

	challenge, found, err := c.store.Consume(ctx, sessionID)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to consume challenge")
		return false
	}
	if !found {
		return false
	}

	// Stores with native expiry leave ExpiresAt zero.
	if !challenge.ExpiresAt.IsZero() && challenge.Expired(c.now()) {
		return false
	}

	return challenge.Answer == answer
}

// Pending lists unexpired challenges when the store supports it
func (c *ChallengeCache) Pending(ctx context.Context) ([]core.Challenge, error) {
	lister, ok := c.store.(ports.ChallengeLister)
	if !ok {
		return nil, fmt.Errorf("challenge store cannot list sessions")
	}
	return lister.List(ctx)
}
