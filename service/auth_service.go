package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/ports"
)

// AuthService handles authentication business logic
type AuthService struct {
	credentials ports.CredentialStore
	hasher      ports.PasswordHasher
	tokenizer   ports.Tokenizer
	challenges  *ChallengeCache
	eventPub    ports.EventPublisher
	logger      zerolog.Logger
}

// Option configures an AuthService
type Option func(*AuthService)

// WithChallenges requires a solved challenge on every login
func WithChallenges(cache *ChallengeCache) Option {
	return func(s *AuthService) { s.challenges = cache }
}

// WithEventPublisher publishes every login decision
func WithEventPublisher(pub ports.EventPublisher) Option {
	return func(s *AuthService) { s.eventPub = pub }
}

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	credentials ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokenizer ports.Tokenizer,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		credentials: credentials,
		hasher:      hasher,
		tokenizer:   tokenizer,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChallengesEnabled reports whether logins require a solved challenge
func (s *AuthService) ChallengesEnabled() bool {
	return s.challenges != nil
}

// Challenges returns the challenge cache, nil when challenges are disabled
func (s *AuthService) Challenges() *ChallengeCache {
	return s.challenges
}

// CreateChallenge issues a new challenge
func (s *AuthService) CreateChallenge(ctx context.Context) (core.ChallengeTicket, error) {
	if s.challenges == nil {
		return core.ChallengeTicket{}, fmt.Errorf("challenges are disabled")
	}
	return s.challenges.Create(ctx)
}

// Authenticate checks the challenge, then the credentials, and returns a
// signed token. Every rejection is core.ErrInvalidLogin.
func (s *AuthService) Authenticate(ctx context.Context, req core.LoginRequest) (string, error) {
	log := s.logger.With().Str("username", req.Username).Logger()

	if s.challenges != nil {
		if !s.challenges.ConsumeAndValidate(ctx, req.SessionID, req.Answer) {
			log.Info().Msg("invalid captcha")
			s.publish(ctx, req.Username, false)
			return "", core.ErrInvalidLogin
		}
	}

	cred, found := s.credentials.Lookup(req.Username)

	// The comparison runs for unknown users too so timing does not leak
	// which usernames exist.
	hash := s.hasher.Placeholder()
	if found {
		hash = cred.PasswordHash
	}
	match := s.hasher.Compare(hash, req.Password)

	if !match || !found {
		log.Info().Msg("invalid login")
		s.publish(ctx, req.Username, false)
		return "", core.ErrInvalidLogin
	}

	token, err := s.tokenizer.Issue(cred.Username, cred.Scope)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token")
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info().Msg("login success")
	s.publish(ctx, req.Username, true)
	return token, nil
}

// Verify validates a presented token. Every rejection is core.ErrInvalidToken.
func (s *AuthService) Verify(ctx context.Context, token string) (*core.Identity, error) {
	identity, err := s.tokenizer.Verify(token)
	if err != nil {
		s.logger.Info().Err(err).Msg("invalid token")
		return nil, core.ErrInvalidToken
	}
	return identity, nil
}

func (s *AuthService) publish(ctx context.Context, username string, success bool) {
	if s.eventPub == nil {
		return
	}
	// Best effort, the login outcome stands either way.
	if err := s.eventPub.PublishLogin(ctx, username, success); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish login event")
	}
}
