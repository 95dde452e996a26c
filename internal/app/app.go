package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/adapters/captcha"
	"github.com/layer-3/jwtgate/adapters/events"
	"github.com/layer-3/jwtgate/adapters/hasher"
	"github.com/layer-3/jwtgate/adapters/store"
	"github.com/layer-3/jwtgate/adapters/tokenizer"
	"github.com/layer-3/jwtgate/config"
	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/ports"
	"github.com/layer-3/jwtgate/service"
	transport "github.com/layer-3/jwtgate/transport/http"
)

// App is a fully wired gateway
type App struct {
	Service *service.AuthService
	Router  *gin.Engine

	closers []io.Closer
}

// New wires the gateway from cfg. Any configuration problem is returned
// wrapped in core.ErrConfiguration and the gateway must not start.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keys, err := config.LoadKeys(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}

	credentials, err := store.LoadCredentialFile(cfg.UsersPath)
	if err != nil {
		return nil, err
	}

	a := &App{}

	var pwHasher ports.PasswordHasher
	if cfg.Plaintext {
		logger.Warn().Msg("plaintext password compare is enabled, never use this in production")
		pwHasher, err = hasher.NewPlaintext()
	} else {
		pwHasher, err = hasher.NewBcrypt(hasher.CostOf(credentials.PasswordHashes()))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfiguration, err)
	}

	tok := tokenizer.NewJWTTokenizer(keys.Private, keys.Public,
		tokenizer.WithIssuer(cfg.Issuer),
		tokenizer.WithLifetime(cfg.Expiry.Std()),
	)

	var (
		redisClient    *redis.Client
		challengeStore ports.ChallengeStore
		publisher      message.Publisher
	)
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: parse redis url: %v", core.ErrConfiguration, err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("%w: connect to redis: %v", core.ErrConfiguration, err)
		}

		challengeStore = store.NewRedisStore(redisClient)
		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("%w: create redis publisher: %v", core.ErrConfiguration, err)
		}
		a.closers = append(a.closers, publisher, redisClient)
	} else {
		mem := store.NewMemoryStore(cfg.SweepInterval.Std(), store.WithLogger(logger))
		challengeStore = mem
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		a.closers = append(a.closers, publisher, mem)
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithEventPublisher(events.NewWatermillPublisher(publisher)),
	}
	if cfg.Captcha {
		cache := service.NewChallengeCache(challengeStore, captcha.NewGenerator(), cfg.SessionTTL.Std(), logger)
		opts = append(opts, service.WithChallenges(cache))
	}

	a.Service = service.NewAuthService(credentials, pwHasher, tok, opts...)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Router = transport.SetupRouter(a.Service, transport.Options{
		Issuer:     cfg.Issuer,
		Production: cfg.Production(),
		Logger:     logger,
	})

	logger.Info().
		Int("users", credentials.Len()).
		Bool("captcha", cfg.Captcha).
		Bool("redis", redisClient != nil).
		Str("issuer", cfg.Issuer).
		Msg("gateway configured")
	if cfg.Captcha {
		logger.Info().Msg("captcha challenge required")
	}

	return a, nil
}

// Close releases stores and publishers
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		// The stream publisher may already have closed the shared client.
		if err := c.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
