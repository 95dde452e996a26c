package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/layer-3/jwtgate/core"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every recognised option of the gateway
type Config struct {
	Port           int      `toml:"port"`
	SessionTTL     Duration `toml:"session_ttl"`
	SweepInterval  Duration `toml:"sweep_interval"`
	Expiry         Duration `toml:"expiry"`
	Issuer         string   `toml:"issuer"`
	Captcha        bool     `toml:"captcha"`
	Plaintext      bool     `toml:"plaintext"`
	PrivateKeyPath string   `toml:"private_key_path"`
	PublicKeyPath  string   `toml:"public_key_path"`
	UsersPath      string   `toml:"users_path"`
	RedisURL       string   `toml:"redis_url"`
	Env            string   `toml:"env"`
	LogLevel       string   `toml:"log_level"`
}

// Default returns the built-in defaults
func Default() Config {
	return Config{
		Port:          8000,
		SessionTTL:    Duration(5 * time.Minute),
		SweepInterval: Duration(time.Minute),
		Expiry:        Duration(24 * time.Hour),
		Issuer:        "test.jwt.server",
		Env:           EnvDevelopment,
		LogLevel:      "info",
	}
}

// Load applies defaults, then the TOML file at path when non-empty, then
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: decode %s: %v", core.ErrConfiguration, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			c.Port = p
		}
	}
	duration("SESSION_TTL", &c.SessionTTL)
	duration("SWEEP_INTERVAL", &c.SweepInterval)
	duration("EXPIRY", &c.Expiry)
	str("ISSUER", &c.Issuer)
	boolean("CAPTCHA", &c.Captcha)
	boolean("PLAINTEXT", &c.Plaintext)
	str("PRIVATE_KEY_PATH", &c.PrivateKeyPath)
	str("PUBLIC_KEY_PATH", &c.PublicKeyPath)
	str("USERS_PATH", &c.UsersPath)
	str("REDIS_URL", &c.RedisURL)
	str("JWTGATE_ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", core.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Validate checks that the required paths are set and values are sane
func (c Config) Validate() error {
	var problems []string
	if c.PrivateKeyPath == "" {
		problems = append(problems, "private_key_path is required")
	}
	if c.PublicKeyPath == "" {
		problems = append(problems, "public_key_path is required")
	}
	if c.UsersPath == "" {
		problems = append(problems, "users_path is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "session_ttl must be positive")
	}
	if c.Expiry <= 0 {
		problems = append(problems, "expiry must be positive")
	}
	// The memory store has no other eviction than its sweeper.
	if c.RedisURL == "" && c.SweepInterval <= 0 {
		problems = append(problems, "sweep_interval must be positive without redis_url")
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		problems = append(problems, fmt.Sprintf("unknown env %q", c.Env))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", core.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Production reports whether the gateway runs in production mode
func (c Config) Production() bool {
	return c.Env == EnvProduction
}
