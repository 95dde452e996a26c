package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/jwtgate/core"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"5m":     5 * time.Minute,
		"1d":     24 * time.Hour,
		"1.5d":   36 * time.Hour,
		"300000": 5 * time.Minute,
		"90s":    90 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "d", "abc", "5x"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL.Std())
	assert.Equal(t, 24*time.Hour, cfg.Expiry.Std())
	assert.Equal(t, "test.jwt.server", cfg.Issuer)
	assert.False(t, cfg.Captcha)
	assert.False(t, cfg.Plaintext)
	assert.False(t, cfg.Production())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwtgate.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 9000
issuer = "from.file"
session_ttl = "2m"
expiry = "7d"
captcha = true
users_path = "/etc/jwtgate/users.json"
`), 0o600))

	t.Setenv("ISSUER", "from.env")
	t.Setenv("SESSION_TTL", "60000")
	t.Setenv("JWTGATE_ENV", "production")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "from.env", cfg.Issuer)
	assert.Equal(t, time.Minute, cfg.SessionTTL.Std())
	assert.Equal(t, 7*24*time.Hour, cfg.Expiry.Std())
	assert.True(t, cfg.Captcha)
	assert.Equal(t, "/etc/jwtgate/users.json", cfg.UsersPath)
	assert.True(t, cfg.Production())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CAPTCHA", "maybe")
	_, err := Load("")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "private_key_path is required")

	cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.UsersPath = "a", "b", "c"
	assert.NoError(t, cfg.Validate())

	cfg.Env = "staging"
	assert.Error(t, cfg.Validate())
}

func TestValidateSweepInterval(t *testing.T) {
	cfg := Default()
	cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.UsersPath = "a", "b", "c"

	cfg.SweepInterval = 0
	err := cfg.Validate()
	require.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "sweep_interval")

	cfg.SweepInterval = Duration(-time.Second)
	assert.ErrorIs(t, cfg.Validate(), core.ErrConfiguration)

	// Redis expires challenges itself.
	cfg.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, cfg.Validate())
}

func encodeKeys(t *testing.T, key *rsa.PrivateKey) (privPEM, pubPEM []byte) {
	t.Helper()
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return privPEM, pubPEM
}

func TestParseKeys(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, pub := encodeKeys(t, key)
	keys, err := ParseKeys(priv, pub)
	require.NoError(t, err)
	assert.True(t, keys.Public.Equal(&key.PublicKey))

	_, otherPub := encodeKeys(t, other)
	_, err = ParseKeys(priv, otherPub)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = ParseKeys([]byte("garbage"), pub)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = LoadKeys(filepath.Join(t.TempDir(), "nope.pem"), "nope.pub")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
