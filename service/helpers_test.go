package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/jwtgate/adapters/hasher"
	"github.com/layer-3/jwtgate/adapters/store"
	"github.com/layer-3/jwtgate/adapters/tokenizer"
	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/ports"
)

var aliceScope = map[string]any{"roles": []any{"admin"}}

type staticPuzzles struct {
	answer string
}

func (p staticPuzzles) Generate() (core.Puzzle, error) {
	return core.Puzzle{Image: "data:image/png;base64,AAAA", Answer: p.answer}, nil
}

type countingHasher struct {
	ports.PasswordHasher

	mu     sync.Mutex
	hashes []string
}

func (c *countingHasher) Compare(hash, password string) bool {
	c.mu.Lock()
	c.hashes = append(c.hashes, hash)
	c.mu.Unlock()
	return c.PasswordHasher.Compare(hash, password)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []bool
}

func (r *recordingPublisher) PublishLogin(ctx context.Context, username string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, success)
	return nil
}

type fixture struct {
	service   *AuthService
	cache     *ChallengeCache
	store     *store.MemoryStore
	hasher    *countingHasher
	tokenizer ports.Tokenizer
	events    *recordingPublisher
}

func newFixture(t *testing.T, captcha bool) *fixture {
	t.Helper()

	hash, err := hasher.Hash("correct", bcrypt.MinCost)
	require.NoError(t, err)
	credentials := store.NewCredentialFile(map[string]store.UserEntry{
		"alice": {Password: hash, Scope: aliceScope},
	})

	bc, err := hasher.NewBcrypt(hasher.CostOf(credentials.PasswordHashes()))
	require.NoError(t, err)
	h := &countingHasher{PasswordHasher: bc}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok := tokenizer.NewJWTTokenizer(key, &key.PublicKey, tokenizer.WithIssuer("gateway.test"))

	mem := store.NewMemoryStore(0)
	t.Cleanup(func() { mem.Close() })

	f := &fixture{store: mem, hasher: h, tokenizer: tok, events: &recordingPublisher{}}

	opts := []Option{WithEventPublisher(f.events)}
	if captcha {
		f.cache = NewChallengeCache(mem, staticPuzzles{answer: "4711"}, time.Minute, testLogger())
		opts = append(opts, WithChallenges(f.cache))
	}
	f.service = NewAuthService(credentials, h, tok, opts...)
	return f
}
