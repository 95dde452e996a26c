package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/core"
)

// DefaultSweepInterval is how often expired challenges are purged
const DefaultSweepInterval = time.Minute

// MemoryStore is an in-memory challenge store. Expired entries are inert
// on lookup and purged by a background sweeper.
type MemoryStore struct {
	challenges map[string]core.Challenge
	mu         sync.Mutex

	now    func() time.Time
	logger zerolog.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithLogger sets the logger used by the sweeper
func WithLogger(logger zerolog.Logger) MemoryOption {
	return func(s *MemoryStore) { s.logger = logger }
}

// NewMemoryStore creates a store and starts its sweeper. A non-positive
// interval disables the sweeper; call Close to stop it.
func NewMemoryStore(sweepInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		challenges: make(map[string]core.Challenge),
		now:        time.Now,
		logger:     zerolog.Nop(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.done)
	}

	return s
}

// Save stores a challenge, replacing any record with the same session id
func (s *MemoryStore) Save(ctx context.Context, challenge core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.SessionID] = challenge
	return nil
}

// Consume removes the challenge under the same lock as the lookup
func (s *MemoryStore) Consume(ctx context.Context, sessionID string) (core.Challenge, bool, error) {
	s.mu.Lock()
	challenge, ok := s.challenges[sessionID]
	delete(s.challenges, sessionID)
	s.mu.Unlock()

	if !ok || challenge.Expired(s.now()) {
		return core.Challenge{}, false, nil
	}

	return challenge, true, nil
}

// List returns pending, unexpired challenges ordered by creation time
func (s *MemoryStore) List(ctx context.Context) ([]core.Challenge, error) {
	now := s.now()

	s.mu.Lock()
	out := make([]core.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored records, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}

// Sweep removes every expired challenge and returns how many were removed
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, id)
			removed++
		}
	}
	return removed
}

// Close stops the sweeper and waits for it to exit
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug().Int("removed", n).Msg("swept expired challenges")
			}
		}
	}
}
