package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/szymon/internal/instrumentation"
)

// DefaultStateTTL is how long a consent flow may take before its state is
// forgotten.
const DefaultStateTTL = 10 * time.Minute

var (
	errStateUnknown = errors.New("unknown or already used state")
	errStateExpired = errors.New("state expired")
)

// pendingState remembers which surface started a consent flow.
type pendingState struct {
	surface   string
	expiresAt time.Time
}

// stateStore holds the anti-forgery states of consent flows in flight.
// States are single use.
type stateStore struct {
	mu      sync.Mutex
	states  map[string]pendingState
	ttl     time.Duration
	now     func() time.Time
	metrics *instrumentation.Metrics
}

func newStateStore(ttl time.Duration, now func() time.Time, metrics *instrumentation.Metrics) *stateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if now == nil {
		now = time.Now
	}
	return &stateStore{
		states:  make(map[string]pendingState),
		ttl:     ttl,
		now:     now,
		metrics: metrics,
	}
}

// Put records state for surface and drops expired entries.
func (s *stateStore) Put(ctx context.Context, state, surface string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(ctx)
	if _, exists := s.states[state]; !exists {
		s.metrics.AddPendingStates(ctx, surface, 1)
	}
	s.states[state] = pendingState{surface: surface, expiresAt: s.now().Add(s.ttl)}
}

// Consume removes state and returns the surface that started the flow.
// It fails for states that were never issued, were already consumed or
// have expired.
func (s *stateStore) Consume(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, exists := s.states[state]
	if !exists || state == "" {
		return "", errStateUnknown
	}

	delete(s.states, state)
	s.metrics.AddPendingStates(ctx, pending.surface, -1)

	if s.now().After(pending.expiresAt) {
		return "", errStateExpired
	}
	return pending.surface, nil
}

// Len returns the number of states held, expired ones included.
func (s *stateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *stateStore) sweepLocked(ctx context.Context) {
	now := s.now()
	for state, pending := range s.states {
		if now.After(pending.expiresAt) {
			delete(s.states, state)
			s.metrics.AddPendingStates(ctx, pending.surface, -1)
		}
	}
}
