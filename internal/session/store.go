// Package session keeps pipelines in memory, keyed by a random id, until they go idle.
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"geosort-service/internal/metrics"
	"geosort-service/internal/services"
)

// Factory builds the pipeline of a new session. sink receives its events.
// The returned closer, if any, is closed when the session ends.
type Factory func(ctx context.Context, sink func(services.Event)) (*services.Pipeline, io.Closer, error)

type Session struct {
	ID        string
	CreatedAt time.Time
	Pipeline  *services.Pipeline

	closer   io.Closer
	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	if s.closer == nil {
		return
	}
	if err := s.closer.Close(); err != nil {
		zap.L().Warn("session close failed", zap.String("session", s.ID), zap.Error(err))
	}
}

type Store struct {
	factory Factory
	broker  *Broker
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store. A ttl of zero or less disables eviction.
func NewStore(factory Factory, broker *Broker, ttl time.Duration) *Store {
	if broker == nil {
		broker = NewBroker()
	}
	return &Store{
		factory:  factory,
		broker:   broker,
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

func (s *Store) Broker() *Broker { return s.broker }

// Create starts a new session with a fresh pipeline.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()

	p, closer, err := s.factory(ctx, func(e services.Event) { s.broker.Publish(id, e) })
	if err != nil {
		return nil, eris.Wrap(err, "session: create pipeline")
	}

	now := s.now()
	sess := &Session{
		ID:        id,
		CreatedAt: now,
		Pipeline:  p,
		closer:    closer,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return sess, nil
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	sess.touch(s.now())
	return sess, true
}

// Subscribe returns a live session together with a channel of its events. The
// existence check and the subscription happen under the store lock, so a concurrent
// Delete either sees the subscription and closes it or the call reports false.
func (s *Store) Subscribe(id string) (*Session, chan services.Event, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, false
	}
	ch := s.broker.Subscribe(id)
	s.mu.Unlock()

	sess.touch(s.now())
	return sess, ch, true
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return false
	}
	metrics.ActiveSessions.Set(float64(n))
	s.broker.CloseSession(id)
	sess.close()
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict ends sessions idle for longer than the ttl. Sessions with a running pass are kept.
func (s *Store) Evict() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	var expired []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) && !sess.Pipeline.Loading() {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.Delete(id)
	}
	if len(expired) > 0 {
		zap.L().Info("evicted idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}

// Close ends every session.
func (s *Store) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Delete(id)
	}
}
