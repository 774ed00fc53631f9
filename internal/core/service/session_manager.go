package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rl1809/shop-cart/internal/port"
	"github.com/rl1809/shop-cart/pkg/logger"
	"github.com/rl1809/shop-cart/pkg/metrics"
)

const (
	DefaultMaxSessions = 10000
	DefaultSessionIdle = 30 * time.Minute
)

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// SessionManager owns the live Sessions and runs at most one operation per
// session at a time. Sessions idle for longer than the idle timeout, or
// pushed out by newer ones, are dropped and rehydrated from the store on
// their next use.
type SessionManager struct {
	engine  *Engine
	store   port.KeyValueStore
	log     *logger.Logger
	metrics *metrics.CartMetrics

	maxSessions int
	idle        time.Duration

	mu       sync.Mutex
	sessions *expirable.LRU[string, *sessionEntry]
}

type ManagerOption func(*SessionManager)

// WithCapacity bounds the registry to maxSessions entries, each kept for
// idle after its last use.
func WithCapacity(maxSessions int, idle time.Duration) ManagerOption {
	return func(m *SessionManager) {
		if maxSessions > 0 {
			m.maxSessions = maxSessions
		}
		if idle > 0 {
			m.idle = idle
		}
	}
}

func NewSessionManager(engine *Engine, store port.KeyValueStore, log *logger.Logger, m *metrics.CartMetrics, opts ...ManagerOption) *SessionManager {
	if log == nil {
		log = logger.Nop()
	}
	mgr := &SessionManager{
		engine:      engine,
		store:       store,
		log:         log,
		metrics:     m,
		maxSessions: DefaultMaxSessions,
		idle:        DefaultSessionIdle,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	mgr.sessions = expirable.NewLRU[string, *sessionEntry](mgr.maxSessions, nil, mgr.idle)
	return mgr
}

func (m *SessionManager) entry(id string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions.Get(id)
	if !ok {
		e = &sessionEntry{}
	}
	// Re-adding restarts the idle timer.
	m.sessions.Add(id, e)
	return e
}

// With runs fn against session id, rehydrating it from the store on first use.
func (m *SessionManager) With(ctx context.Context, id string, fn func(*Session) error) error {
	e := m.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		s := NewSession(id, m.engine, m.store, WithLogger(m.log), WithMetrics(m.metrics))
		s.Load(ctx)
		e.session = s
	}
	return fn(e.session)
}

// Len returns the number of sessions held in memory.
func (m *SessionManager) Len() int {
	return m.sessions.Len()
}
