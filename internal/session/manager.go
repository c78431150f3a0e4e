// Package session owns the registry of live browser sessions keyed by caller
// session identifier. It is the only component that creates or tears down
// browser sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/internal/observability"
)

var (
	// ErrManagerClosed is returned by Acquire after Shutdown.
	ErrManagerClosed = errors.New("session manager is shut down")
	// ErrTooManySessions is returned when the live session cap is reached.
	ErrTooManySessions = errors.New("too many active sessions")
)

// Eviction reasons, used as the metric label.
const (
	reasonIdle     = "idle"
	reasonExplicit = "explicit"
	reasonShutdown = "shutdown"
	reasonDead     = "dead"
)

// Handle is a resource the manager keeps alive between invocations. Closed
// reports a handle that died on its own and must be replaced.
type Handle interface {
	Close(ctx context.Context)
	Closed() bool
	CreatedAt() time.Time
}

// Factory creates the handle for a new session identifier.
type Factory[H Handle] func(ctx context.Context, id string) (H, error)

type entry[H Handle] struct {
	id string

	// lock serializes invocations on one identifier. A buffered channel so
	// waiters can give up when their context ends.
	lock chan struct{}

	// Guarded by Manager.mu.
	handle   H
	ready    bool
	refs     int
	removed  bool
	lastUsed time.Time
	timer    *time.Timer
}

// Manager maps session identifiers to live handles and evicts handles that sit
// unused for longer than the idle timeout.
type Manager[H Handle] struct {
	factory     Factory[H]
	idleTimeout time.Duration
	maxSessions int
	logger      *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry[H]
	closed  bool
	evictWg sync.WaitGroup
}

// Options configures a Manager.
type Options struct {
	IdleTimeout time.Duration
	// MaxSessions caps live sessions; zero means unbounded.
	MaxSessions int
}

// NewManager creates a session manager around factory.
func NewManager[H Handle](factory Factory[H], opts Options, logger *zap.Logger) (*Manager[H], error) {
	if factory == nil {
		return nil, fmt.Errorf("session factory must be provided")
	}
	if opts.IdleTimeout <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive")
	}
	return &Manager[H]{
		factory:     factory,
		idleTimeout: opts.IdleTimeout,
		maxSessions: opts.MaxSessions,
		logger:      logger.Named("session_manager"),
		entries:     make(map[string]*entry[H]),
	}, nil
}

// Acquire returns the live handle for id, creating it on first use. Concurrent
// callers with the same id are served one at a time; the returned release func
// must be called when the caller is done and restarts the idle timer.
func (m *Manager[H]) Acquire(ctx context.Context, id string) (H, func(), error) {
	var zero H
	for {
		e, err := m.reserve(id)
		if err != nil {
			return zero, nil, err
		}

		select {
		case e.lock <- struct{}{}:
		case <-ctx.Done():
			m.unreserve(e)
			return zero, nil, ctx.Err()
		}

		m.mu.Lock()
		removed, ready, h := e.removed, e.ready, e.handle
		m.mu.Unlock()
		if removed {
			// Closed while we waited; start over with a fresh entry.
			<-e.lock
			m.unreserve(e)
			continue
		}

		if ready && h.Closed() {
			m.logger.Warn("Session is no longer alive, replacing it.", zap.String("session_id", id))
			m.closeHandle(ctx, e, reasonDead)
			ready = false
		}

		if !ready {
			var err error
			h, err = m.factory(ctx, id)
			if err != nil {
				<-e.lock
				m.unreserve(e)
				return zero, nil, fmt.Errorf("creating session %s: %w", id, err)
			}
			m.mu.Lock()
			e.handle, e.ready = h, true
			m.mu.Unlock()
			observability.ActiveSessions.Inc()
			m.logger.Info("Session created.", zap.String("session_id", id))
		} else {
			m.logger.Debug("Reusing session.", zap.String("session_id", id))
		}

		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.lock
				m.unreserve(e)
			})
		}
		return h, release, nil
	}
}

// reserve finds or creates the entry for id and pins it against eviction.
func (m *Manager[H]) reserve(id string) (*entry[H], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	e, ok := m.entries[id]
	if !ok {
		if m.maxSessions > 0 && len(m.entries) >= m.maxSessions {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.maxSessions)
		}
		e = &entry[H]{id: id, lock: make(chan struct{}, 1)}
		m.entries[id] = e
	}
	e.refs++
	if e.timer != nil {
		e.timer.Stop()
	}
	return e, nil
}

// unreserve drops a pin and restarts the idle timer once nobody holds the entry.
func (m *Manager[H]) unreserve(e *entry[H]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs > 0 || e.removed {
		return
	}
	if !e.ready {
		// Creation failed and nobody else is waiting.
		delete(m.entries, e.id)
		return
	}
	e.lastUsed = time.Now()
	if e.timer == nil {
		e.timer = time.AfterFunc(m.idleTimeout, func() { m.evictIdle(e) })
	} else {
		e.timer.Reset(m.idleTimeout)
	}
}

func (m *Manager[H]) evictIdle(e *entry[H]) {
	m.mu.Lock()
	if e.removed || e.refs > 0 || m.entries[e.id] != e || time.Since(e.lastUsed) < m.idleTimeout {
		m.mu.Unlock()
		return
	}
	delete(m.entries, e.id)
	e.removed = true
	m.evictWg.Add(1)
	m.mu.Unlock()
	defer m.evictWg.Done()

	m.logger.Info("Evicting idle session.", zap.String("session_id", e.id), zap.Duration("idle_timeout", m.idleTimeout))
	m.closeHandle(context.Background(), e, reasonIdle)
}

// Close tears down the session for id, waiting for any in-flight invocation on
// it to finish first. It reports whether a session existed.
func (m *Manager[H]) Close(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.entries, id)
	e.removed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	m.mu.Unlock()

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return true, fmt.Errorf("waiting for session %s to become idle: %w", id, ctx.Err())
	}
	defer func() { <-e.lock }()

	m.logger.Info("Closing session.", zap.String("session_id", id))
	m.closeHandle(ctx, e, reasonExplicit)
	return true, nil
}

// Shutdown closes every session and refuses new ones. Sessions still in use
// when ctx ends are closed anyway.
func (m *Manager[H]) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	open := make([]*entry[H], 0, len(m.entries))
	for id, e := range m.entries {
		e.removed = true
		if e.timer != nil {
			e.timer.Stop()
		}
		open = append(open, e)
		delete(m.entries, id)
	}
	m.mu.Unlock()

	m.logger.Info("Shutting down session manager.", zap.Int("open_sessions", len(open)))
	for _, e := range open {
		select {
		case e.lock <- struct{}{}:
			m.closeHandle(ctx, e, reasonShutdown)
			<-e.lock
		case <-ctx.Done():
			m.logger.Warn("Session still busy at shutdown, closing anyway.", zap.String("session_id", e.id))
			m.closeHandle(ctx, e, reasonShutdown)
		}
	}
	m.evictWg.Wait()
}

func (m *Manager[H]) closeHandle(ctx context.Context, e *entry[H], reason string) {
	m.mu.Lock()
	h, ready := e.handle, e.ready
	e.ready = false
	m.mu.Unlock()
	if !ready {
		return
	}
	h.Close(ctx)
	observability.ActiveSessions.Dec()
	observability.SessionEvictions.WithLabelValues(reason).Inc()
}

// Len returns the number of live sessions.
func (m *Manager[H]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Has reports whether a session exists for id.
func (m *Manager[H]) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}
