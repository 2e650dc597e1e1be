package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/settlement"
)

// Settings are the deployment defaults every session starts from.
type Settings struct {
	DefaultDrawID int64
	SeatPrice     int64
	IdleTimeout   time.Duration
}

// Shared are the process-wide collaborators handed to each orchestrator.
// Any of them may be nil.
type Shared struct {
	Journal  settlement.Journal
	Events   settlement.Publisher
	Reports  settlement.Invalidator
	Receipts settlement.ReceiptStore
}

// Connector binds a backend connection to an operator token.
type Connector func(token string) Backend

// Manager owns one Session per operator.
type Manager struct {
	connect  Connector
	settings Settings
	shared   Shared

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager.
func NewManager(connect Connector, settings Settings, shared Shared) *Manager {
	return &Manager{connect: connect, settings: settings, shared: shared, sessions: map[string]*Session{}}
}

// Open returns the operator's session, creating and loading it on first
// use.  A session built for an older token is rebuilt with the new one.
func (m *Manager) Open(ctx context.Context, op model.Operator) (*Session, error) {
	key := op.Key()
	m.mu.Lock()
	s, ok := m.sessions[key]
	if ok && s.operator.Token == op.Token {
		m.mu.Unlock()
		return s, nil
	}
	s = newSession(op, m.connect(op.Token), m.settings, m.shared)
	m.sessions[key] = s
	m.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			m.forget(key, s)
			return nil, err
		}
		// The session stays: the grid shows the error and a retry works.
		log.Warnf("console: loading session for %s: %v", key, err)
	}
	return s, nil
}

// forget drops key only while it still maps to s.
func (m *Manager) forget(key string, s *Session) {
	m.mu.Lock()
	if m.sessions[key] == s {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	go s.Close()
}

// Get returns an existing session.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// Drop forgets the operator's session, on logout or a rejected token.
func (m *Manager) Drop(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if ok {
		go s.Close()
		log.Infof("console: session of %s dropped", key)
	}
}

// Sweep drops sessions idle for longer than the configured timeout.
func (m *Manager) Sweep(now time.Time) int {
	if m.settings.IdleTimeout <= 0 {
		return 0
	}
	m.mu.Lock()
	var stale []string
	for k, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.settings.IdleTimeout {
			stale = append(stale, k)
		}
	}
	m.mu.Unlock()
	for _, k := range stale {
		m.Drop(k)
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Sweep(now); n > 0 {
				log.Debugf("console: swept %d idle session(s)", n)
			}
		}
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
