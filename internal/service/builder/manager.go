package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models/prd"
	domainservices "prdbuilder/internal/domain/services"
	"prdbuilder/internal/metrics"
	"prdbuilder/internal/service/completion"
	"prdbuilder/internal/service/eventloop"
)

type session struct {
	userID      string
	coordinator *Coordinator
	lastUsed    time.Time
}

// Manager keeps the open editing sessions, one per PRD
type Manager struct {
	store     domainservices.ContentStore
	validator *completion.Validator
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.AutoSave
	clock     eventloop.Clock

	// saveCtx is handed to every session's saves; sessions outlive the request that opened them
	saveCtx context.Context

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a session manager persisting through store
func NewManager(
	store domainservices.ContentStore,
	validator *completion.Validator,
	opts Options,
	logger *slog.Logger,
	m *metrics.AutoSave,
) *Manager {
	if validator == nil {
		validator = completion.NewValidator(nil)
	}
	clock := opts.Clock
	if clock == nil {
		clock = eventloop.SystemClock{}
	}
	return &Manager{
		store:     store,
		validator: validator,
		opts:      opts,
		logger:    logger,
		metrics:   m,
		clock:     clock,
		saveCtx:   context.Background(),
		sessions:  make(map[string]*session),
	}
}

// Open returns the user's session for prdID, creating it from stored content if needed.
// A load failure is returned as is and no session is created.
func (m *Manager) Open(ctx context.Context, userID, prdID string) (*Coordinator, error) {
	if c, ok := m.lookup(userID, prdID); ok {
		return c, nil
	}
	if _, taken := m.owner(prdID); taken {
		return nil, fmt.Errorf("prd %s is being edited in another session: %w", prdID, domain.ErrConflict)
	}

	content, err := m.store.LoadContent(ctx, userID, prdID)
	if err != nil {
		return nil, err
	}

	save := func(ctx context.Context, content prd.DocumentContent) error {
		return m.store.SaveContent(ctx, userID, prdID, content)
	}
	c := NewCoordinator(m.saveCtx, prdID, save, m.validator, m.opts, m.logger, m.metrics)
	if err := c.ReplaceContent(content); err != nil {
		c.Close()
		return nil, fmt.Errorf("load content: %w", err)
	}

	m.mu.Lock()
	if existing, ok := m.sessions[prdID]; ok {
		// Lost a race with a concurrent Open
		m.mu.Unlock()
		c.Close()
		if existing.userID != userID {
			return nil, fmt.Errorf("prd %s is being edited in another session: %w", prdID, domain.ErrConflict)
		}
		return existing.coordinator, nil
	}
	m.sessions[prdID] = &session{userID: userID, coordinator: c, lastUsed: m.clock.Now()}
	m.mu.Unlock()

	m.metrics.SessionOpened()
	m.logger.Info("editing session opened", "prd_id", prdID, "user_id", userID, "sections", len(content))
	return c, nil
}

// Get returns the user's open session for prdID
func (m *Manager) Get(userID, prdID string) (*Coordinator, error) {
	c, ok := m.lookup(userID, prdID)
	if !ok {
		return nil, &domain.SessionNotOpenError{PRDID: prdID}
	}
	return c, nil
}

// Close tears down the user's session for prdID
func (m *Manager) Close(userID, prdID string) error {
	m.mu.Lock()
	s, ok := m.sessions[prdID]
	if !ok || s.userID != userID {
		m.mu.Unlock()
		return &domain.SessionNotOpenError{PRDID: prdID}
	}
	delete(m.sessions, prdID)
	m.mu.Unlock()

	s.coordinator.Close()
	m.metrics.SessionClosed()
	m.logger.Info("editing session closed", "prd_id", prdID, "user_id", userID)
	return nil
}

// CloseAll tears down every session, e.g. on shutdown
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.coordinator.Close()
		m.metrics.SessionClosed()
	}
	if len(sessions) > 0 {
		m.logger.Info("closed all editing sessions", "count", len(sessions))
	}
}

// EvictIdle closes sessions unused for longer than the idle TTL and returns how
// many were closed. Sessions holding unsaved content are kept.
func (m *Manager) EvictIdle() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var idle []string
	for prdID, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			idle = append(idle, prdID)
		}
	}
	m.mu.Unlock()

	evicted := 0
	for _, prdID := range idle {
		if m.evict(prdID, cutoff) {
			evicted++
		}
	}
	return evicted
}

func (m *Manager) evict(prdID string, cutoff time.Time) bool {
	m.mu.Lock()
	s, ok := m.sessions[prdID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	unsaved, err := s.coordinator.HasUnsavedChanges()
	if err == nil && unsaved {
		m.logger.Debug("idle session kept, content not saved", "prd_id", prdID)
		return false
	}

	m.mu.Lock()
	// Used or replaced since the scan
	if current, ok := m.sessions[prdID]; !ok || current != s || !s.lastUsed.Before(cutoff) {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, prdID)
	m.mu.Unlock()

	s.coordinator.Close()
	m.metrics.SessionClosed()
	m.metrics.SessionEvicted()
	m.logger.Info("idle editing session evicted", "prd_id", prdID, "user_id", s.userID)
	return true
}

// RunEviction calls EvictIdle every interval until ctx is done
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	if m.opts.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(userID, prdID string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[prdID]
	if !ok || s.userID != userID {
		return nil, false
	}
	s.lastUsed = m.clock.Now()
	return s.coordinator, true
}

func (m *Manager) owner(prdID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[prdID]
	if !ok {
		return "", false
	}
	return s.userID, true
}
