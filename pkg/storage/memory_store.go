package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polisai/omnis/pkg/domain"
)

// MemorySessionStore is an in-memory implementation of SessionStore.
// The lock guards map access only; concurrent writers for the same identity are
// last-write-wins.
type MemorySessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*domain.Session
	defaultView domain.View
	now         func() time.Time
	logger      *slog.Logger
}

// NewMemorySessionStore creates an empty store. New sessions start on defaultView
// (DAG when blank).
func NewMemorySessionStore(defaultView domain.View, logger *slog.Logger) *MemorySessionStore {
	if defaultView == "" {
		defaultView = domain.ViewDAG
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MemorySessionStore{
		sessions:    make(map[string]*domain.Session),
		defaultView: defaultView,
		now:         time.Now,
		logger:      logger,
	}
}

// Upsert stores the latest prompt and attachments for identity.
func (s *MemorySessionStore) Upsert(_ context.Context, identity, prompt string, attachments []domain.Attachment) (domain.Session, error) {
	if identity == "" {
		return domain.Session{}, &domain.ValidationError{Field: "identity", Reason: "must not be blank"}
	}

	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getOrCreateLocked(identity, now)
	session.LastPrompt = prompt
	session.Attachments = domain.CloneAttachments(attachments)
	session.UpdatedAt = now

	return session.Clone(), nil
}

// Get returns a copy of the session for identity.
func (s *MemorySessionStore) Get(_ context.Context, identity string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[identity]
	if !ok {
		return domain.Session{}, false
	}
	return session.Clone(), true
}

// Reset clears the prompt and attachments for identity. Unknown identities are ignored.
func (s *MemorySessionStore) Reset(_ context.Context, identity string, resetView bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[identity]
	if !ok {
		return nil
	}

	session.LastPrompt = ""
	session.Attachments = nil
	if resetView {
		session.PreferredView = s.defaultView
	}
	session.UpdatedAt = s.now().UTC()

	s.logger.Debug("Session reset", "identity", identity, "reset_view", resetView)
	return nil
}

// SetPreferredView records an explicit view change.
func (s *MemorySessionStore) SetPreferredView(_ context.Context, identity string, view domain.View) (domain.Session, error) {
	if identity == "" {
		return domain.Session{}, &domain.ValidationError{Field: "identity", Reason: "must not be blank"}
	}
	if !view.Valid() {
		return domain.Session{}, &domain.ValidationError{Field: "preferredView", Reason: "unknown view " + string(view)}
	}

	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getOrCreateLocked(identity, now)
	session.PreferredView = view
	session.UpdatedAt = now

	return session.Clone(), nil
}

// Count returns the number of known identities.
func (s *MemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close is a no-op for memory store.
func (s *MemorySessionStore) Close() error {
	return nil
}

func (s *MemorySessionStore) getOrCreateLocked(identity string, now time.Time) *domain.Session {
	session, ok := s.sessions[identity]
	if ok {
		return session
	}

	session = &domain.Session{
		Identity:      identity,
		PreferredView: s.defaultView,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.sessions[identity] = session

	s.logger.Info("Session created", "identity", identity)
	return session
}
