package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/storage"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
)

// Store holds all sessions in memory. New sessions are prepended, so the
// stored order is newest-created first; listings re-sort by update time at
// read time without touching the stored order.
//
// The store is the exclusive owner of all Session and Message values.
// Mutating methods address sessions by id so that long-latency callers
// never write through a stale captured reference.
type Store struct {
	mu       sync.RWMutex
	sessions []*tutor.Session
	activeID string

	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a session store, loading any persisted sessions from kv.
// A nil kv disables persistence; malformed persisted state loads as empty.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	s := &Store{
		kv:     kv,
		logger: logger,
	}

	if kv != nil {
		var persisted []*tutor.Session
		if storage.LoadJSON(kv, logger, storage.KeySessions, &persisted) {
			s.sessions = persisted
			logger.Info("Loaded persisted sessions",
				slog.Int("count", len(persisted)),
			)
		}
	}

	return s
}

// Create makes a new empty session with the default title, prepends it to
// the collection and makes it active.
func (s *Store) Create() tutor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &tutor.Session{
		ID:        tutor.NewID(),
		Title:     tutor.DefaultSessionTitle,
		Messages:  []tutor.Message{},
		UpdatedAt: time.Now(),
	}

	s.sessions = append([]*tutor.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.persistLocked()

	s.logger.Info("Created new session",
		slog.String("session_id", sess.ID),
	)

	return sess.Clone()
}

// Select makes the session with the given id active. Selecting an unknown
// id is a no-op and returns false.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) == nil {
		return false
	}
	s.activeID = id
	return true
}

// ActiveID returns the id of the active session, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a snapshot of the active session.
func (s *Store) Active() (tutor.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.findLocked(s.activeID)
	if sess == nil {
		return tutor.Session{}, false
	}
	return sess.Clone(), true
}

// Get returns a snapshot of the session with the given id.
func (s *Store) Get(id string) (tutor.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.findLocked(id)
	if sess == nil {
		return tutor.Session{}, false
	}
	return sess.Clone(), true
}

// Update replaces the stored session with the same id. Updates targeting a
// missing session are silently dropped.
func (s *Store) Update(updated tutor.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == updated.ID {
			clone := updated.Clone()
			s.sessions[i] = &clone
			s.persistLocked()
			return
		}
	}
}

// Delete removes the session with the given id and clears the active
// pointer if it referenced the deleted session. Returns false for unknown
// ids.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			if s.activeID == id {
				s.activeID = ""
			}
			s.persistLocked()

			s.logger.Info("Deleted session",
				slog.String("session_id", id),
				slog.String("title", sess.Title),
			)
			return true
		}
	}
	return false
}

// List returns snapshots of all sessions ordered by update time, most
// recently active first. The sort is applied to the returned view only.
func (s *Store) List() []tutor.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tutor.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	return out
}

// Count returns the number of stored sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// AppendMessage appends msg to the session with the given id and refreshes
// its update time. It returns the message count after the append and
// whether the session was found; appends targeting a missing session are
// silent no-ops.
func (s *Store) AppendMessage(id string, msg tutor.Message) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(id)
	if sess == nil {
		return 0, false
	}

	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()
	s.persistLocked()

	return len(sess.Messages), true
}

// SetTitle sets the title of the session with the given id. A no-op for
// missing sessions.
func (s *Store) SetTitle(id, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findLocked(id)
	if sess == nil {
		return false
	}

	sess.Title = title
	s.persistLocked()
	return true
}

// findLocked returns the stored session with the given id. Callers must
// hold the lock.
func (s *Store) findLocked(id string) *tutor.Session {
	if id == "" {
		return nil
	}
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// persistLocked writes the full session collection through the storage
// collaborator. Callers must hold the lock.
func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	if err := storage.SaveJSON(s.kv, storage.KeySessions, s.sessions); err != nil {
		s.logger.Warn("Failed to persist sessions",
			slog.String("error", err.Error()),
		)
	}
}
