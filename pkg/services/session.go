package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// maxSessionExchanges bounds the per-session history carried between
	// messages. Older exchanges fall off; the grounding snapshot is rebuilt
	// fresh per message anyway.
	maxSessionExchanges = 20

	sessionSweepInterval = time.Minute
)

// Exchange is one question/answer turn within a session.
type Exchange struct {
	Question string
	Answer   string
	At       time.Time
}

// Session is one caller's conversation state. Sessions hold only transient
// chat history; nothing here survives eviction.
type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CreatedAt  time.Time
	LastActive time.Time
	Exchanges  []Exchange
}

// SessionStore tracks conversation sessions in memory with an inactivity TTL.
// A janitor goroutine evicts idle sessions; Stop shuts it down.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewSessionStore creates the store and starts its janitor.
func NewSessionStore(ttl time.Duration, logger *zap.Logger) *SessionStore {
	s := &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
		logger:   logger.Named("sessions"),
	}
	go s.janitor()
	return s
}

// Touch returns the session for id, creating one when id is uuid.Nil or
// unknown or expired, and refreshes its activity timestamp. The returned
// session belongs to the store; callers append history via Record.
func (s *SessionStore) Touch(id, userID uuid.UUID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if sess, ok := s.sessions[id]; ok && sess.UserID == userID && now.Sub(sess.LastActive) <= s.ttl {
		sess.LastActive = now
		return sess
	}

	sess := &Session{
		ID:         uuid.New(),
		UserID:     userID,
		CreatedAt:  now,
		LastActive: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Record appends one exchange to a session's history, dropping the oldest
// entry past the history bound.
func (s *SessionStore) Record(id uuid.UUID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Exchanges = append(sess.Exchanges, Exchange{Question: question, Answer: answer, At: time.Now()})
	if len(sess.Exchanges) > maxSessionExchanges {
		sess.Exchanges = sess.Exchanges[len(sess.Exchanges)-maxSessionExchanges:]
	}
	sess.LastActive = time.Now()
}

// History returns a copy of the last n exchanges of a session, oldest first.
// Unknown sessions yield nil.
func (s *SessionStore) History(id uuid.UUID, n int) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || len(sess.Exchanges) == 0 {
		return nil
	}
	start := 0
	if len(sess.Exchanges) > n {
		start = len(sess.Exchanges) - n
	}
	out := make([]Exchange, len(sess.Exchanges)-start)
	copy(out, sess.Exchanges[start:])
	return out
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop terminates the janitor. Safe to call more than once.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SessionStore) janitor() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *SessionStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive) > s.ttl {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle sessions", zap.Int("count", evicted), zap.Int("remaining", len(s.sessions)))
	}
}

// expireForTest backdates a session's activity so TTL tests do not sleep.
func (s *SessionStore) expireForTest(id uuid.UUID, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastActive = sess.LastActive.Add(-by)
	}
}
