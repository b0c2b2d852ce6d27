package builder

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 1024
)

// Session pairs a Manager with the inbox its notices are queued in.
type Session struct {
	*Manager
	Inbox *Inbox
}

// Sessions keeps one builder session per actor. The empty actor id is the
// shared anonymous session. Sessions idle for longer than the TTL, or pushed
// out by newer ones past the size limit, are evicted and their staged media
// released.
type Sessions struct {
	svc  adService
	opts Options

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

func NewSessions(svc adService, opts Options) *Sessions {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	size := opts.MaxSessions
	if size <= 0 {
		size = DefaultMaxSessions
	}
	return &Sessions{
		svc:  svc,
		opts: opts,
		sessions: expirable.NewLRU[string, *Session](size, func(_ string, sess *Session) {
			sess.Release()
		}, ttl),
	}
}

// Get returns the actor's session, creating it on first use. Every call
// restarts the session's idle timer.
func (s *Sessions) Get(actorID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(actorID); ok {
		s.sessions.Add(actorID, sess)
		return sess
	}

	var owner *string
	if actorID != "" {
		id := actorID
		owner = &id
	}
	inbox := &Inbox{}
	sess := &Session{Manager: NewManager(s.svc, inbox, owner, s.opts), Inbox: inbox}
	s.sessions.Add(actorID, sess)
	return sess
}

// Drop forgets the actor's session and releases it.
func (s *Sessions) Drop(actorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(actorID)
}

func (s *Sessions) Len() int {
	return s.sessions.Len()
}
