package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SessionCookie holds the visitor's session id.
const SessionCookie = "grantlens_session"

// Session store bounds.
const (
	DefaultMaxSessions = 10000
	DefaultSessionTTL  = 30 * time.Minute
)

type session struct {
	seen  time.Time
	pages map[string]map[string]string
}

// sessionStore remembers each session's last selections per page. It lives
// in memory only, holds at most size sessions (least recently used are
// evicted first) and forgets a session idle for longer than ttl.
type sessionStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *session]
	ttl   time.Duration
	now   func() time.Time
}

func newSessionStore(size int, ttl time.Duration) *sessionStore {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cache, err := lru.New[string, *session](size)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	return &sessionStore{cache: cache, ttl: ttl, now: time.Now}
}

// lookup returns the live session for id. Expired sessions are dropped.
// Callers hold mu.
func (s *sessionStore) lookup(id string) *session {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	if s.now().Sub(sess.seen) > s.ttl {
		s.cache.Remove(id)
		return nil
	}
	return sess
}

// get returns a copy of the stored selections, or nil.
func (s *sessionStore) get(id, page string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.lookup(id)
	if sess == nil {
		return nil
	}
	sess.seen = s.now()
	stored := sess.pages[page]
	if stored == nil {
		return nil
	}
	out := make(map[string]string, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out
}

func (s *sessionStore) put(id, page string, selections map[string]string) {
	copied := make(map[string]string, len(selections))
	for k, v := range selections {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.lookup(id)
	if sess == nil {
		sess = &session{pages: make(map[string]map[string]string)}
		s.cache.Add(id, sess)
	}
	sess.seen = s.now()
	sess.pages[page] = copied
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// sessionID reads the session cookie, issuing a fresh id when it is missing
// or not a uuid.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
