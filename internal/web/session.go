package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
)

const (
	sessionCookieName = "mural_session"
	// keySalt is fixed so the same secret yields the same key across restarts.
	keySalt = "mural-table-bot/session"
)

// Session is the state of one browser. Handlers hold mu for the whole
// request so uploads and edits of the same browser run one at a time.
type Session struct {
	ID    string
	Board *board.Board

	mu       sync.Mutex
	lastSeen time.Time

	// shown once on the next page render
	report *board.BatchReport
	flash  string
}

// SessionManager keeps sessions in memory, keyed by a signed cookie.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	key      []byte
	idle     time.Duration
	now      func() time.Time
	secure   bool
}

// NewSessionManager derives the cookie signing key from secret. An empty
// secret gives a random key, so sessions do not survive a restart.
func NewSessionManager(secret string, idle time.Duration) (*SessionManager, error) {
	var key []byte
	if secret == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	} else {
		key = argon2.IDKey([]byte(secret), []byte(keySalt), 1, 64*1024, 4, 32)
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		key:      key,
		idle:     idle,
		now:      time.Now,
	}, nil
}

// SetSecureCookies marks the session cookie Secure, for deployments behind TLS.
func (m *SessionManager) SetSecureCookies(secure bool) {
	m.secure = secure
}

func (m *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify returns the session id of a cookie value with a valid signature.
func (m *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	expected := m.sign(id)
	if !hmac.Equal([]byte(expected[len(id)+1:]), []byte(sig)) {
		return "", false
	}
	return id, true
}

// Get returns the session of the request, creating one and setting the
// cookie when the request has none or it is unknown.
func (m *SessionManager) Get(w http.ResponseWriter, r *http.Request) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, err := r.Cookie(sessionCookieName); err == nil {
		if id, ok := m.verify(c.Value); ok {
			if s, ok := m.sessions[id]; ok {
				s.lastSeen = m.now()
				return s
			}
		}
	}

	s := &Session{
		ID:       uuid.NewString(),
		Board:    board.New(),
		lastSeen: m.now(),
	}
	m.sessions[s.ID] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    m.sign(s.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info().Str("sessionId", s.ID).Msg("new web session created")
	return s
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// PruneIdle drops sessions not seen for longer than the idle timeout.
// Sessions in the middle of a request are kept.
func (m *SessionManager) PruneIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.idle)
	pruned := 0
	for id, s := range m.sessions {
		if !s.lastSeen.Before(cutoff) {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		delete(m.sessions, id)
		s.mu.Unlock()
		pruned++
	}
	if pruned > 0 {
		log.Info().Int("count", pruned).Msg("pruned idle web sessions")
	}
	return pruned
}
