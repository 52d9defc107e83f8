package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionManager_ReusesSignedCookie(t *testing.T) {
	m, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	first := m.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	second := m.Get(rec, req)

	assert.Same(t, first, second)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, m.Len())
}

func TestSessionManager_RejectsTamperedCookie(t *testing.T) {
	m, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	first := m.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: first.ID + ".forged"})
	second := m.Get(httptest.NewRecorder(), req)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, m.Len())
}

func TestSessionManager_SameSecretSameKey(t *testing.T) {
	a, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)
	b, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)
	c, err := NewSessionManager("", time.Hour)
	require.NoError(t, err)

	signed := a.sign("abc")
	_, ok := b.verify(signed)
	assert.True(t, ok)
	_, ok = c.verify(signed)
	assert.False(t, ok)
}

func TestSessionManager_PruneIdle(t *testing.T) {
	m, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	busy := m.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	now = now.Add(2 * time.Hour)
	fresh := m.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	busy.mu.Lock()
	assert.Equal(t, 1, m.PruneIdle())
	busy.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.sessions, old.ID)
	assert.Contains(t, m.sessions, busy.ID)
	assert.Contains(t, m.sessions, fresh.ID)
}
