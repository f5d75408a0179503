package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/conf"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newCookieSessions(t *testing.T) *CookieSessions {
	t.Helper()
	cs, err := NewCookieSessions(&conf.SecuritySettings{SessionSecret: testSecret, SessionDuration: time.Hour})
	require.NoError(t, err)
	return cs
}

func TestNewCookieSessionsRejectsShortSecret(t *testing.T) {
	t.Parallel()
	_, err := NewCookieSessions(&conf.SecuritySettings{SessionSecret: "short"})
	require.Error(t, err)
}

func TestCookieSessionRoundTrip(t *testing.T) {
	t.Parallel()
	cs := newCookieSessions(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/login", http.NoBody)
	require.NoError(t, cs.Save(rec, req, "session-token"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.NotContains(t, cookie.Value, "session-token", "cookie is encrypted")

	next := httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses", http.NoBody)
	next.AddCookie(cookie)
	assert.Equal(t, "session-token", cs.Token(next))

	// a store with a different secret cannot read it; a fresh request keeps
	// gorilla's per-request registry from handing back the decoded session
	other, err := NewCookieSessions(&conf.SecuritySettings{SessionSecret: testSecret + "x"})
	require.NoError(t, err)
	foreign := httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses", http.NoBody)
	foreign.AddCookie(cookie)
	assert.Empty(t, other.Token(foreign))
}

func TestCookieSessionClear(t *testing.T) {
	t.Parallel()
	cs := newCookieSessions(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/logout", http.NoBody)
	require.NoError(t, cs.Clear(rec, req))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
	assert.Empty(t, cs.Token(httptest.NewRequest(http.MethodGet, "/", http.NoBody)))
}

func TestLoginLimiter(t *testing.T) {
	t.Parallel()

	l := NewLoginLimiter(60, 3)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := range 3 {
		assert.True(t, l.Allow("10.0.0.1"), "attempt %d within burst", i)
	}
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "clients are independent")

	// one token per second at 60 per minute
	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	assert.Equal(t, 2, l.Len())
	now = now.Add(limiterIdleTimeout + time.Minute)
	assert.Equal(t, 2, l.Prune())
	assert.Zero(t, l.Len())
}

func TestLoginLimiterDefaults(t *testing.T) {
	t.Parallel()
	l := NewLoginLimiter(0, 0)
	assert.Equal(t, DefaultLoginBurst, l.burst)
	for range DefaultLoginBurst {
		assert.True(t, l.Allow("client"))
	}
	assert.False(t, l.Allow("client"))
}
