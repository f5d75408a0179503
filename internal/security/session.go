// Package security provides the browser session cookie and the per-client
// login rate limiter used by the HTTP API.
package security

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
)

const (
	// SessionCookieName names the browser session cookie.
	SessionCookieName = "mediscan_session"

	tokenKey = "token"

	// MinSessionSecretLength is the shortest accepted session secret.
	MinSessionSecretLength = 32
)

// CookieSessions stores the account session token in a signed and
// encrypted cookie.
type CookieSessions struct {
	store *sessions.CookieStore
}

// NewCookieSessions builds the cookie store from the security settings.
func NewCookieSessions(settings *conf.SecuritySettings) (*CookieSessions, error) {
	if len(settings.SessionSecret) < MinSessionSecretLength {
		return nil, errors.Newf("session secret must be at least %d characters", MinSessionSecretLength).
			Component("security").
			Category(errors.CategoryConfiguration).
			Build()
	}

	authKey := createSessionKey(settings.SessionSecret)
	encKey := createSessionKey(settings.SessionSecret + "encryption")
	store := sessions.NewCookieStore(authKey, encKey)

	maxAge := settings.SessionDuration
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   settings.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieSessions{store: store}, nil
}

// Token returns the session token carried by the request cookie, or "".
func (c *CookieSessions) Token(r *http.Request) string {
	sess, err := c.store.Get(r, SessionCookieName)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[tokenKey].(string)
	return token
}

// Save writes token into the session cookie.
func (c *CookieSessions) Save(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := c.store.Get(r, SessionCookieName) // a stale cookie yields a fresh session
	sess.Values[tokenKey] = token
	if err := sess.Save(r, w); err != nil {
		return errors.New(err).
			Component("security").
			Category(errors.CategoryHTTP).
			Context("operation", "save_session_cookie").
			Build()
	}
	return nil
}

// Clear expires the session cookie.
func (c *CookieSessions) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, SessionCookieName)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return errors.New(err).
			Component("security").
			Category(errors.CategoryHTTP).
			Context("operation", "clear_session_cookie").
			Build()
	}
	return nil
}

// createSessionKey derives a 32 byte key from seed, suitable for AES-256.
func createSessionKey(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}
