// Package account implements signup, login and persisted login sessions.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
	"github.com/tphakala/mediscan/internal/privacy"
)

// Sentinel errors. Returned errors wrap one of these.
var (
	ErrDuplicateEmail     = errors.NewStd("email already registered")
	ErrUserNotFound       = errors.NewStd("user not found")
	ErrInvalidCredentials = errors.NewStd("invalid credentials")
	ErrInvalidInput       = errors.NewStd("invalid input")
)

// Metric results
const (
	resultSuccess            = "success"
	resultDuplicateEmail     = "duplicate_email"
	resultUserNotFound       = "user_not_found"
	resultInvalidCredentials = "invalid_credentials"
	resultInvalidInput       = "invalid_input"
	resultError              = "error"
)

// DefaultSessionDuration is used when Config.SessionDuration is zero.
const DefaultSessionDuration = 24 * time.Hour

// Config holds the account store settings.
type Config struct {
	Secret          []byte        // HMAC key for session tokens
	SessionDuration time.Duration // lifetime of a session
}

// ConfigFromSettings builds a Config from the security settings.
func ConfigFromSettings(s *conf.SecuritySettings) Config {
	return Config{
		Secret:          []byte(s.SessionSecret),
		SessionDuration: s.SessionDuration,
	}
}

// Session is an authenticated login. Token is opaque to callers and is what
// they present to CurrentSession and Logout.
type Session struct {
	ID        string
	Token     string
	User      *datastore.User
	ExpiresAt time.Time
}

// Store manages accounts and sessions on top of the datastore. It holds no
// per-user state and is safe for concurrent use.
type Store struct {
	ds       datastore.Interface
	cfg      Config
	verifier CredentialVerifier
	metrics  *metrics.AccountMetrics
	log      logger.Logger
	now      func() time.Time
}

// New creates a Store. A nil verifier uses bcrypt with the default cost.
func New(ds datastore.Interface, cfg Config, verifier CredentialVerifier) (*Store, error) {
	if ds == nil {
		return nil, errors.Newf("account store requires a datastore").
			Component("account").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.Newf("account store requires a session secret").
			Component("account").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	if verifier == nil {
		verifier = BcryptVerifier{}
	}
	return &Store{
		ds:       ds,
		cfg:      cfg,
		verifier: verifier,
		log:      GetLogger(),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetMetrics attaches account metrics. A nil value disables recording.
func (s *Store) SetMetrics(m *metrics.AccountMetrics) {
	s.metrics = m
}

// GetLogger returns the account module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("account")
}

// Signup registers a user and opens a session for them.
func (s *Store) Signup(ctx context.Context, fullName, email, password string) (_ *Session, err error) {
	defer func() { s.record("signup", err) }()

	email = normalizeEmail(email)
	if verr := validateSignup(fullName, email, password); verr != nil {
		return nil, inputError(verr, "signup")
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to hash password: %w", err)).
			Component("account").
			Category(errors.CategorySystem).
			Context("operation", "signup").
			Build()
	}

	user := &datastore.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		JoinedAt:     s.now(),
	}
	if err := s.ds.CreateUser(ctx, user); err != nil {
		if errors.Is(err, datastore.ErrDuplicate) {
			return nil, errors.New(fmt.Errorf("%w: %s", ErrDuplicateEmail, email)).
				Component("account").
				Category(errors.CategoryConflict).
				Context("operation", "signup").
				Build()
		}
		return nil, err
	}

	s.log.Info("user registered", logger.String("user_id", user.ID))
	return s.openSession(ctx, user)
}

// Login checks credentials and opens a new session. Input is not validated:
// an address with no account is ErrUserNotFound and any password that does
// not match, empty included, is ErrInvalidCredentials.
func (s *Store) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	defer func() { s.record("login", err) }()

	email = normalizeEmail(email)
	user, err := s.ds.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.log.Info("login for unknown email", logger.String("email", privacy.RedactEmail(email)))
			return nil, errors.New(fmt.Errorf("%w: %s", ErrUserNotFound, email)).
				Component("account").
				Category(errors.CategoryNotFound).
				Context("operation", "login").
				Build()
		}
		return nil, err
	}

	if verr := s.verifier.Verify(user.PasswordHash, password); verr != nil {
		if !errors.Is(verr, ErrPasswordMismatch) {
			s.log.Warn("stored password hash could not be checked",
				logger.String("user_id", user.ID),
				logger.Error(verr))
		}
		return nil, errors.New(ErrInvalidCredentials).
			Component("account").
			Category(errors.CategoryAuthentication).
			Context("operation", "login").
			Build()
	}

	return s.openSession(ctx, user)
}

// Logout revokes the session behind token. Empty, unknown or tampered
// tokens are ignored.
func (s *Store) Logout(ctx context.Context, token string) (err error) {
	defer func() { s.record("logout", err) }()

	if token == "" {
		return nil
	}
	claims, perr := s.parseToken(token, true)
	if perr != nil {
		s.log.Debug("logout with unusable token", logger.Error(perr))
		return nil
	}

	if _, gerr := s.ds.GetSession(ctx, claims.ID); gerr != nil {
		if errors.IsNotFound(gerr) {
			return nil
		}
		return gerr
	}
	if err := s.ds.DeleteSession(ctx, claims.ID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SessionClosed()
	}
	s.log.Info("session closed", logger.String("user_id", claims.Subject))
	return nil
}

// CurrentSession restores the session behind token from the datastore.
// It returns nil, nil when there is no active session.
func (s *Store) CurrentSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.parseToken(token, false)
	if err != nil {
		s.log.Debug("token rejected", logger.Error(err))
		return nil, nil
	}

	row, err := s.ds.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if row.UserID != claims.Subject || row.Expired(s.now()) {
		return nil, nil
	}

	return &Session{
		ID:        row.ID,
		Token:     token,
		User:      row.User,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// PurgeExpired removes expired session rows and returns how many went.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.ds.PurgeExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if s.metrics != nil {
			s.metrics.SessionsPurged(n)
		}
		s.log.Debug("expired sessions purged", logger.Int64("count", n))
	}
	return n, nil
}

func (s *Store) openSession(ctx context.Context, user *datastore.User) (*Session, error) {
	now := s.now()
	row := &datastore.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}

	token, err := s.signToken(row.ID, user.ID, now, row.ExpiresAt)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to sign session token: %w", err)).
			Component("account").
			Category(errors.CategorySystem).
			Build()
	}
	if err := s.ds.CreateSession(ctx, row); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}

	return &Session{
		ID:        row.ID,
		Token:     token,
		User:      user,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (s *Store) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(operation, resultOf(err))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, ErrDuplicateEmail):
		return resultDuplicateEmail
	case errors.Is(err, ErrUserNotFound):
		return resultUserNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return resultInvalidCredentials
	case errors.Is(err, ErrInvalidInput):
		return resultInvalidInput
	default:
		return resultError
	}
}

func inputError(cause error, operation string) error {
	return errors.New(fmt.Errorf("%w: %w", ErrInvalidInput, cause)).
		Component("account").
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}
