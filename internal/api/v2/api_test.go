package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/tphakala/mediscan/internal/account"
	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/diagnosis"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/imagestore"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/observability"
	"github.com/tphakala/mediscan/internal/resolver"
	"github.com/tphakala/mediscan/internal/security"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

const testSecret = "0123456789abcdef0123456789abcdef"

var pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// fixedClassifier returns one prediction per organ.
type fixedClassifier struct{}

func (fixedClassifier) Classify(_ context.Context, organ knowledge.OrganType, _ classifier.Image) (classifier.Output, error) {
	if organ == knowledge.OrganBreast {
		return classifier.BreastOutput{Label: "malignant", Scores: map[string]float64{"Malignant": 0.88}}, nil
	}
	return classifier.BrainOutput{Label: "meningioma_tumor", Probability: 0.81}, nil
}

// failingClassifier always fails with err.
type failingClassifier struct{ err error }

func (c failingClassifier) Classify(context.Context, knowledge.OrganType, classifier.Image) (classifier.Output, error) {
	return nil, c.err
}

type testServer struct {
	e          *echo.Echo
	controller *Controller
	metrics    *observability.Metrics
}

func newTestServer(t *testing.T, mutate func(*conf.Settings, *Deps)) *testServer {
	t.Helper()

	settings := &conf.Settings{Version: "test"}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "api.db")
	settings.Security.SessionSecret = testSecret
	settings.Metrics.Enabled = true

	sqlite := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, sqlite.Open())
	t.Cleanup(func() { _ = sqlite.Close() })

	accounts, err := account.New(sqlite, account.Config{Secret: []byte(testSecret)},
		account.BcryptVerifier{Cost: bcrypt.MinCost})
	require.NoError(t, err)

	diagnoses, err := diagnosis.New(diagnosis.Deps{
		Store:      sqlite,
		Classifier: fixedClassifier{},
		Images:     imagestore.NewInline(1 << 20),
		Resolver:   resolver.New(resolver.FallbackVerbatim),
	}, diagnosis.Config{Source: "test"})
	require.NoError(t, err)
	t.Cleanup(diagnoses.Close)

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	deps := Deps{DS: sqlite, Accounts: accounts, Diagnoses: diagnoses, Metrics: m}
	if mutate != nil {
		mutate(settings, &deps)
	}

	e := echo.New()
	controller, err := New(e, settings, deps)
	require.NoError(t, err)
	e.HTTPErrorHandler = controller.HTTPErrorHandler
	t.Cleanup(controller.Shutdown)

	return &testServer{e: e, controller: controller, metrics: m}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func (s *testServer) signup(t *testing.T, email string) SessionResponse {
	t.Helper()
	rec := s.do(jsonRequest(http.MethodPost, "/api/v2/auth/signup",
		SignupRequest{FullName: "Test Patient", Email: email, Password: "secret1"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func imageRequest(t *testing.T, organ string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "scan.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/diagnoses/"+organ, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestNewRequiresServices(t *testing.T) {
	t.Parallel()
	_, err := New(echo.New(), &conf.Settings{}, Deps{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	created := srv.signup(t, "Patient@Example.com")
	assert.Equal(t, "patient@example.com", created.User.Email)
	assert.Empty(t, created.User.PasswordHash)

	tests := []struct {
		name     string
		email    string
		password string
		code     int
	}{
		{"correct credentials", "patient@example.com", "secret1", http.StatusOK},
		{"wrong password", "patient@example.com", "wrong-pass", http.StatusUnauthorized},
		{"unknown email", "nobody@example.com", "secret1", http.StatusNotFound},
		{"missing password", "patient@example.com", "", http.StatusUnauthorized},
		{"missing email", "", "secret1", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := srv.do(jsonRequest(http.MethodPost, "/api/v2/auth/login",
			LoginRequest{Email: tt.email, Password: tt.password}))
		assert.Equal(t, tt.code, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}

	dup := srv.do(jsonRequest(http.MethodPost, "/api/v2/auth/signup",
		SignupRequest{FullName: "Other", Email: "patient@example.com", Password: "secret2"}))
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, http.StatusConflict, decodeError(t, dup).Code)
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	rec := srv.do(jsonRequest(http.MethodPost, "/api/v2/auth/signup",
		SignupRequest{FullName: "", Email: "a@example.com", Password: "secret1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := httptest.NewRequest(http.MethodPost, "/api/v2/auth/signup", strings.NewReader("{"))
	bad.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = srv.do(bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionRequired(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses", http.NoBody),
		httptest.NewRequest(http.MethodGet, "/api/v2/auth/session", http.NoBody),
		withToken(httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses", http.NoBody), "garbage"),
		imageRequest(t, "brain", pngData),
	} {
		rec := srv.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, req.URL.Path)
		assert.Equal(t, "Authentication required", decodeError(t, rec).Message)
	}
}

func TestAnalyzeAndHistory(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	sess := srv.signup(t, "scan@example.com")

	rec := srv.do(withToken(imageRequest(t, "brain", pngData), sess.Token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var brain datastore.DiagnosisRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &brain))
	assert.Equal(t, "Meningioma", brain.DiseaseName)
	assert.Equal(t, 81, brain.Confidence)
	assert.True(t, strings.HasPrefix(brain.ImageRef, "data:image/png;base64,"))

	rec = srv.do(withToken(imageRequest(t, "breast", pngData), sess.Token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses", http.NoBody), sess.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Equal(t, 2, history.Count)
	assert.ElementsMatch(t, []string{"brain", "breast"},
		[]string{history.Records[0].OrganType, history.Records[1].OrganType})

	rec = srv.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses/"+brain.ID, http.NoBody), sess.Token))
	require.Equal(t, http.StatusOK, rec.Code)

	// another user cannot read it
	other := srv.signup(t, "other@example.com")
	rec = srv.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses/"+brain.ID, http.NoBody), other.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	sess := srv.signup(t, "upload@example.com")

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"unknown organ", imageRequest(t, "lung", pngData), http.StatusBadRequest},
		{"empty image", imageRequest(t, "brain", nil), http.StatusBadRequest},
		{"not an image", imageRequest(t, "brain", []byte("%PDF-1.7 document")), http.StatusBadRequest},
		{"missing file", jsonRequest(http.MethodPost, "/api/v2/diagnoses/brain", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := srv.do(withToken(tt.req, sess.Token))
		assert.Equal(t, tt.code, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}

	rec := srv.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v2/diagnoses", http.NoBody), sess.Token))
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Zero(t, history.Count)
}

func TestAnalyzeImageTooLarge(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, func(s *conf.Settings, _ *Deps) {
		s.ImageStore.MaxBytes = 8
	})
	sess := srv.signup(t, "large@example.com")

	rec := srv.do(withToken(imageRequest(t, "brain", pngData), sess.Token))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeClassifierFailureShowsCause(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, func(_ *conf.Settings, deps *Deps) {
		svc, err := diagnosis.New(diagnosis.Deps{
			Store:      deps.DS,
			Classifier: failingClassifier{err: errors.NewStd("inference service returned 503, contact ops@example.com")},
			Images:     imagestore.NewInline(1 << 20),
			Resolver:   resolver.New(resolver.FallbackVerbatim),
		}, diagnosis.Config{Source: "test"})
		require.NoError(t, err)
		t.Cleanup(svc.Close)
		deps.Diagnoses = svc
	})
	sess := srv.signup(t, "upstream@example.com")

	rec := srv.do(withToken(imageRequest(t, "brain", pngData), sess.Token))
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	resp := decodeError(t, rec)
	assert.Equal(t, "Classification failed", resp.Message)
	assert.Contains(t, resp.Error, "inference service returned 503")
	assert.Contains(t, resp.Error, "[EMAIL_REDACTED]")
	assert.NotContains(t, resp.Error, "ops@example.com")
}

func TestKnowledge(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	for range 2 {
		rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/v2/knowledge/brain", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp KnowledgeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, knowledge.OrganBrain, resp.Organ)
		assert.NotEmpty(t, resp.Records)
	}

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/v2/knowledge/liver", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, func(_ *conf.Settings, d *Deps) {
		d.Limiter = security.NewLoginLimiter(1, 2)
	})

	login := func(remote string) int {
		req := jsonRequest(http.MethodPost, "/api/v2/auth/login",
			LoginRequest{Email: "nobody@example.com", Password: "secret1"})
		req.RemoteAddr = remote
		return srv.do(req).Code
	}

	assert.Equal(t, http.StatusNotFound, login("192.0.2.1:4000"))
	assert.Equal(t, http.StatusNotFound, login("192.0.2.1:4001"))
	assert.Equal(t, http.StatusTooManyRequests, login("192.0.2.1:4002"))
	assert.Equal(t, http.StatusNotFound, login("192.0.2.2:4000"))
}

func TestCookieSessionFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, func(s *conf.Settings, d *Deps) {
		cookies, err := security.NewCookieSessions(&s.Security)
		require.NoError(t, err)
		d.Cookies = cookies
	})

	rec := srv.do(jsonRequest(http.MethodPost, "/api/v2/auth/signup",
		SignupRequest{FullName: "Cookie User", Email: "cookie@example.com", Password: "secret1"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	withCookies := func(req *http.Request) *http.Request {
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}

	rec = srv.do(withCookies(httptest.NewRequest(http.MethodGet, "/api/v2/auth/session", http.NoBody)))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "cookie@example.com", sess.User.Email)
	assert.Empty(t, sess.Token)

	rec = srv.do(withCookies(httptest.NewRequest(http.MethodPost, "/api/v2/auth/logout", http.NoBody)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// the revoked session is rejected even with the old cookie
	rec = srv.do(withCookies(httptest.NewRequest(http.MethodGet, "/api/v2/auth/session", http.NoBody)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutSession(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/v2/auth/logout", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/v2/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "connected", health["database_status"])

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRouteUsesErrorFormat(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/v2/nothing", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	build := func(sentinel error, category errors.ErrorCategory) error {
		return errors.New(fmt.Errorf("%w: detail", sentinel)).Component("test").Category(category).Build()
	}

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"duplicate email", build(account.ErrDuplicateEmail, errors.CategoryConflict), http.StatusConflict},
		{"unknown user", build(account.ErrUserNotFound, errors.CategoryNotFound), http.StatusNotFound},
		{"bad password", build(account.ErrInvalidCredentials, errors.CategoryAuthentication), http.StatusUnauthorized},
		{"invalid input", build(account.ErrInvalidInput, errors.CategoryValidation), http.StatusBadRequest},
		{"no session", diagnosis.ErrNoSession, http.StatusUnauthorized},
		{"record not found", diagnosis.ErrRecordNotFound, http.StatusNotFound},
		{"classifier down", build(classifier.ErrClassificationFailed, errors.CategoryClassification), http.StatusBadGateway},
		{"write failed", build(diagnosis.ErrPersistence, errors.CategoryDatabase), http.StatusInternalServerError},
		{"too large", imagestore.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"limit category", errors.Newf("quota").Category(errors.CategoryLimit).Build(), http.StatusTooManyRequests},
		{"plain error", errors.NewStd("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, message := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.name)
		assert.NotEmpty(t, message, tt.name)
	}
}

func TestNewErrorResponseHidesServerErrors(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse(errors.NewStd("dial tcp 10.0.0.5:3306: refused"), "Failed to save diagnosis", 500, "req-1")
	assert.Equal(t, "Failed to save diagnosis", resp.Error)
	assert.Equal(t, "req-1", resp.CorrelationID)

	resp = NewErrorResponse(errors.NewStd("bad email patient@example.com"), "Invalid input", 400, "req-2")
	assert.NotContains(t, resp.Error, "patient@example.com")

	resp = NewErrorResponse(errors.NewStd("classifier timeout for patient@example.com"), "Classification failed", 502, "req-3")
	assert.Contains(t, resp.Error, "classifier timeout")
	assert.NotContains(t, resp.Error, "patient@example.com")

	resp = NewErrorResponse(errors.NewStd("upstream refused"), "Service unavailable", 503, "req-4")
	assert.Equal(t, "Service unavailable", resp.Error)
}
