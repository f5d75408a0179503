package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/privacy"
)

// mockTransport captures events instead of sending them.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

//nolint:gocritic // hugeParam: interface requirement
func (t *mockTransport) Configure(sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close() {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

// initForTest enables telemetry against a mock transport. Tests using it
// mutate the global Sentry hub and must not run in parallel.
func initForTest(t *testing.T) *mockTransport {
	t.Helper()
	transport := &mockTransport{}
	settings := &conf.Settings{Version: "test"}
	settings.Sentry.Enabled = true
	settings.Sentry.Environment = "test"

	require.NoError(t, Init(settings, "ABCD-1234-EF56", WithTransport(transport)))
	t.Cleanup(func() {
		require.NoError(t, Init(&conf.Settings{}, ""))
		errors.SetPrivacyScrubber(nil)
	})
	return transport
}

func TestInitDisabled(t *testing.T) {
	require.NoError(t, Init(&conf.Settings{}, ""))
	assert.False(t, Enabled())
	assert.Nil(t, errors.GetTelemetryReporter())

	// no-ops while disabled
	CaptureError(errors.NewStd("ignored"), "test")
	Flush(time.Millisecond)
}

func TestBuiltErrorsAreReported(t *testing.T) {
	transport := initForTest(t)
	assert.True(t, Enabled())

	_ = errors.New(errors.NewStd("insert failed for patient@example.com")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()

	_ = errors.New(errors.NewStd("password too short")).
		Component("account").
		Category(errors.CategoryValidation).
		Build()

	events := transport.Events()
	require.Len(t, events, 1, "validation errors are not reported")
	assert.Contains(t, events[0].Message, "[EMAIL_REDACTED]")
	assert.NotContains(t, events[0].Message, "patient@example.com")
	assert.Equal(t, "ABCD-1234-EF56", events[0].Tags["system_id"])
}

func TestCaptureError(t *testing.T) {
	transport := initForTest(t)

	CaptureError(errors.NewStd("upload to https://bucket.example.com/brain/x.png?sig=abc failed"), "imagestore")
	events := transport.Events()
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Message, "bucket.example.com")
	assert.NotContains(t, events[0].Message, "sig=abc")
	assert.Equal(t, "imagestore", events[0].Tags["component"])

	// already reported by the builder
	built := errors.New(errors.NewStd("disk full")).Component("datastore").Category(errors.CategorySystem).Build()
	CaptureError(built, "api")
	assert.Len(t, transport.Events(), 2)
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		Message:    "login for user@example.com with Bearer abc",
		ServerName: "host-1",
		User:       sentry.User{Email: "user@example.com", IPAddress: "1.2.3.4"},
		Contexts:   map[string]sentry.Context{"os": {"name": "linux"}, "application": {"name": "MediScan"}},
		Extra:      map[string]any{"component": "api", "email": "user@example.com"},
		Tags:       map[string]string{"hostname": "host-1", "component": "api"},
		Exception:  []sentry.Exception{{Value: "token=secret"}},
		Request: &sentry.Request{
			URL:         "https://mediscan.example.com/api/v2/diagnoses",
			QueryString: "token=abc",
			Cookies:     "mediscan_session=xyz",
			Headers:     map[string]string{"Authorization": "Bearer abc", "Content-Type": "application/json"},
		},
	}

	filtered := applyPrivacyFilters(event)

	assert.True(t, filtered.User.IsEmpty())
	assert.Empty(t, filtered.ServerName)
	assert.NotContains(t, filtered.Contexts, "os")
	assert.Contains(t, filtered.Contexts, "application")
	assert.Equal(t, map[string]any{"component": "api"}, filtered.Extra)
	assert.Equal(t, map[string]string{"component": "api"}, filtered.Tags)
	assert.Equal(t, "login for [EMAIL_REDACTED] with Bearer [TOKEN_REDACTED]", filtered.Message)
	assert.Equal(t, "token=[REDACTED]", filtered.Exception[0].Value)
	assert.Empty(t, filtered.Request.QueryString)
	assert.Empty(t, filtered.Request.Cookies)
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, filtered.Request.Headers)
	assert.NotContains(t, filtered.Request.URL, "mediscan.example.com")
}

func TestReportable(t *testing.T) {
	t.Parallel()
	assert.False(t, reportable(errors.CategoryValidation))
	assert.False(t, reportable(errors.CategoryConflict))
	assert.False(t, reportable(errors.CategoryCancellation))
	assert.True(t, reportable(errors.CategoryPersistence))
	assert.True(t, reportable(errors.CategoryClassification))
}

func TestLoadOrCreateSystemID(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "config")

	id, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.True(t, privacy.IsValidSystemID(id))

	again, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	require.NoError(t, os.WriteFile(filepath.Join(dir, systemIDFile), []byte("garbage"), 0o600))
	replaced, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.NotEqual(t, "garbage", replaced)
	assert.True(t, privacy.IsValidSystemID(replaced))
}
