package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/httpclient"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Diagnosis.RecordAnalysis("brain", metrics.StatusSuccess, 92, false)
	m.Datastore.RecordOperation(metrics.OpDiagnosisSave, metrics.StatusSuccess, 0.01)
	m.Account.RecordOperation("login", "invalid_credentials")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `diagnosis_analyses_total{organ="brain",status="success"} 1`)
	assert.Contains(t, body, `diagnosis_unmatched_labels_total{organ="brain"} 1`)
	assert.Contains(t, body, `datastore_operations_total{operation="diagnosis_save",status="success"} 1`)
	assert.Contains(t, body, `account_auth_operations_total{operation="login",result="invalid_credentials"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestInstrumentClient(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://inference.example/health",
		httpmock.NewStringResponder(http.StatusOK, "ok"))
	transport.RegisterResponder(http.MethodGet, "https://inference.example/down",
		httpmock.NewErrorResponder(io.ErrUnexpectedEOF))

	client := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(client.Close)
	m.InstrumentClient(client)

	resp, err := client.Get(t.Context(), "https://inference.example/health")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	_, err = client.Get(t.Context(), "https://inference.example/down")
	require.Error(t, err)

	expected := `
# HELP http_outbound_requests_total Total number of outbound HTTP requests
# TYPE http_outbound_requests_total counter
http_outbound_requests_total{host="inference.example",status_code="200"} 1
http_outbound_requests_total{host="inference.example",status_code="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "http_outbound_requests_total"))
}

func TestAccountOpenSessions(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Account.SessionOpened()
	m.Account.SessionOpened()
	m.Account.SessionOpened()
	m.Account.SessionClosed()
	m.Account.SessionsPurged(1)
	assert.InDelta(t, 1.0, m.Account.OpenSessions(), 0.0001)
}

func TestEventMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.EventMetrics
	assert.NotPanics(t, func() {
		m.ObservePublish("mqtt", 10, timeZero, nil)
		m.SetConnected("mqtt", true)
	})
}

var timeZero time.Time
