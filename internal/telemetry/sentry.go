// Package telemetry reports errors to Sentry. Reporting is opt-in and every
// event passes through privacy filters before it leaves the process.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/privacy"
)

var enabled atomic.Bool

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Option adjusts the Sentry client options before Init.
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport, used by tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// Init sets up Sentry when settings.Sentry.Enabled is true and registers
// the error package reporter. With telemetry disabled it only clears any
// previously registered reporter.
func Init(settings *conf.Settings, systemID string, opts ...Option) error {
	log := GetLogger()
	if !settings.Sentry.Enabled {
		enabled.Store(false)
		errors.SetTelemetryReporter(nil)
		log.Debug("telemetry disabled")
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       settings.Sentry.SampleRate,
		Environment:      settings.Sentry.Environment,
		Release:          "mediscan@" + settings.Version,
		AttachStacktrace: false,
		ServerName:       "",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
	if options.SampleRate <= 0 {
		options.SampleRate = 1.0
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("system_id", systemID)
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":      "MediScan",
			"version":   settings.Version,
			"system_id": systemID,
		})
	})

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(newReporter())
	enabled.Store(true)

	log.Info("telemetry enabled",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("system_id", systemID))
	return nil
}

// Enabled reports whether Init turned reporting on.
func Enabled() bool {
	return enabled.Load()
}

// CaptureError sends err to Sentry unless the error package already did.
func CaptureError(err error, component string) {
	if err == nil || !enabled.Load() {
		return
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.IsReported() {
		return
	}

	message := privacy.ScrubMessage(err.Error())
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetFingerprint([]string{component, fmt.Sprintf("%T", err)})

		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = message
		event.Exception = []sentry.Exception{{Type: component + " error", Value: message}}
		sentry.CaptureEvent(event)
	})
	if ee != nil {
		ee.MarkReported()
	}
}

// Flush waits up to timeout for queued events to be delivered.
func Flush(timeout time.Duration) {
	if enabled.Load() {
		sentry.Flush(timeout)
	}
}

// reporter forwards built errors to Sentry, skipping categories caused by
// user input or cancelled requests.
type reporter struct {
	sentry *errors.SentryReporter
}

func newReporter() *reporter {
	return &reporter{sentry: errors.NewSentryReporter(true)}
}

func (r *reporter) IsEnabled() bool { return r.sentry.IsEnabled() }

func (r *reporter) ReportError(ee *errors.EnhancedError) {
	if !reportable(ee.Category) {
		return
	}
	r.sentry.ReportError(ee)
}

func reportable(category errors.ErrorCategory) bool {
	switch category {
	case errors.CategoryValidation, errors.CategoryNotFound, errors.CategoryConflict,
		errors.CategoryAuthentication, errors.CategoryCancellation, errors.CategoryLimit:
		return false
	}
	return true
}

// applyPrivacyFilters strips identifying data and scrubs free text.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	for _, key := range []string{"device", "os", "runtime", "culture"} {
		delete(event.Contexts, key)
	}
	for key := range event.Extra {
		if key != "error_type" && key != "component" {
			delete(event.Extra, key)
		}
	}
	delete(event.Tags, "server_name")
	delete(event.Tags, "hostname")

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	for i := range event.Breadcrumbs {
		event.Breadcrumbs[i].Message = privacy.ScrubMessage(event.Breadcrumbs[i].Message)
		event.Breadcrumbs[i].Data = nil
	}

	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.QueryString = ""
		event.Request.Data = ""
		event.Request.Env = nil
		event.Request.URL = privacy.ScrubMessage(event.Request.URL)
		headers := make(map[string]string, 1)
		if ct, ok := event.Request.Headers["Content-Type"]; ok {
			headers["Content-Type"] = ct
		}
		event.Request.Headers = headers
	}
	return event
}
