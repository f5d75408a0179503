// Package app assembles the MediScan services from settings and runs them.
package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/mediscan/internal/account"
	"github.com/tphakala/mediscan/internal/api"
	v2 "github.com/tphakala/mediscan/internal/api/v2"
	"github.com/tphakala/mediscan/internal/buildinfo"
	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/diagnosis"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/events"
	"github.com/tphakala/mediscan/internal/httpclient"
	"github.com/tphakala/mediscan/internal/imagestore"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability"
	"github.com/tphakala/mediscan/internal/observability/metrics"
	"github.com/tphakala/mediscan/internal/resolver"
	"github.com/tphakala/mediscan/internal/security"
)

// DefaultCleanupInterval is used when security.cleanupinterval is unset.
const DefaultCleanupInterval = time.Hour

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// Options select the optional parts of an App.
type Options struct {
	// Events enables the configured event publishers. CLI one-shots leave
	// it off so they never wait on a broker.
	Events bool
	// Classifier overrides the one built from settings.
	Classifier classifier.Classifier
}

// App holds the wired services. Close releases them in reverse order.
type App struct {
	Settings  *conf.Settings
	Metrics   *observability.Metrics
	Store     datastore.Interface
	Accounts  *account.Store
	Diagnoses *diagnosis.Service
	Limiter   *security.LoginLimiter

	publisher events.Publisher
	closers   []func() error
	log       logger.Logger
}

// statsRefresher is implemented by the GORM backed stores.
type statsRefresher interface {
	SetMetrics(m *metrics.DatastoreMetrics)
	RefreshConnectionStats()
}

// New opens the datastore and builds every service from settings.
func New(ctx context.Context, settings *conf.Settings, opts Options) (_ *App, err error) {
	a := &App{Settings: settings, log: GetLogger()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.Metrics, err = observability.NewMetrics(); err != nil {
		return nil, err
	}

	if a.Store, err = datastore.New(settings); err != nil {
		return nil, err
	}
	if r, ok := a.Store.(statsRefresher); ok {
		r.SetMetrics(a.Metrics.Datastore)
	}
	if err = a.Store.Open(); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	a.Accounts, err = account.New(a.Store, account.ConfigFromSettings(&settings.Security),
		account.BcryptVerifier{Cost: settings.Security.BcryptCost})
	if err != nil {
		return nil, err
	}
	a.Accounts.SetMetrics(a.Metrics.Account)
	a.Limiter = security.NewLoginLimiter(settings.Security.LoginRateLimit, settings.Security.LoginBurst)

	cls := opts.Classifier
	if cls == nil {
		cls = a.newClassifier()
	}

	images, err := imagestore.New(ctx, &settings.ImageStore)
	if err != nil {
		return nil, err
	}

	a.publisher = events.Nop{}
	if opts.Events {
		target, perr := events.FromSettings(ctx, settings, a.Metrics.Events)
		if perr != nil {
			return nil, perr
		}
		bus := events.NewBus(target, events.DefaultBusConfig())
		a.publisher = bus
		a.closers = append(a.closers, bus.Close)
	}

	fallback := resolver.FallbackVerbatim
	if settings.Resolver.StrictUnmatched {
		fallback = resolver.FallbackStrict
	}

	a.Diagnoses, err = diagnosis.New(diagnosis.Deps{
		Store:      a.Store,
		Classifier: cls,
		Images:     images,
		Resolver:   resolver.New(fallback),
		Publisher:  a.publisher,
		Metrics:    a.Metrics.Diagnosis,
	}, diagnosis.Config{
		StagingTTL: settings.Diagnosis.StagingTTL,
		Source:     settings.Main.Name,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		a.Diagnoses.Close()
		return nil
	})

	return a, nil
}

// newClassifier builds the classifier selected by classifier.mode.
func (a *App) newClassifier() classifier.Classifier {
	cfg := a.Settings.Classifier
	if cfg.Mode != conf.ClassifierModeHTTP {
		a.log.Info("using mock classifier", logger.Int64("seed", cfg.MockSeed))
		return classifier.NewMockClassifier(cfg.MockSeed)
	}

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: cfg.Timeout,
		BearerToken:    cfg.APIKey,
		UserAgent:      buildinfo.Current("").UserAgent(),
	})
	a.Metrics.InstrumentClient(client)
	c := classifier.NewHTTPClassifier(classifier.HTTPConfig{
		BrainURL:  cfg.BrainURL,
		BreastURL: cfg.BreastURL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
	}, client)
	a.closers = append(a.closers, func() error {
		c.Close()
		return nil
	})
	return c
}

// Serve runs the API server and session maintenance until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	var cookies *security.CookieSessions
	if a.Settings.Security.SessionSecret != "" {
		var err error
		if cookies, err = security.NewCookieSessions(&a.Settings.Security); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Settings.WebServer.Enabled {
		server, err := api.New(a.Settings, v2.Deps{
			DS:        a.Store,
			Accounts:  a.Accounts,
			Diagnoses: a.Diagnoses,
			Cookies:   cookies,
			Limiter:   a.Limiter,
			Metrics:   a.Metrics,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Run(gctx) })
	} else {
		a.log.Warn("web server disabled, only running maintenance")
	}

	g.Go(func() error {
		a.maintain(gctx)
		return nil
	})

	return g.Wait()
}

// maintain purges expired sessions, forgets idle rate limit entries and
// refreshes connection pool metrics on every cleanup tick.
func (a *App) maintain(ctx context.Context) {
	interval := a.Settings.Security.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runMaintenance(ctx)
		}
	}
}

func (a *App) runMaintenance(ctx context.Context) {
	purged, err := a.Accounts.PurgeExpired(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("session cleanup failed", logger.Error(err))
	}
	pruned := a.Limiter.Prune()
	if r, ok := a.Store.(statsRefresher); ok {
		r.RefreshConnectionStats()
	}
	if purged > 0 || pruned > 0 {
		a.log.Debug("maintenance completed",
			logger.Int64("sessions_purged", purged),
			logger.Int("limiter_entries_pruned", pruned))
	}
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
