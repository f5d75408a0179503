// Package api implements the MediScan JSON API under /api/v2.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/mediscan/internal/account"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/diagnosis"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability"
	"github.com/tphakala/mediscan/internal/security"
)

// DefaultMaxImageBytes bounds an uploaded image when settings leave it unset.
const DefaultMaxImageBytes = 10 << 20

// GetLogger returns the API module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Deps are the services behind the API. Metrics and Cookies are optional;
// without Cookies only bearer tokens are accepted.
type Deps struct {
	DS        datastore.Interface
	Accounts  *account.Store
	Diagnoses *diagnosis.Service
	Cookies   *security.CookieSessions
	Limiter   *security.LoginLimiter
	Metrics   *observability.Metrics
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	ds        datastore.Interface
	accounts  *account.Store
	diagnoses *diagnosis.Service
	cookies   *security.CookieSessions
	limiter   *security.LoginLimiter
	metrics   *observability.Metrics

	knowledgeCache *cache.Cache
	log            logger.Logger
	startTime      time.Time
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, settings *conf.Settings, deps Deps) (*Controller, error) {
	if deps.DS == nil || deps.Accounts == nil || deps.Diagnoses == nil {
		return nil, errors.Newf("api requires a datastore, an account store and a diagnosis service").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if deps.Limiter == nil {
		deps.Limiter = security.NewLoginLimiter(settings.Security.LoginRateLimit, settings.Security.LoginBurst)
	}

	c := &Controller{
		Echo:           e,
		Group:          e.Group("/api/v2"),
		Settings:       settings,
		ds:             deps.DS,
		accounts:       deps.Accounts,
		diagnoses:      deps.Diagnoses,
		cookies:        deps.Cookies,
		limiter:        deps.Limiter,
		metrics:        deps.Metrics,
		knowledgeCache: cache.New(time.Hour, 2*time.Hour),
		log:            GetLogger(),
		startTime:      time.Now(),
	}
	c.initRoutes()
	return c, nil
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initAuthRoutes()
	c.initKnowledgeRoutes()
	c.initDiagnosisRoutes()

	if c.metrics != nil && c.Settings.Metrics.Enabled {
		path := c.Settings.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		c.Echo.GET(path, echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck handles GET /api/v2/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":         "healthy",
		"version":        c.Settings.Version,
		"build_date":     c.Settings.BuildDate,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": time.Since(c.startTime).Seconds(),
	}

	status := http.StatusOK
	if err := c.ds.Ping(ctx.Request().Context()); err != nil {
		response["status"] = "degraded"
		response["database_status"] = "disconnected"
		status = http.StatusServiceUnavailable
		c.log.Warn("health check database ping failed", logger.Error(err))
	} else {
		response["database_status"] = "connected"
	}
	return ctx.JSON(status, response)
}

// Shutdown releases controller resources. The go-cache janitor goroutine
// cannot be stopped, the cache is only flushed.
func (c *Controller) Shutdown() {
	c.knowledgeCache.Flush()
	c.log.Debug("API controller shut down")
}

// Debug logs a debug message when web server debug mode is on.
func (c *Controller) Debug(msg string, fields ...logger.Field) {
	if c.Settings.WebServer.Debug {
		c.log.Debug(msg, fields...)
	}
}
