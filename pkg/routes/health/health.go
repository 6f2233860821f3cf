package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// Checker serves liveness, readiness and dependency health endpoints.
type Checker struct {
	db        database.DB
	cache     *redis.Client
	version   string
	startTime time.Time
	ready     atomic.Bool
}

// NewChecker creates a health checker. cache may be nil when no redis is
// configured; it is then omitted from the report.
func NewChecker(db database.DB, cache *redis.Client, version string) *Checker {
	return &Checker{
		db:        db,
		cache:     cache,
		version:   version,
		startTime: time.Now(),
	}
}

// SetReady flips the readiness state reported by /health/ready.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// Register registers the health endpoints on the root echo instance so they
// bypass authentication.
func (c *Checker) Register(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
}

// Report is the health check response body.
type Report struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	Uptime     string           `json:"uptime"`
	Checks     map[string]Check `json:"checks"`
	ReportedAt time.Time        `json:"reported_at"`
}

// Check is one dependency's probe result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

func probe(fn func() error) Check {
	start := time.Now()
	if err := fn(); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}

// Health probes every configured dependency and reports the aggregate.
func (c *Checker) Health(ec echo.Context) error {
	ctx := ec.Request().Context()

	report := &Report{
		Status:     "healthy",
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     make(map[string]Check),
		ReportedAt: time.Now().UTC(),
	}

	report.Checks["database"] = probe(func() error { return c.db.PingContext(ctx) })
	if c.cache != nil {
		report.Checks["redis"] = probe(func() error { return c.cache.Redis().Ping(ctx).Err() })
	}

	status := http.StatusOK
	for _, check := range report.Checks {
		if check.Status != "healthy" {
			report.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	return ec.JSON(status, report)
}

// Live reports that the process is running.
func (c *Checker) Live(ec echo.Context) error {
	return ec.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready reports whether the service is accepting traffic.
func (c *Checker) Ready(ec echo.Context) error {
	if c.ready.Load() {
		return ec.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ec.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
