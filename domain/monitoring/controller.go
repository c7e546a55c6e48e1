package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/storage"
	"github.com/concordtech/contact-api/pkg/factory"
	"github.com/concordtech/contact-api/pkg/ratelimit"
	"gorm.io/gorm"
)

const probeTimeout = 5 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Storage        int    `json:"storage"`         // 1 = healthy, 0 = unhealthy
	StorageBackend string `json:"storage_backend"` // configured primary
	Fallback       string `json:"fallback"`        // none | memory
	Database       int    `json:"database"`        // 1 = healthy, 0 = unhealthy/not configured
	Cache          int    `json:"cache"`           // 1 = healthy, 0 = unhealthy/not configured
	Uptime         int    `json:"uptime"`          // uptime in seconds
}

// ConfigReport says which settings are present. It never carries secret values.
type ConfigReport struct {
	StorageBackend     string `json:"storageBackend"`
	Fallback           string `json:"fallback"`
	RedisConfigured    bool   `json:"redisConfigured"`
	DatabaseConfigured bool   `json:"databaseConfigured"`
	FilePathSet        bool   `json:"filePathSet"`
	AdminEnabled       bool   `json:"adminEnabled"`
	TracingEnabled     bool   `json:"tracingEnabled"`
	MetricsEnabled     bool   `json:"metricsEnabled"`
}

type StorageProbeResult struct {
	Success bool   `json:"success"`
	Backend string `json:"backend"`
	Count   int    `json:"count"`
}

type StorageProbeFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

type MonitoringController struct {
	backend   storage.Backend
	db        *gorm.DB
	cache     Cache
	report    ConfigReport
	logger    *log.Logger
	startTime time.Time
}

func NewMonitoringController(
	backend storage.Backend,
	db *gorm.DB,
	cache Cache,
	report ConfigReport,
	logger *log.Logger,
	startTime time.Time,
) *router.RESTController {
	ctrl := &MonitoringController{
		backend:   backend,
		db:        db,
		cache:     cache,
		report:    report,
		logger:    logger,
		startTime: startTime,
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {

			monitoringRateLimiter := createMonitoringRateLimiter(routerService, logger)

			routerService.AddGetHandler(controller, nil, "", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.monitor(c)
			})

			routerService.AddGetHandler(controller, nil, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health/storage", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.storageProbe(routerService, c)
			})

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health/config", func(c *router.RequestContext) *router.ServiceResult {
				return router.BodyResult(http.StatusOK, ctrl.report)
			})
		},
	)
}

func createMonitoringRateLimiter(routerService *router.RouterService, logger *log.Logger) ratelimit.RateLimiter {
	const monitoringRequestsPerMinute = 10 // More restrictive than default 100

	return factory.NewRateLimiterFactoryFrom(routerService, logger).
		CreateRateLimiter(monitoringRequestsPerMinute, time.Minute)
}

func (ctrl *MonitoringController) monitor(
	c *router.RequestContext,
) *router.ServiceResult {
	return &router.ServiceResult{
		StatusCode: 200,
		Data:       "Contact API is operational.",
		Message:    "Monitoring successful",
	}
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	return &router.ServiceResult{
		StatusCode: 200,
		Data:       healthStatus,
		Message:    "contact-api health check completed",
	}
}

// storageProbe round-trips the configured backend. Failures report a category, never the cause.
func (ctrl *MonitoringController) storageProbe(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	count, err := ctrl.probeStorage(ctx)
	if err != nil {
		logger.Error("Storage probe failed", "backend", ctrl.backend.Name(), "error", err)
		return router.BodyResult(http.StatusServiceUnavailable, StorageProbeFailure{
			Success: false,
			Error:   "Storage probe failed",
			Details: failureCategory(err),
		})
	}

	return router.BodyResult(http.StatusOK, StorageProbeResult{
		Success: true,
		Backend: ctrl.backend.Name(),
		Count:   count,
	})
}

func (ctrl *MonitoringController) probeStorage(ctx context.Context) (int, error) {
	if err := ctrl.backend.Ping(ctx); err != nil {
		return 0, err
	}

	submissions, err := ctrl.backend.List(ctx)
	if err != nil {
		return 0, err
	}

	return len(submissions), nil
}

func failureCategory(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, storage.ErrCorrupt):
		return "corrupt"
	case errors.Is(err, storage.ErrUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		StorageBackend: ctrl.report.StorageBackend,
		Fallback:       ctrl.report.Fallback,
		Uptime:         int(time.Since(ctrl.startTime).Seconds()),
	}

	checkStorageConnectivity(ctx, ctrl, &status, logger)

	checkDatabaseConnectivity(ctx, ctrl, &status, logger)

	checkCacheConnectivity(ctx, ctrl, &status, logger)

	return status
}

func checkStorageConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if err := ctrl.backend.Ping(ctx); err != nil {
		status.Storage = 0
		logger.Error("Storage health check failed", "backend", ctrl.backend.Name(), "error", err)
		return
	}

	status.Storage = 1
	logger.Info("Storage health check passed", "backend", ctrl.backend.Name())
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache != nil {
		if ctrl.checkCache(ctx) {
			status.Cache = 1
			logger.Info("Cache health check passed")
		} else {
			status.Cache = 0
			logger.Error("Cache health check failed")
		}
	} else {
		status.Cache = 0 // Cache not configured
		logger.Info("Cache not configured, cache health check skipped")
	}
}

func checkDatabaseConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.db == nil {
		status.Database = 0
		logger.Info("Database not configured, database health check skipped")
		return
	}

	if ctrl.checkDatabase(ctx) {
		status.Database = 1
		logger.Info("Database health check passed")
	} else {
		status.Database = 0
		logger.Error("Database health check failed")
	}
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) bool {
	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}

	return sqlDB.PingContext(ctx) == nil
}

func (ctrl *MonitoringController) checkCache(ctx context.Context) bool {
	return ctrl.cache.Ping(ctx) == nil
}
