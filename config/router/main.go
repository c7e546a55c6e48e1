package router

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/concordtech/contact-api/internal/log"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/concordtech/contact-api/pkg/ratelimit"
	"github.com/concordtech/contact-api/pkg/utils"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	// DefaultTimeoutDuration is the default request timeout
	DefaultTimeoutDuration = 30 * time.Second

	redisPingTimeout = 5 * time.Second
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

// RouterService owns the gin engine, the HTTP server and the rate limiters shared by every controller.
type RouterService struct {
	engine   *gin.Engine
	registry *prometheus.Registry
	metrics  *metrics
	server   *http.Server
	logger   *log.Logger
	settings HTTPSettings

	rateLimiter       ratelimit.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
	redisClient       *redis.Client
	requestTimeout    time.Duration

	// Keyed by "METHOD-/route"; overrides are keyed by route key or controller mount point.
	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	// Registry backs /metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode, ok := os.LookupEnv("GIN_MODE"); ok && mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	settings, err := LoadHTTPSettings()
	if err != nil {
		logger.Error("Invalid HTTP settings; using defaults", "error", err)
	}

	registry := routerConfig.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	requestTimeout := routerConfig.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultTimeoutDuration
	}

	rs := &RouterService{
		engine:            gin.New(),
		registry:          registry,
		logger:            logger,
		settings:          settings,
		rateLimitRequests: routerConfig.RateLimitRequests,
		rateLimitWindow:   routerConfig.RateLimitWindow,
		redisClient:       redisClientFrom(cache),
		requestTimeout:    requestTimeout,

		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.engine.Use(gin.Recovery())

	if utils.IsTracingEnabled() {
		rs.engine.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	rs.configureTrustedProxies()
	rs.initRateLimiting()

	// Observability (opt-out): /metrics
	rs.mountMetrics()

	rs.engine.Use(rs.securityHeadersMiddleware())
	rs.engine.Use(rs.maxBodySizeMiddleware())
	if corsHandler := rs.corsMiddleware(); corsHandler != nil {
		rs.engine.Use(corsHandler)
	}
	rs.engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	rs.engine.Use(rs.rateLimitMiddleware())
	rs.engine.Use(rs.timeoutMiddleware())

	rs.engine.Use(rs.correlationIDMiddleware())
	rs.engine.Use(rs.loggerInjectionMiddleware())
	rs.engine.Use(rs.requestLoggingMiddleware())

	rs.engine.HandleMethodNotAllowed = true
	rs.engine.RedirectTrailingSlash = true

	rs.engine.NoRoute(func(c *gin.Context) {
		logger.WithCorrelationID(c.Request.Context()).Warn("Route not found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, ErrorResult(apperrors.StatusNotFound, "Route not found", nil).ToJSON())
	})

	rs.engine.NoMethod(func(c *gin.Context) {
		logger.WithCorrelationID(c.Request.Context()).Warn("Method not allowed", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(apperrors.StatusMethodNotAllowed, "Method not allowed", nil).ToJSON())
	})

	// Server-side timeouts bound request time; gin's Context is not goroutine-safe, so handlers are
	// never raced against a timer.
	rs.server = &http.Server{
		Addr:              ":8080",
		Handler:           rs.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized")
	return rs
}

func redisClientFrom(cache Cache) *redis.Client {
	if cache == nil {
		return nil
	}
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

// configureTrustedProxies disables proxy trust unless TRUSTED_PROXIES is set, so ClientIP() cannot
// be spoofed through X-Forwarded-For.
func (routerService *RouterService) configureTrustedProxies() {
	proxies := routerService.settings.Proxies()

	if err := routerService.engine.SetTrustedProxies(proxies); err != nil {
		routerService.logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = routerService.engine.SetTrustedProxies(nil)
		return
	}

	if proxies == nil {
		routerService.logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}
}

// initRateLimiting builds the global limiter. A Redis client that fails its ping is dropped so
// every limiter created later falls back to memory as well.
func (routerService *RouterService) initRateLimiting() {
	if routerService.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()

		if err := routerService.redisClient.Ping(ctx).Err(); err != nil {
			routerService.logger.Warn("Failed to connect to Redis for rate limiting, falling back to in-memory", "error", err)
			routerService.redisClient = nil
		}
	}

	routerService.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: routerService.rateLimitRequests,
		Window:   routerService.rateLimitWindow,
		Redis:    routerService.redisClient,
		Logger:   routerService.logger,
	})

	store := "in-memory"
	if routerService.redisClient != nil {
		store = "redis"
	}
	routerService.logger.Info("Rate limiting initialized",
		"store", store,
		"requests", routerService.rateLimitRequests,
		"window", routerService.rateLimitWindow)
}

func (routerService *RouterService) GetDefaultRateLimitConfig() (int, time.Duration) {
	return routerService.rateLimitRequests, routerService.rateLimitWindow
}

// GetRegistry returns the Prometheus registry served on /metrics.
func (routerService *RouterService) GetRegistry() *prometheus.Registry {
	return routerService.registry
}

// GetRedisClient returns the client used for distributed rate limiting, or nil.
func (routerService *RouterService) GetRedisClient() *redis.Client {
	return routerService.redisClient
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	routerService.logger.Info("Mounting controller",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
	)

	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.server.Addr = ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")

	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
