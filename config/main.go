package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/auth"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/models"
	"github.com/concordtech/contact-api/internal/storage"
	"github.com/concordtech/contact-api/pkg/constants"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Storage         storage.Backend
	StorageConfig   *StorageConfig
	AdminGate       *auth.Gate
	Config          *AppConfig
	TracingShutdown func(context.Context) error
	StartedAt       time.Time
}

// AppConfig holds the request-level limits. Non-positive values fall back to the defaults.
type AppConfig struct {
	RateLimitRequests           int           `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow             time.Duration `env:"RATE_LIMIT_WINDOW"`
	SubmissionRequestsPerMinute int           `env:"SUBMISSION_RATE_LIMIT_PER_MINUTE"`
	RequestTimeout              time.Duration `env:"REQUEST_TIMEOUT"`
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{}
	// Malformed values are left at zero and replaced below.
	_ = env.Parse(config)

	if config.RateLimitRequests <= 0 {
		config.RateLimitRequests = constants.DefaultRateLimitRequests
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = constants.DefaultRateLimitWindow
	}
	if config.SubmissionRequestsPerMinute <= 0 {
		config.SubmissionRequestsPerMinute = constants.DefaultSubmissionRequestsPerMinute
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = router.DefaultTimeoutDuration
	}

	return config
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	// Storage first: its backends borrow the DB and Redis connections closed below.
	CloseStorage(ac.Storage, ac.Logger)

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	storageConfig, err := NewStorageConfig()
	if err != nil {
		return nil, err
	}

	adminConfig, err := NewAdminConfig()
	if err != nil {
		return nil, err
	}

	adminGate, err := adminConfig.NewGate()
	if err != nil {
		return nil, err
	}
	if !adminGate.Enabled() {
		logger.Warn("ADMIN_USERS not set; submission listing endpoints are unauthenticated")
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	if storageConfig.NeedsDatabase() {
		db, err = NewDatabase(logger, NewDBConfig())
		if err != nil && !storageConfig.FallbackEnabled() {
			return nil, err
		}

		if db != nil && autoMigrate {
			if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
				return nil, err
			}
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)
	registry := prometheus.NewRegistry()

	backend, err := BuildStorage(logger, storageConfig, StorageResources{
		Redis: GetRedisClient(cache),
		DB:    db,
	}, registry)
	if err != nil {
		CloseDatabase(db, logger)
		_ = CloseCache(cache, logger)
		return nil, err
	}

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
		Registry:          registry,
	})

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Storage:         backend,
		StorageConfig:   storageConfig,
		AdminGate:       adminGate,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
		StartedAt:       time.Now(),
	}, nil
}
