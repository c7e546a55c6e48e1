package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/storage"
	"github.com/concordtech/contact-api/pkg/circuitbreaker"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	FallbackNone   = "none"
	FallbackMemory = "memory"
)

var (
	supportedBackends  = []string{storage.BackendMemory, storage.BackendFile, storage.BackendRedis, storage.BackendDatabase}
	supportedFallbacks = []string{FallbackNone, FallbackMemory}
)

type StorageConfig struct {
	Backend  string `env:"STORAGE_BACKEND" envDefault:"memory"`
	FilePath string `env:"STORAGE_FILE_PATH" envDefault:"data/submissions.json"`
	Fallback string `env:"STORAGE_FALLBACK" envDefault:"none"`

	BreakerFailureThreshold int           `env:"STORAGE_BREAKER_FAILURES" envDefault:"5"`
	BreakerRecoveryTimeout  time.Duration `env:"STORAGE_BREAKER_RECOVERY" envDefault:"30s"`
}

func NewStorageConfig() (*StorageConfig, error) {
	cfg, err := env.ParseAs[StorageConfig]()
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid storage configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (sc *StorageConfig) Validate() error {
	if !slices.Contains(supportedBackends, sc.Backend) {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("unsupported STORAGE_BACKEND %q (allowed: %v)", sc.Backend, supportedBackends), nil)
	}

	if !slices.Contains(supportedFallbacks, sc.Fallback) {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("unsupported STORAGE_FALLBACK %q (allowed: %v)", sc.Fallback, supportedFallbacks), nil)
	}

	return nil
}

func (sc *StorageConfig) NeedsDatabase() bool {
	return sc.Backend == storage.BackendDatabase
}

func (sc *StorageConfig) NeedsRedis() bool {
	return sc.Backend == storage.BackendRedis
}

func (sc *StorageConfig) FallbackEnabled() bool {
	return sc.Fallback == FallbackMemory && sc.Backend != storage.BackendMemory
}

// StorageResources are the connections a primary backend may need. Either may be nil.
type StorageResources struct {
	Redis *redis.Client
	DB    *gorm.DB
}

// BuildStorage opens the configured primary backend and wraps it with the fallback policy and
// instrumentation. A primary that cannot be opened is a ConfigurationError unless the memory
// fallback is enabled, in which case every call is served from memory.
func BuildStorage(logger *log.Logger, sc *StorageConfig, res StorageResources, reg prometheus.Registerer) (storage.Backend, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	metrics := storage.NewMetrics(reg)

	primary, err := openPrimary(sc, res)
	if err != nil {
		if !sc.FallbackEnabled() {
			logger.Error("Storage backend is not available", "backend", sc.Backend, "error", err)
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("storage backend %q is not configured", sc.Backend), err)
		}

		logger.Warn("Storage backend is not available; serving from memory fallback",
			"backend", sc.Backend,
			"error", err,
		)
		primary = storage.NewUnavailableBackend(sc.Backend, err)
	}

	var backend storage.Backend = primary

	if sc.FallbackEnabled() {
		breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			FailureThreshold: sc.BreakerFailureThreshold,
			RecoveryTimeout:  sc.BreakerRecoveryTimeout,
			SuccessThreshold: 1,
			OnStateChange: func(from, to circuitbreaker.CircuitState) {
				logger.Warn("Storage circuit breaker state changed",
					"backend", sc.Backend,
					"from", from.String(),
					"to", to.String(),
				)
			},
		})

		backend = storage.NewFallbackBackend(primary, storage.NewMemoryBackend(), logger,
			storage.WithCircuitBreaker(breaker),
			storage.WithFallbackMetrics(metrics),
		)
	}

	logger.Info("Storage configured",
		"backend", sc.Backend,
		"fallback", sc.Fallback,
	)

	return storage.Instrument(backend, metrics), nil
}

func openPrimary(sc *StorageConfig, res StorageResources) (storage.Backend, error) {
	switch sc.Backend {
	case storage.BackendMemory:
		return storage.NewMemoryBackend(), nil
	case storage.BackendFile:
		backend, err := storage.NewFileBackend(sc.FilePath)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case storage.BackendRedis:
		backend, err := storage.NewRedisBackend(res.Redis)
		if err != nil {
			return nil, fmt.Errorf("check REDIS_HOST: %w", err)
		}
		return backend, nil
	case storage.BackendDatabase:
		backend, err := storage.NewDatabaseBackend(res.DB)
		if err != nil {
			return nil, fmt.Errorf("check DATABASE_DRIVER and POSTGRES_* or SQLITE_PATH: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", sc.Backend)
	}
}

// CloseStorage is safe to call with a nil backend.
func CloseStorage(backend storage.Backend, logger *log.Logger) {
	if backend == nil {
		return
	}

	if err := backend.Close(); err != nil {
		logger.Error("Failed to close storage backend", "backend", backend.Name(), "error", err)
		return
	}

	logger.Info("Storage backend closed", "backend", backend.Name())
}

// OpenStorage builds the configured backend with connections of its own, for one-shot tools that
// do not load the whole application. The returned func releases the backend and those connections.
func OpenStorage(logger *log.Logger) (storage.Backend, func(), error) {
	sc, err := NewStorageConfig()
	if err != nil {
		return nil, nil, err
	}

	var res StorageResources
	var cache Cache

	if sc.NeedsDatabase() {
		res.DB, err = NewDatabase(logger, NewDBConfig())
		if err != nil && !sc.FallbackEnabled() {
			return nil, nil, err
		}
	}

	if sc.NeedsRedis() {
		cache = NewCacheConfig().NewCacheOrNil(logger)
		res.Redis = GetRedisClient(cache)
	}

	release := func() {
		CloseDatabase(res.DB, logger)
		_ = CloseCache(cache, logger)
	}

	backend, err := BuildStorage(logger, sc, res, nil)
	if err != nil {
		release()
		return nil, nil, err
	}

	return backend, func() {
		CloseStorage(backend, logger)
		release()
	}, nil
}
