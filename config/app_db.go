package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/concordtech/contact-api/internal/log"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/concordtech/contact-api/pkg/migrations"
	"github.com/concordtech/contact-api/pkg/retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver          string        `env:"DATABASE_DRIVER" envDefault:"postgres"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"data/contact.db"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1m"`
	Postgres        PostgresConfig
	// Nil uses retry.DefaultConfig.
	ConnectRetry *retry.Config
}

type PostgresConfig struct {
	URL      string `env:"APP_DATABASE_URL"`
	Host     string `env:"POSTGRES_HOST"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	DBName   string `env:"POSTGRES_DB_NAME"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"require"`
}

func defaultDBConfig() *DBConfig {
	return &DBConfig{
		Driver:          DatabaseDriverPostgres,
		SQLitePath:      "data/contact.db",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Minute,
		Postgres:        PostgresConfig{Port: "5432", SSLMode: "require"},
	}
}

// NewDBConfig reads the database settings. Values that fail to parse leave the defaults in place.
func NewDBConfig() *DBConfig {
	cfg, err := env.ParseAs[DBConfig]()
	if err != nil {
		return defaultDBConfig()
	}

	cfg.Driver = strings.ToLower(sanitizeEnv(cfg.Driver))
	cfg.SQLitePath = sanitizeEnv(cfg.SQLitePath)

	pg := &cfg.Postgres
	for _, field := range []*string{&pg.URL, &pg.Host, &pg.Port, &pg.User, &pg.Password, &pg.DBName, &pg.SSLMode} {
		*field = sanitizeEnv(*field)
	}

	return &cfg
}

// IsConfigured reports whether enough settings exist to attempt a connection.
func (cfg *DBConfig) IsConfigured() bool {
	if cfg.Driver == DatabaseDriverSQLite {
		return cfg.SQLitePath != ""
	}

	return cfg.Postgres.URL != "" || cfg.Postgres.Host != ""
}

// MigrationDialect names the golang-migrate driver matching cfg.Driver.
func (cfg *DBConfig) MigrationDialect() string {
	if cfg.Driver == DatabaseDriverSQLite {
		return migrations.DialectSQLite
	}
	return migrations.DialectPostgres
}

func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = NewDBConfig()
	}

	dialector, err := openDialector(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("Failed to get database instance", "error", err)
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := retry.NewExponentialBackoff(cfg.ConnectRetry).Execute(ctx, sqlDB.PingContext); err != nil {
		logger.Error("Database ping failed", "error", err)
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully", "driver", cfg.Driver)
	return gdb, nil
}

func openDialector(logger *log.Logger, cfg *DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DatabaseDriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." && cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		logger.Info("Using sqlite database", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath), nil
	case DatabaseDriverPostgres, "":
		dsn, err := postgresDSN(logger, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unsupported DATABASE_DRIVER %q (allowed: postgres, sqlite)", cfg.Driver), nil)
	}
}

func postgresDSN(logger *log.Logger, pg PostgresConfig) (string, error) {
	if pg.URL != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return pg.URL, nil
	}

	var missing []string
	for _, required := range []struct{ name, value string }{
		{"POSTGRES_HOST", pg.Host},
		{"POSTGRES_PORT", pg.Port},
		{"POSTGRES_USER", pg.User},
		{"POSTGRES_DB_NAME", pg.DBName},
	} {
		if required.value == "" {
			missing = append(missing, required.name)
		}
	}

	if len(missing) > 0 {
		logger.Error("Missing required database environment variables", "missing_vars", strings.Join(missing, ", "))
		return "", apperrors.NewConfigurationError("missing required database env vars: "+strings.Join(missing, ", "), nil)
	}

	port, err := strconv.Atoi(pg.Port)
	if err != nil {
		logger.Error("Invalid POSTGRES_PORT", "error", err)
		return "", apperrors.NewConfigurationError(fmt.Sprintf("invalid POSTGRES_PORT %q", pg.Port), err)
	}

	logger.Info("Connecting to database",
		"host", pg.Host,
		"port", port,
		"user", pg.User,
		"dbname", pg.DBName,
		"sslmode", pg.SSLMode,
	)

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, port, pg.User, pg.Password, pg.DBName, pg.SSLMode,
	), nil
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

// MigrateUp applies the SQL migrations (embedded, or MIGRATIONS_DIR when set) for the configured
// driver. golang-migrate closes the underlying *sql.DB when it finishes, so db is unusable afterwards.
func MigrateUp(ctx context.Context, logger *log.Logger, db *gorm.DB, cfg *DBConfig) error {
	return migrate(ctx, logger, db, cfg, migrations.Up)
}

// MigrateDown reverts every applied migration. Like MigrateUp it consumes db.
func MigrateDown(ctx context.Context, logger *log.Logger, db *gorm.DB, cfg *DBConfig) error {
	return migrate(ctx, logger, db, cfg, migrations.Down)
}

func migrate(
	ctx context.Context,
	logger *log.Logger,
	db *gorm.DB,
	cfg *DBConfig,
	apply func(context.Context, *sql.DB, migrations.Config) error,
) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}

	return apply(ctx, sqlDB, migrations.Config{
		Dir:     os.Getenv("MIGRATIONS_DIR"),
		Dialect: cfg.MigrationDialect(),
		Logger:  logger,
	})
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
