package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

//go:embed sql/*.sql
var embedded embed.FS

type migrator interface {
	Up() error
	Down() error
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	switch cfg.Dialect {
	case DialectPostgres:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	case DialectSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: cfg.MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
}

var sourceFactory = func(cfg Config) (string, source.Driver, error) {
	if cfg.Dir == "" {
		src, err := iofs.New(embedded, "sql")
		return "iofs", src, err
	}

	src, err := (&file.File{}).Open(sourceURL(cfg.Dir))
	return "file", src, err
}

var migratorFactory = func(sourceName string, src source.Driver, dialect string, driver database.Driver) (migrator, error) {
	return migrate.NewWithInstance(sourceName, src, dialect, driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	// Dir overrides the embedded migrations with a directory on disk.
	Dir             string
	Dialect         string
	MigrationsTable string
	Logger          Logger
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	return run(ctx, db, cfg, "up", migrator.Up)
}

// Down reverts every applied migration.
func Down(ctx context.Context, db *sql.DB, cfg Config) error {
	return run(ctx, db, cfg, "down", migrator.Down)
}

func run(ctx context.Context, db *sql.DB, cfg Config, direction string, step func(migrator) error) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Dialect) == "" {
		cfg.Dialect = DialectPostgres
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = "schema_migrations"
	}
	if strings.TrimSpace(cfg.Dir) != "" {
		absDir, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return fmt.Errorf("migrations: resolve dir: %w", err)
		}
		cfg.Dir = absDir
	}

	sourceName, src, err := sourceFactory(cfg)
	if err != nil {
		return fmt.Errorf("migrations: source: %w", err)
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return fmt.Errorf("migrations: %s driver: %w", cfg.Dialect, err)
	}

	m, err := migratorFactory(sourceName, src, cfg.Dialect, driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}
	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger != nil {
				if srcErr != nil {
					cfg.Logger.Warn("Migrations source close error", "error", srcErr)
				}
				if dbErr != nil {
					cfg.Logger.Warn("Migrations db close error", "error", dbErr)
				}
			}
		})
	}
	defer closeMigrator()

	if cfg.Logger != nil {
		cfg.Logger.Info("Running SQL migrations",
			"direction", direction,
			"source", sourceName,
			"dialect", cfg.Dialect,
			"table", cfg.MigrationsTable,
		)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- step(m)
	}()

	select {
	case <-ctx.Done():
		// migrate has no context support; closing is the only way to interrupt it.
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				if cfg.Logger != nil {
					cfg.Logger.Info("No migrations to apply")
				}
				return nil
			}
			return fmt.Errorf("migrations: %s: %w", direction, err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Migrations applied successfully", "direction", direction)
	}
	return nil
}

// sourceURL builds a file:// URL with forward slashes and proper escaping.
func sourceURL(absDir string) string {
	return (&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absDir),
	}).String()
}
