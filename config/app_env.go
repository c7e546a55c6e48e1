package config

import (
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/concordtech/contact-api/internal/log"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// Environments in which the server may run schema changes on boot.
var autoMigrateEnvs = []string{"", "dev", "development", "local", "test", "testing"}

// EnvFileSettings controls how dotenv files are loaded before anything else reads the environment.
type EnvFileSettings struct {
	Skip  bool     `env:"SKIP_DOTENV"`
	Paths []string `env:"DOTENV_PATH" envSeparator:","`
}

// InitializeEnvFile loads DOTENV_PATH (or ./.env) without overriding variables that are already set.
func InitializeEnvFile(logger *log.Logger) {
	settings, err := env.ParseAs[EnvFileSettings]()
	if err != nil {
		logger.Warn("Invalid dotenv settings; loading .env", "error", err)
		settings = EnvFileSettings{}
	}

	if settings.Skip {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	paths := compactPaths(settings.Paths)
	if err := godotenv.Load(paths...); err != nil {
		logger.Warn("No .env file found or failed to load it", "paths", paths, "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded from .env file", "paths", paths)
}

func compactPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func GetAppEnv() string {
	return normalizeAppEnv(os.Getenv(AppEnvKey))
}

func normalizeAppEnv(appEnv string) string {
	return strings.ToLower(strings.TrimSpace(appEnv))
}

// ValidateAutoMigrateAllowed rejects --auto-migrate outside development-like environments.
func ValidateAutoMigrateAllowed(appEnv string) error {
	appEnv = normalizeAppEnv(appEnv)
	if slices.Contains(autoMigrateEnvs, appEnv) {
		return nil
	}

	return apperrors.NewConfigurationError(
		"--auto-migrate is not allowed when "+AppEnvKey+"="+appEnv+" (allowed: dev, development, local, test, testing or unset)",
		nil,
	)
}
