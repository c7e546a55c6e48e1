package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAutoMigrateAllowed(t *testing.T) {
	for _, appEnv := range []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "} {
		t.Run("allows "+appEnv, func(t *testing.T) {
			assert.NoError(t, ValidateAutoMigrateAllowed(appEnv))
		})
	}

	for _, appEnv := range []string{"prod", "production", "staging", "preprod", " Production ", "qa"} {
		t.Run("rejects "+appEnv, func(t *testing.T) {
			err := ValidateAutoMigrateAllowed(appEnv)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigurationError(err))
		})
	}
}

func TestInitializeEnvFile_LoadsDotenvPathWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_BACKEND=file\nREDIS_PORT=6380\n"), 0o600))

	t.Setenv("SKIP_DOTENV", "")
	t.Setenv("DOTENV_PATH", path)
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("STORAGE_BACKEND", "")
	require.NoError(t, os.Unsetenv("STORAGE_BACKEND"))

	InitializeEnvFile(newTestLogger())

	assert.Equal(t, "file", os.Getenv("STORAGE_BACKEND"))
	assert.Equal(t, "6379", os.Getenv("REDIS_PORT"))
}

func TestInitializeEnvFile_Skip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_FILE_PATH=/tmp/ignored.json\n"), 0o600))

	t.Setenv("SKIP_DOTENV", "true")
	t.Setenv("DOTENV_PATH", path)
	t.Setenv("STORAGE_FILE_PATH", "")
	require.NoError(t, os.Unsetenv("STORAGE_FILE_PATH"))

	InitializeEnvFile(newTestLogger())

	_, set := os.LookupEnv("STORAGE_FILE_PATH")
	assert.False(t, set)
}

func TestNewAppConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "250")
	t.Setenv("RATE_LIMIT_WINDOW", "-1s")
	t.Setenv("SUBMISSION_RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("REQUEST_TIMEOUT", "10s")

	cfg := NewAppConfig()

	assert.Equal(t, 250, cfg.RateLimitRequests)
	assert.Equal(t, int64(60), int64(cfg.RateLimitWindow.Seconds()))
	assert.Equal(t, 5, cfg.SubmissionRequestsPerMinute)
	assert.Equal(t, "10s", cfg.RequestTimeout.String())
}

func TestNewCacheConfig(t *testing.T) {
	t.Setenv("REDIS_HOST", " redis ")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "-2")

	cc := NewCacheConfig()

	assert.True(t, cc.IsConfigured())
	assert.Equal(t, "redis", cc.Host)
	assert.Equal(t, "6379", cc.Port)
	assert.Equal(t, 0, cc.DB)
}
