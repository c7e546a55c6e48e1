package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/concordtech/contact-api/internal/auth"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
)

// AdminConfig configures the admin gate. ADMIN_USERS is "name:secret,name2:secret2"; secrets may not
// contain ':' or ','.
type AdminConfig struct {
	Users           map[string]string `env:"ADMIN_USERS" envKeyValSeparator:":"`
	TokenSecret     string            `env:"ADMIN_TOKEN_SECRET"`
	TokenTTL        time.Duration     `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	MaxAttempts     int               `env:"ADMIN_MAX_ATTEMPTS" envDefault:"3"`
	LockoutDuration time.Duration     `env:"ADMIN_LOCKOUT_DURATION" envDefault:"15m"`
}

func NewAdminConfig() (*AdminConfig, error) {
	cfg, err := env.ParseAs[AdminConfig]()
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid admin configuration", err)
	}
	return &cfg, nil
}

func (ac *AdminConfig) NewGate() (*auth.Gate, error) {
	gate, err := auth.NewGate(auth.Config{
		Users:           ac.Users,
		TokenSecret:     []byte(ac.TokenSecret),
		TokenTTL:        ac.TokenTTL,
		MaxAttempts:     ac.MaxAttempts,
		LockoutDuration: ac.LockoutDuration,
	})
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid admin configuration (ADMIN_USERS requires ADMIN_TOKEN_SECRET)", err)
	}

	return gate, nil
}
