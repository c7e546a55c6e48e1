package router

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	defaultMaxRequestBodyBytes = 1 << 20
	defaultHSTSMaxAge          = 31536000
)

// HTTPSettings holds the transport-level knobs read from the environment when the router is built.
type HTTPSettings struct {
	AppEnv              string   `env:"APP_ENV"`
	TrustedProxies      []string `env:"TRUSTED_PROXIES" envSeparator:","`
	MaxRequestBodyBytes int64    `env:"MAX_REQUEST_BODY_BYTES" envDefault:"1048576"`
	CORSAllowedOrigins  []string `env:"CORS_ALLOWED_ORIGIN" envSeparator:","`
	MetricsEnabled      bool     `env:"METRICS_ENABLED" envDefault:"true"`

	// HSTSEnabled is kept raw: unset means "on in production".
	HSTSEnabled           string `env:"HSTS_ENABLED"`
	HSTSMaxAge            int64  `env:"HSTS_MAX_AGE" envDefault:"31536000"`
	HSTSIncludeSubdomains bool   `env:"HSTS_INCLUDE_SUBDOMAINS" envDefault:"true"`
}

func DefaultHTTPSettings() HTTPSettings {
	return HTTPSettings{
		MaxRequestBodyBytes:   defaultMaxRequestBodyBytes,
		MetricsEnabled:        true,
		HSTSMaxAge:            defaultHSTSMaxAge,
		HSTSIncludeSubdomains: true,
	}
}

// LoadHTTPSettings parses the environment. Non-positive sizes fall back to their defaults.
func LoadHTTPSettings() (HTTPSettings, error) {
	s, err := env.ParseAs[HTTPSettings]()
	if err != nil {
		return DefaultHTTPSettings(), fmt.Errorf("parse HTTP settings: %w", err)
	}

	if s.MaxRequestBodyBytes <= 0 {
		s.MaxRequestBodyBytes = defaultMaxRequestBodyBytes
	}
	if s.HSTSMaxAge <= 0 {
		s.HSTSMaxAge = defaultHSTSMaxAge
	}

	s.AppEnv = strings.ToLower(strings.TrimSpace(s.AppEnv))
	s.TrustedProxies = compact(s.TrustedProxies)
	s.CORSAllowedOrigins = compact(s.CORSAllowedOrigins)

	return s, nil
}

// MetricsEnabled reports whether /metrics is served (METRICS_ENABLED, default true).
func MetricsEnabled() bool {
	s, err := LoadHTTPSettings()
	if err != nil {
		return true
	}
	return s.MetricsEnabled
}

// Proxies returns the CIDRs gin should trust for X-Forwarded-For. Nil disables trust so
// ClientIP() uses RemoteAddr; "*" trusts everything and is meant for local setups only.
func (s HTTPSettings) Proxies() []string {
	if len(s.TrustedProxies) == 0 {
		return nil
	}
	if slices.Contains(s.TrustedProxies, "*") {
		return []string{"0.0.0.0/0", "::/0"}
	}
	return s.TrustedProxies
}

func (s HTTPSettings) HSTSActive() bool {
	if s.HSTSEnabled == "" {
		return s.AppEnv == "production" || s.AppEnv == "prod"
	}

	enabled, err := strconv.ParseBool(strings.TrimSpace(s.HSTSEnabled))
	return err == nil && enabled
}

func (s HTTPSettings) HSTSValue() string {
	value := fmt.Sprintf("max-age=%d", s.HSTSMaxAge)
	if s.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s HTTPSettings) AllowsAnyOrigin() bool {
	return slices.Contains(s.CORSAllowedOrigins, "*")
}
