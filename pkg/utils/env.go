package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnvTrimmedOrDefault treats a blank variable as unset.
func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool parses key with strconv.ParseBool, returning defaultValue when unset or malformed.
func GetEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return b
}

// IsSet reports whether key is present with a non-blank value.
func IsSet(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}
