package utils

const defaultServiceName = "contact-api"

// IsTracingEnabled reports OTEL_TRACES_ENABLED. Tracing is opt-in.
func IsTracingEnabled() bool {
	return GetEnvBool("OTEL_TRACES_ENABLED", false)
}

func OTelServiceName() string {
	return GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", defaultServiceName)
}
