package httpapi

import "time"

// Stream interval bounds for /stats/stream. Requests outside the range are
// clamped.
var (
	minStreamInterval     = 100 * time.Millisecond
	maxStreamInterval     = 60 * time.Second
	defaultStreamInterval = time.Second
)

// SetStreamInterval sets the default interval between /stats/stream lines.
// Non-positive values restore the 1s default.
func SetStreamInterval(d time.Duration) {
	if d <= 0 {
		defaultStreamInterval = time.Second
		return
	}
	defaultStreamInterval = clampInterval(d)
}

func clampInterval(d time.Duration) time.Duration {
	if d < minStreamInterval {
		return minStreamInterval
	}
	if d > maxStreamInterval {
		return maxStreamInterval
	}
	return d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
