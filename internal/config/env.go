package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EVCORE_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from EVCORE_* variables. Unset or empty variables
// leave the field alone; malformed numbers are an error.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.int("HIGH_CAPACITY", &c.Dispatch.HighCapacity)
	e.int("NORMAL_CAPACITY", &c.Dispatch.NormalCapacity)
	e.int("PUBLISH_TIMEOUT_MS", &c.Dispatch.PublishTimeoutMS)
	e.bool("NON_BLOCKING", &c.Dispatch.NonBlocking)
	e.int("MAX_PAYLOAD_SIZE", &c.Dispatch.MaxPayloadSize)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)
	e.str("LOG_FILE", &c.Log.File)

	e.str("DIAG_ADDR", &c.Diagnostics.Addr)
	e.bool("DIAG_DISABLED", &c.Diagnostics.Disabled)
	e.bool("CORS_ENABLED", &c.Diagnostics.CORS.Enabled)
	e.list("CORS_ORIGINS", &c.Diagnostics.CORS.AllowedOrigins)

	e.bool("DEMO_DISABLED", &c.Demo.Disabled)
	e.int("TICK_INTERVAL_MS", &c.Demo.TickIntervalMS)

	return e.err
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty
// entries.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil || e.lookup == nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) int(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		return
	}
	*dst = n
}

func (e *envReader) bool(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		return
	}
	*dst = b
}

func (e *envReader) list(name string, dst *[]string) {
	if v, ok := e.get(name); ok {
		*dst = SplitCSV(v)
	}
}
