package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Dispatch.HighCapacity < 1 {
		add("dispatch.high_capacity must be >= 1, got %d", c.Dispatch.HighCapacity)
	}
	if c.Dispatch.NormalCapacity < 1 {
		add("dispatch.normal_capacity must be >= 1, got %d", c.Dispatch.NormalCapacity)
	}
	if c.Dispatch.PublishTimeoutMS < 0 {
		add("dispatch.publish_timeout_ms must be >= 0, got %d", c.Dispatch.PublishTimeoutMS)
	}
	if c.Dispatch.MaxPayloadSize < 1 {
		add("dispatch.max_payload_size must be >= 1, got %d", c.Dispatch.MaxPayloadSize)
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		add("log.level %q is not a known level", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		add("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		add("log rotation limits must be >= 0")
	}

	if !c.Diagnostics.Disabled && c.Diagnostics.Addr == "" {
		add("diagnostics.addr is required unless diagnostics are disabled")
	}
	if c.Diagnostics.ErrorLogRate < 0 || c.Diagnostics.ErrorLogBurst < 0 {
		add("diagnostics error log rate and burst must be >= 0")
	}
	if c.Diagnostics.CORS.Enabled && len(c.Diagnostics.CORS.AllowedOrigins) == 0 {
		add("diagnostics.cors.allowed_origins is required when cors is enabled")
	}

	if c.Demo.TickIntervalMS < 1 || c.Demo.SensorIntervalMS < 1 || c.Demo.ButtonIntervalMS < 1 {
		add("demo intervals must be >= 1ms")
	}

	return errors.Join(errs...)
}
