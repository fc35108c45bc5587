package config

import "time"

// Config holds runtime parameters for evcore.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Dispatch    DispatchConfig    `json:"dispatch" yaml:"dispatch" toml:"dispatch"`
	Log         LogConfig         `json:"log" yaml:"log" toml:"log"`
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics" toml:"diagnostics"`
	Demo        DemoConfig        `json:"demo" yaml:"demo" toml:"demo"`
}

// DispatchConfig sizes the dispatcher queues and sets the publish policy.
type DispatchConfig struct {
	HighCapacity     int `json:"high_capacity" yaml:"high_capacity" toml:"high_capacity"`
	NormalCapacity   int `json:"normal_capacity" yaml:"normal_capacity" toml:"normal_capacity"`
	PublishTimeoutMS int `json:"publish_timeout_ms" yaml:"publish_timeout_ms" toml:"publish_timeout_ms"`
	// NonBlocking makes task-context publishes drop immediately on a full
	// queue instead of waiting PublishTimeoutMS.
	NonBlocking    bool `json:"non_blocking" yaml:"non_blocking" toml:"non_blocking"`
	MaxPayloadSize int  `json:"max_payload_size" yaml:"max_payload_size" toml:"max_payload_size"`
}

// LogConfig selects log level, format and an optional rotated log file.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress" toml:"compress"`
}

// DiagnosticsConfig controls the read-only HTTP diagnostics surface and the
// error sink.
type DiagnosticsConfig struct {
	Addr              string     `json:"addr" yaml:"addr" toml:"addr"`
	Disabled          bool       `json:"disabled" yaml:"disabled" toml:"disabled"`
	ShutdownTimeoutMS int        `json:"shutdown_timeout_ms" yaml:"shutdown_timeout_ms" toml:"shutdown_timeout_ms"`
	ErrorLogRate      float64    `json:"error_log_rate" yaml:"error_log_rate" toml:"error_log_rate"`
	ErrorLogBurst     int        `json:"error_log_burst" yaml:"error_log_burst" toml:"error_log_burst"`
	CORS              CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
}

// CORSConfig is opt-in; nothing is added to the router unless Enabled.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// DemoConfig drives the demo producers started by "evcore run".
type DemoConfig struct {
	Disabled          bool   `json:"disabled" yaml:"disabled" toml:"disabled"`
	TickIntervalMS    int    `json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`
	CounterLimit      uint32 `json:"counter_limit" yaml:"counter_limit" toml:"counter_limit"`
	SensorIntervalMS  int    `json:"sensor_interval_ms" yaml:"sensor_interval_ms" toml:"sensor_interval_ms"`
	SensorThresholdMV int32  `json:"sensor_threshold_mv" yaml:"sensor_threshold_mv" toml:"sensor_threshold_mv"`
	ButtonIntervalMS  int    `json:"button_interval_ms" yaml:"button_interval_ms" toml:"button_interval_ms"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultHighCapacity      = 4
	DefaultNormalCapacity    = 8
	DefaultPublishTimeoutMS  = 2
	DefaultMaxPayloadSize    = 64
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultLogMaxSizeMB      = 50
	DefaultLogMaxBackups     = 3
	DefaultLogMaxAgeDays     = 14
	DefaultDiagnosticsAddr   = "127.0.0.1:9464"
	DefaultShutdownTimeoutMS = 5000
	DefaultErrorLogRate      = 5
	DefaultErrorLogBurst     = 10
	DefaultTickIntervalMS    = 250
	DefaultCounterLimit      = 1000
	DefaultSensorIntervalMS  = 100
	DefaultSensorThresholdMV = 3000
	DefaultButtonIntervalMS  = 1500
)

// Defaults returns a Config with every field set to its default.
func Defaults() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	d := &c.Dispatch
	if d.HighCapacity == 0 {
		d.HighCapacity = DefaultHighCapacity
	}
	if d.NormalCapacity == 0 {
		d.NormalCapacity = DefaultNormalCapacity
	}
	if d.PublishTimeoutMS == 0 {
		d.PublishTimeoutMS = DefaultPublishTimeoutMS
	}
	if d.MaxPayloadSize == 0 {
		d.MaxPayloadSize = DefaultMaxPayloadSize
	}

	l := &c.Log
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
	if l.MaxSizeMB == 0 {
		l.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = DefaultLogMaxBackups
	}
	if l.MaxAgeDays == 0 {
		l.MaxAgeDays = DefaultLogMaxAgeDays
	}

	g := &c.Diagnostics
	if g.Addr == "" {
		g.Addr = DefaultDiagnosticsAddr
	}
	if g.ShutdownTimeoutMS == 0 {
		g.ShutdownTimeoutMS = DefaultShutdownTimeoutMS
	}
	if g.ErrorLogRate == 0 {
		g.ErrorLogRate = DefaultErrorLogRate
	}
	if g.ErrorLogBurst == 0 {
		g.ErrorLogBurst = DefaultErrorLogBurst
	}
	if g.CORS.Enabled && len(g.CORS.AllowedMethods) == 0 {
		g.CORS.AllowedMethods = []string{"GET", "OPTIONS"}
	}

	m := &c.Demo
	if m.TickIntervalMS == 0 {
		m.TickIntervalMS = DefaultTickIntervalMS
	}
	if m.CounterLimit == 0 {
		m.CounterLimit = DefaultCounterLimit
	}
	if m.SensorIntervalMS == 0 {
		m.SensorIntervalMS = DefaultSensorIntervalMS
	}
	if m.SensorThresholdMV == 0 {
		m.SensorThresholdMV = DefaultSensorThresholdMV
	}
	if m.ButtonIntervalMS == 0 {
		m.ButtonIntervalMS = DefaultButtonIntervalMS
	}
}

// PublishTimeout is the bounded wait for task-context publishes. It is zero
// when NonBlocking is set.
func (d DispatchConfig) PublishTimeout() time.Duration {
	if d.NonBlocking {
		return 0
	}
	return ms(d.PublishTimeoutMS)
}

// ShutdownTimeout bounds the HTTP server and dispatcher shutdown.
func (g DiagnosticsConfig) ShutdownTimeout() time.Duration { return ms(g.ShutdownTimeoutMS) }

func (m DemoConfig) TickInterval() time.Duration   { return ms(m.TickIntervalMS) }
func (m DemoConfig) SensorInterval() time.Duration { return ms(m.SensorIntervalMS) }
func (m DemoConfig) ButtonInterval() time.Duration { return ms(m.ButtonIntervalMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
