package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `dispatch:
  high_capacity: 6
  normal_capacity: 12
  publish_timeout_ms: 5
log:
  level: debug
  format: console
diagnostics:
  addr: ":9999"
  cors:
    enabled: true
    allowed_origins: ["http://localhost:3000"]
demo:
  counter_limit: 99
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dispatch.HighCapacity != 6 || cfg.Dispatch.NormalCapacity != 12 || cfg.Dispatch.PublishTimeoutMS != 5 {
		t.Fatalf("unexpected dispatch cfg: %+v", cfg.Dispatch)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log cfg: %+v", cfg.Log)
	}
	if cfg.Diagnostics.Addr != ":9999" || !cfg.Diagnostics.CORS.Enabled || len(cfg.Diagnostics.CORS.AllowedOrigins) != 1 {
		t.Fatalf("unexpected diagnostics cfg: %+v", cfg.Diagnostics)
	}
	if cfg.Demo.CounterLimit != 99 {
		t.Fatalf("unexpected demo cfg: %+v", cfg.Demo)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"dispatch":{"high_capacity":2,"non_blocking":true},"log":{"file":"evcore.log"},"diagnostics":{"disabled":true}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dispatch.HighCapacity != 2 || !cfg.Dispatch.NonBlocking || cfg.Log.File != "evcore.log" || !cfg.Diagnostics.Disabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "[dispatch]\nnormal_capacity=16\nmax_payload_size=128\n\n[demo]\ntick_interval_ms=10\nsensor_threshold_mv=2500\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dispatch.NormalCapacity != 16 || cfg.Dispatch.MaxPayloadSize != 128 || cfg.Demo.TickIntervalMS != 10 || cfg.Demo.SensorThresholdMV != 2500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestResolve_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("EVCORE_HIGH_CAPACITY", "")
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := Defaults()
	if cfg.Dispatch != want.Dispatch || cfg.Log != want.Log || cfg.Demo != want.Demo {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestResolve_FileThenEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "evcore.yaml", "dispatch:\n  high_capacity: 3\nlog:\n  file: logs/evcore.log\n")
	t.Setenv("EVCORE_NORMAL_CAPACITY", "20")
	t.Setenv("EVCORE_LOG_LEVEL", "warn")

	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Dispatch.HighCapacity != 3 || cfg.Dispatch.NormalCapacity != 20 {
		t.Fatalf("unexpected dispatch cfg: %+v", cfg.Dispatch)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env did not override log level: %q", cfg.Log.Level)
	}
	if want := filepath.Join(d, "logs", "evcore.log"); cfg.Log.File != want {
		t.Fatalf("log file %q, want %q", cfg.Log.File, want)
	}
}

func TestResolve_InvalidFails(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "evcore.yaml", "dispatch:\n  high_capacity: -1\nlog:\n  format: xml\n")
	if _, err := Resolve(p); err == nil {
		t.Fatalf("expected validation error")
	}
}
