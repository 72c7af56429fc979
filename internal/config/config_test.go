package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "bitdo/pkg/exchange/mock"
)

// Test_Load_withExchangeSection verifies env expansion and hydration of the
// exchange section file referenced from the main config.
func Test_Load_withExchangeSection(t *testing.T) {
	dir := t.TempDir()

	exchangeYAML := []byte(`
exchanges:
  paper:
    type: mock
    key: ${PAPER_KEY}
    simulate: true
    timeout: ${PAPER_TIMEOUT}
`)
	exchangePath := filepath.Join(dir, "exchange.yaml")
	if err := os.WriteFile(exchangePath, exchangeYAML, 0o600); err != nil {
		t.Fatalf("write exchange.yaml: %v", err)
	}

	mainYAML := []byte(`
Env: dev
Recorder:
  Interval: 1m
Exchange:
  File: exchange.yaml
`)
	mainPath := filepath.Join(dir, "bitdo.yaml")
	if err := os.WriteFile(mainPath, mainYAML, 0o600); err != nil {
		t.Fatalf("write bitdo.yaml: %v", err)
	}

	t.Setenv("PAPER_KEY", "test-key")
	t.Setenv("PAPER_TIMEOUT", "9s")

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("Env got %q", cfg.Env)
	}
	if cfg.Recorder.Interval != time.Minute {
		t.Fatalf("Recorder.Interval got %s", cfg.Recorder.Interval)
	}

	if cfg.Exchange.Value == nil {
		t.Fatalf("Exchange section not hydrated")
	}
	paper := cfg.Exchange.Value.Exchanges["paper"]
	if paper == nil {
		t.Fatalf("exchange 'paper' missing")
	}
	if paper.Key != "test-key" {
		t.Fatalf("exchange key not expanded, got %q", paper.Key)
	}
	if paper.Timeout != 9*time.Second {
		t.Fatalf("exchange timeout not parsed, got %s", paper.Timeout)
	}
	if !paper.Simulate {
		t.Fatalf("simulate flag not parsed")
	}
}

func Test_Load_defaults(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "bitdo.yaml")
	if err := os.WriteFile(mainPath, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write bitdo.yaml: %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsTestEnv() {
		t.Fatalf("default env must be test, got %q", cfg.Env)
	}
	if cfg.Recorder.Interval != 5*time.Minute {
		t.Fatalf("default recorder interval got %s", cfg.Recorder.Interval)
	}
	if cfg.Postgres.MaxOpen != 10 || cfg.Postgres.MaxIdle != 5 {
		t.Fatalf("postgres pool defaults got %d/%d", cfg.Postgres.MaxOpen, cfg.Postgres.MaxIdle)
	}
}

func TestValidate_Env(t *testing.T) {
	cfg := &Config{Env: "staging"}
	cfg.Recorder.Interval = time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected env validation error")
	}
}

func TestValidate_RecorderInterval(t *testing.T) {
	cfg := &Config{Env: "dev"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Recorder.Interval != 5*time.Minute {
		t.Fatalf("zero interval must default to 5m, got %s", cfg.Recorder.Interval)
	}

	cfg = &Config{Env: "dev"}
	cfg.Recorder.Interval = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected recorder.interval validation error")
	}
}
