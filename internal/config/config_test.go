package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Engine.QueryTimeout != 180000 {
		t.Fatalf("unexpected query timeout: %d", cfg.Engine.QueryTimeout)
	}
	if !cfg.Engine.StrictStringComparison {
		t.Fatalf("expected strict string comparison by default")
	}
	if cfg.Engine.Culture != "und" {
		t.Fatalf("unexpected culture: %s", cfg.Engine.Culture)
	}
	if cfg.Storage.Path != "./trigo_data" {
		t.Fatalf("unexpected storage path: %s", cfg.Storage.Path)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  query_timeout_ms: 2500
  culture: de
  strict_string_comparison: false
  parallel_evaluation: true
storage:
  in_memory: true
  path: ""
logging:
  verbosity: 2
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Engine.QueryTimeout != 2500 {
		t.Fatalf("unexpected query timeout: %d", cfg.Engine.QueryTimeout)
	}
	if cfg.Engine.Culture != "de" || cfg.Engine.StrictStringComparison || !cfg.Engine.ParallelEvaluation {
		t.Fatalf("unexpected engine options: %+v", cfg.Engine)
	}
	if !cfg.Storage.InMemory || cfg.Storage.Path != "" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Logging.Verbosity != 2 {
		t.Fatalf("unexpected verbosity: %d", cfg.Logging.Verbosity)
	}
	if cfg.Logging.Prefix != "trigo-eval " {
		t.Fatalf("unexpected prefix: %q", cfg.Logging.Prefix)
	}
}

func TestLoadNormalizes(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  query_timeout_ms: -5
  culture: ""
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Engine.QueryTimeout != 0 {
		t.Fatalf("negative timeout should mean unbounded, got %d", cfg.Engine.QueryTimeout)
	}
	if cfg.Engine.Culture != "und" {
		t.Fatalf("unexpected culture: %s", cfg.Engine.Culture)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
	if _, err := Load(writeConfig(t, "engine: [")); err == nil {
		t.Fatalf("expected error for invalid yaml")
	}
}
