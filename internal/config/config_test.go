package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Cache.Enabled {
		t.Error("expected cache to be enabled by default")
	}
	if !cfg.Write.Fold {
		t.Error("expected writes to fold by default")
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want warn/text", cfg.Log)
	}
	if cfg.Database != "" && !strings.HasSuffix(cfg.Database, "OmniFocus.ofocus") {
		t.Errorf("unexpected default database %q", cfg.Database)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(missing) error: %v", err)
	}
	want := Default()
	if cfg.Log != want.Log || cfg.Cache != want.Cache || cfg.Write != want.Write {
		t.Errorf("Load(missing) = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `database: /tmp/Test.ofocus
cache:
  enabled: false
log:
  level: debug
write:
  fold: false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Database != "/tmp/Test.ofocus" {
		t.Errorf("Database = %q, want %q", cfg.Database, "/tmp/Test.ofocus")
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache to be disabled")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	// Unset keys keep their defaults.
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
	if cfg.Write.Fold {
		t.Error("expected write.fold to be false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENFOCUS_LOG_LEVEL", "error")
	t.Setenv("OPENFOCUS_DATABASE", "/env/Doc.ofocus")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "error")
	}
	if cfg.Database != "/env/Doc.ofocus" {
		t.Errorf("Database = %q, want %q", cfg.Database, "/env/Doc.ofocus")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Database = "/docs/Saved.ofocus"
	cfg.Cache.Path = "/cache/openfocus.db"
	cfg.Log.Format = "json"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if *got != *cfg {
		t.Errorf("Load after Save = %+v, want %+v", got, cfg)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	path, err := DefaultConfigPath()
	if err != nil {
		t.Skipf("no config directory: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("openfocus", "config.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", path)
	}
}
