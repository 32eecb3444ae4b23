package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	dir := setHome(t)

	cfg, err := LoadFile(filepath.Join(dir, "medclass.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.MaxResults != 10 || cfg.MinQueryLen != 2 || cfg.MinScore != 0.3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheDir != filepath.Join(dir, "cache") {
		t.Fatalf("unexpected cache dir: %s", cfg.CacheDir)
	}
}

func TestLoadFile_OverridesAndExpandsHome(t *testing.T) {
	dir := setHome(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "medclass.yaml")
	body := "catalog_path: ~/catalogs/22.csv\nmax_results: 5\nmin_score: 0.5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	home := filepath.Dir(dir)
	if cfg.CatalogPath != filepath.Join(home, "catalogs", "22.csv") {
		t.Fatalf("~ not expanded: %s", cfg.CatalogPath)
	}
	if cfg.MaxResults != 5 || cfg.MinScore != 0.5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.MinQueryLen != 2 {
		t.Fatalf("unset field lost its default: %+v", cfg)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	dir := setHome(t)
	writeDotEnv(t, dir, EnvCacheDir+"=/from/dotenv\n")
	t.Setenv(EnvCatalog, "/from/env.csv")

	cfg, err := LoadFile(filepath.Join(dir, "medclass.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.CatalogPath != "/from/env.csv" || cfg.CacheDir != "/from/dotenv" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadFile_RejectsInvalidValues(t *testing.T) {
	dir := setHome(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, body := range []string{"max_results: 0\n", "min_score: 2\n", "catalog_path: [\n"} {
		path := filepath.Join(dir, "medclass.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := setHome(t)
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workers = 3
	path := filepath.Join(dir, "medclass.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestUpdate_DoesNotPersistEnvOverrides(t *testing.T) {
	dir := setHome(t)
	writeDotEnv(t, dir, EnvLogLevel+"=debug\n")
	t.Setenv(EnvCacheDir, "/from/env/cache")
	t.Setenv(EnvCatalog, "")

	path := filepath.Join(dir, "medclass.yaml")
	if err := os.WriteFile(path, []byte("max_results: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Update(path, func(c *Config) { c.CatalogPath = "/data/22.csv" }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	if strings.Contains(body, "/from/env/cache") || strings.Contains(body, "debug") {
		t.Fatalf("environment overrides leaked into the file:\n%s", body)
	}

	t.Setenv(EnvCacheDir, "")
	t.Setenv(EnvLogLevel, "")
	if err := os.Remove(filepath.Join(dir, ".env")); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.CatalogPath != "/data/22.csv" || cfg.MaxResults != 7 {
		t.Fatalf("update lost fields: %+v", cfg)
	}
	if cfg.CacheDir != filepath.Join(dir, "cache") || cfg.LogLevel != "warn" {
		t.Fatalf("defaults replaced by overrides: %+v", cfg)
	}
}
