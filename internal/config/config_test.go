package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvProject, "")
	t.Setenv(EnvThreads, "")
	t.Setenv(EnvLogLevel, "")
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists || path == "" {
		t.Fatalf("expected resolved but missing path, got %q exists=%v", path, exists)
	}
	if cfg.Index.Backend != BackendCSV || cfg.Merge.Sentinel != "NA" || cfg.Import.Threads != 0 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !filepath.IsAbs(cfg.Project.Path) {
		t.Fatalf("project path should be absolute, got %q", cfg.Project.Path)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvProject, "")
	t.Setenv(EnvThreads, "")
	t.Setenv(EnvLogLevel, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "annoset.toml")
	body := `
[project]
path = "` + filepath.ToSlash(dir) + `"

[index]
backend = "SQLite"

[import]
threads = 3

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatalf("expected file to exist")
	}
	if cfg.Index.Backend != BackendSQLite {
		t.Fatalf("backend not normalized: %q", cfg.Index.Backend)
	}
	if want := filepath.Join(dir, "metadata", "annotations.db"); cfg.Index.SQLitePath != want {
		t.Fatalf("sqlite path: got %q want %q", cfg.Index.SQLitePath, want)
	}
	if cfg.Import.Threads != 3 || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvProject, dir)
	t.Setenv(EnvThreads, "2")
	t.Setenv(EnvLogLevel, "DEBUG")
	cfg, _, _, err := Load(filepath.Join(dir, "none.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.Path != dir || cfg.Import.Threads != 2 || cfg.Merge.Threads != 2 || cfg.Logging.Level != "debug" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvProject, "")
	t.Setenv(EnvThreads, "")
	t.Setenv(EnvLogLevel, "")
	cases := map[string]string{
		"backend":      "[index]\nbackend = \"postgres\"\n",
		"threads":      "[import]\nthreads = -1\n",
		"version":      "[project]\npackage_version = \"latest\"\n",
		"unknown":      "[project]\nroot = \"x\"\n",
		"log format":   "[logging]\nformat = \"xml\"\n",
		"syntax error": "[project\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv(EnvProject, "")
	t.Setenv(EnvThreads, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), "[index]") {
		t.Fatalf("sample not written: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample must load cleanly: %v", err)
	}
}

func TestLoad_RelativeSQLitePath(t *testing.T) {
	t.Setenv(EnvProject, "")
	t.Setenv(EnvThreads, "")
	t.Setenv(EnvLogLevel, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "annoset.toml")
	body := "[project]\npath = \"" + filepath.ToSlash(dir) + "\"\n\n[index]\nbackend = \"sqlite\"\nsqlite_path = \"db/index.db\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := filepath.Join(dir, "db", "index.db"); cfg.Index.SQLitePath != want {
		t.Fatalf("sqlite path: got %q want %q", cfg.Index.SQLitePath, want)
	}
}

func TestLoadWithOverrides_FlagsBeatEnv(t *testing.T) {
	envDir, flagDir := t.TempDir(), t.TempDir()
	t.Setenv(EnvProject, envDir)
	t.Setenv(EnvThreads, "")
	t.Setenv(EnvLogLevel, "warn")

	cfg, _, _, err := LoadWithOverrides(filepath.Join(t.TempDir(), "none.toml"), Overrides{ProjectPath: flagDir, LogLevel: "DEBUG"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.Path != flagDir || cfg.Logging.Level != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	cfg, _, _, err = LoadWithOverrides(filepath.Join(t.TempDir(), "none.toml"), Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.Path != envDir || cfg.Logging.Level != "warn" {
		t.Fatalf("empty overrides must keep env values: %+v", cfg)
	}
}
