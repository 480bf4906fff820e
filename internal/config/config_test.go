package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Matching.BimmudaThreshold != 65 || cfg.Matching.BowThreshold != 76 || cfg.Matching.StubsThreshold != 75 {
		t.Errorf("default thresholds wrong: %+v", cfg.Matching)
	}
	if cfg.Matching.CandidateCap != 3000 {
		t.Errorf("CandidateCap = %d, want 3000", cfg.Matching.CandidateCap)
	}
	if cfg.Years.ChartStart != 1958 || cfg.Years.ChartEnd != 2024 {
		t.Errorf("chart years = %d-%d", cfg.Years.ChartStart, cfg.Years.ChartEnd)
	}
	if cfg.Years.Top5End != 2022 {
		t.Errorf("Top5End = %d, want 2022", cfg.Years.Top5End)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.OutDir != "data_out" {
		t.Errorf("OutDir = %q", cfg.Paths.OutDir)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
paths:
  out_dir: /tmp/out
  bimmuda_root: /data/bimmuda
matching:
  bimmuda_threshold: 70
genius:
  requests_per_second: 1.5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.OutDir != "/tmp/out" || cfg.Paths.BimmudaRoot != "/data/bimmuda" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Matching.BimmudaThreshold != 70 {
		t.Errorf("BimmudaThreshold = %d, want 70", cfg.Matching.BimmudaThreshold)
	}
	// Unset fields keep their defaults.
	if cfg.Matching.BowThreshold != 76 {
		t.Errorf("BowThreshold = %d, want default 76", cfg.Matching.BowThreshold)
	}
	if cfg.Genius.RequestsPerSecond != 1.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.Genius.RequestsPerSecond)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("genius:\n  token: from-file\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("LP_GENIUS_TOKEN", "from-env")
	t.Setenv("LP_DB_PATH", "/tmp/other.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Genius.Token != "from-env" {
		t.Errorf("Token = %q, want env to win", cfg.Genius.Token)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("matching:\n  bow_threshold: 150\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for threshold out of range")
	}

	if err := os.WriteFile(path, []byte("years:\n  chart_start: 2020\n  chart_end: 1990\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for inverted year window")
	}

	if err := os.WriteFile(path, []byte("years:\n  bow_min_n_per_year: -1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative bow_min_n_per_year")
	}
}
