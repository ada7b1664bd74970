package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.BatchSize != 8 {
		t.Errorf("BatchSize = %d, want 8", cfg.BatchSize)
	}
	if cfg.MaxParallel != 8 {
		t.Errorf("MaxParallel = %d, want 8", cfg.MaxParallel)
	}
	if cfg.Depth != "thorough" {
		t.Errorf("Depth = %q, want thorough", cfg.Depth)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Format)
	}
	if !cfg.Privacy.SecretsEnabled() {
		t.Error("RedactSecrets should default to true")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
model: claude-opus
batchSize: 4
depth: quick
categories:
  - security
  - bug
privacy:
  redactSecrets: true
  redactPaths:
    - "**/credentials*"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom error: %v", err)
	}
	if cfg.Model != "claude-opus" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.BatchSize != 4 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if len(cfg.Categories) != 2 {
		t.Errorf("Categories = %v", cfg.Categories)
	}
	if len(cfg.Privacy.RedactPaths) != 1 {
		t.Errorf("RedactPaths = %v", cfg.Privacy.RedactPaths)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Model != "" {
		t.Error("missing file should yield zero config")
	}
}

func TestLoadFromInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(":\tnot yaml"), 0o644)

	if _, err := loadFrom(path); err == nil {
		t.Error("invalid YAML should error")
	}
}

func TestMergeFile(t *testing.T) {
	dst := Default()
	mergeFile(&dst, Config{Model: "claude-haiku", BatchSize: 2})
	if dst.Model != "claude-haiku" {
		t.Errorf("Model = %q", dst.Model)
	}
	if dst.BatchSize != 2 {
		t.Errorf("BatchSize = %d", dst.BatchSize)
	}
	// Unset fields keep defaults.
	if dst.MaxParallel != 8 {
		t.Errorf("MaxParallel = %d", dst.MaxParallel)
	}
	if dst.Format != "text" {
		t.Errorf("Format = %q", dst.Format)
	}
}

func TestMergeFile_RedactSecrets(t *testing.T) {
	// An explicit false in the file disables the default-on redaction.
	dst := Default()
	mergeFile(&dst, Config{Privacy: PrivacyConfig{RedactSecrets: boolPtr(false)}})
	if dst.Privacy.SecretsEnabled() {
		t.Error("redactSecrets: false in the file should disable redaction")
	}

	// An absent key keeps the default.
	dst = Default()
	mergeFile(&dst, Config{Model: "claude-haiku"})
	if !dst.Privacy.SecretsEnabled() {
		t.Error("unset redactSecrets should keep the default")
	}
}

func TestLoadFromFile_RedactSecretsFalse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
privacy:
  redactSecrets: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom error: %v", err)
	}
	if cfg.Privacy.RedactSecrets == nil || *cfg.Privacy.RedactSecrets {
		t.Error("explicit false should decode as a set, false value")
	}
}

func TestSetFieldRedactSecrets(t *testing.T) {
	cfg := Default()
	if err := SetField(&cfg, "redactSecrets", "false"); err != nil {
		t.Fatalf("SetField error: %v", err)
	}
	if cfg.Privacy.SecretsEnabled() {
		t.Error("SetField should disable redaction")
	}
	if err := SetField(&cfg, "redactSecrets", "not-a-bool"); err == nil {
		t.Error("non-boolean value should error")
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("ASSAY_MODEL", "claude-sonnet")
	t.Setenv("ASSAY_BATCH_SIZE", "3")
	t.Setenv("ASSAY_MAX_PARALLEL", "not a number")

	cfg := Default()
	mergeEnv(&cfg)
	if cfg.Model != "claude-sonnet" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.MaxParallel != 8 {
		t.Errorf("invalid env value should be ignored, MaxParallel = %d", cfg.MaxParallel)
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := Default()
	mergeOverrides(&cfg, map[string]string{
		"model":      "claude-opus",
		"depth":      "quick",
		"batch-size": "16",
		"format":     "",
	})
	if cfg.Model != "claude-opus" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Depth != "quick" {
		t.Errorf("Depth = %q", cfg.Depth)
	}
	if cfg.BatchSize != 16 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if cfg.Format != "text" {
		t.Errorf("empty override should not clear Format, got %q", cfg.Format)
	}
}
