// Package config loads assay settings from defaults, the user config file,
// environment variables and CLI flag overrides, in that precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the assay configuration.
type Config struct {
	ClaudePath         string        `yaml:"claudePath,omitempty"`
	Model              string        `yaml:"model,omitempty"`
	BatchSize          int           `yaml:"batchSize"`
	MaxParallel        int           `yaml:"maxParallel"`
	Depth              string        `yaml:"depth"`
	Categories         []string      `yaml:"categories,omitempty"`
	CustomInstructions string        `yaml:"customInstructions,omitempty"`
	StandardsFile      string        `yaml:"standardsFile,omitempty"`
	Format             string        `yaml:"format"`
	Privacy            PrivacyConfig `yaml:"privacy"`
}

// PrivacyConfig controls redaction behavior. RedactSecrets is a pointer so an
// explicit `redactSecrets: false` in the config file is distinguishable from
// the key being absent.
type PrivacyConfig struct {
	RedactSecrets *bool    `yaml:"redactSecrets,omitempty"`
	RedactPaths   []string `yaml:"redactPaths,omitempty"`
}

// SecretsEnabled reports the effective secret-redaction setting. An unset
// value means enabled.
func (p PrivacyConfig) SecretsEnabled() bool {
	return p.RedactSecrets == nil || *p.RedactSecrets
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		BatchSize:   8,
		MaxParallel: 8,
		Depth:       "thorough",
		Format:      "text",
		Privacy: PrivacyConfig{
			RedactSecrets: boolPtr(true),
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

func boolPtr(v bool) *bool { return &v }

// ConfigDir returns the platform-appropriate config directory for assay.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "assay"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "assay"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "assay"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "assay"), nil
	default:
		return filepath.Join(home, ".config", "assay"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil
// error if the file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFrom(path)
}

func loadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.ClaudePath != "" {
		dst.ClaudePath = src.ClaudePath
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.BatchSize > 0 {
		dst.BatchSize = src.BatchSize
	}
	if src.MaxParallel > 0 {
		dst.MaxParallel = src.MaxParallel
	}
	if src.Depth != "" {
		dst.Depth = src.Depth
	}
	if len(src.Categories) > 0 {
		dst.Categories = src.Categories
	}
	if src.CustomInstructions != "" {
		dst.CustomInstructions = src.CustomInstructions
	}
	if src.StandardsFile != "" {
		dst.StandardsFile = src.StandardsFile
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if len(src.Privacy.RedactPaths) > 0 {
		dst.Privacy.RedactPaths = src.Privacy.RedactPaths
	}
	if src.Privacy.RedactSecrets != nil {
		dst.Privacy.RedactSecrets = src.Privacy.RedactSecrets
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("ASSAY_CLAUDE_PATH"); v != "" {
		cfg.ClaudePath = v
	}
	if v := os.Getenv("ASSAY_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("ASSAY_DEPTH"); v != "" {
		cfg.Depth = v
	}
	if v := os.Getenv("ASSAY_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("ASSAY_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("ASSAY_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxParallel = n
		}
	}
}

// SetField sets a single config field by key, for the config set command.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "claudePath":
		cfg.ClaudePath = value
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "depth":
		cfg.Depth = value
	case "customInstructions":
		cfg.CustomInstructions = value
	case "standardsFile":
		cfg.StandardsFile = value
	case "redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("redactSecrets must be true or false: %w", err)
		}
		cfg.Privacy.RedactSecrets = boolPtr(b)
	case "batchSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("batchSize must be an integer: %w", err)
		}
		cfg.BatchSize = n
	case "maxParallel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxParallel must be an integer: %w", err)
		}
		cfg.MaxParallel = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		switch key {
		case "claude-path":
			cfg.ClaudePath = value
		case "model":
			cfg.Model = value
		case "depth":
			cfg.Depth = value
		case "format":
			cfg.Format = value
		case "custom":
			cfg.CustomInstructions = value
		case "standards-file":
			cfg.StandardsFile = value
		case "batch-size":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.BatchSize = n
			}
		case "max-parallel":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				cfg.MaxParallel = n
			}
		}
	}
}
