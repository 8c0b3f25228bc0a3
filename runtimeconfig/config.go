package runtimeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config is the optional YAML server configuration. Everything in it has a
// sensible default; connection credentials stay in the environment.
type Config struct {
	Tools        []string `yaml:"tools"`
	AuditDB      string   `yaml:"auditDb"`
	StateBackend string   `yaml:"stateBackend"`
	LogLevel     string   `yaml:"logLevel"`
	LogFormat    string   `yaml:"logFormat"`
	MetricsAddr  string   `yaml:"metricsAddr"`
}

func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, fmt.Errorf("config path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", absPath, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file %q: %w", absPath, err)
	}

	cfg.AuditDB = strings.TrimSpace(cfg.AuditDB)
	cfg.StateBackend = strings.TrimSpace(cfg.StateBackend)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	cfg.LogFormat = strings.TrimSpace(cfg.LogFormat)
	cfg.MetricsAddr = strings.TrimSpace(cfg.MetricsAddr)
	cleanTools := make([]string, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		cleanTools = append(cleanTools, t)
	}
	cfg.Tools = cleanTools
	return cfg, nil
}
