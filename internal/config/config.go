package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Service contains connection settings for one of the remote APIs.
type Service struct {
	URL    string `toml:"url"`
	User   string `toml:"user"`
	APIKey string `toml:"api_key"`
}

// Reingest contains the engine's admission and launch settings.
type Reingest struct {
	Pipeline         string `toml:"pipeline"`
	ProcessingConfig string `toml:"processing_config"`
	ReingestType     string `toml:"reingest_type"`
	Throttle         int    `toml:"throttle"`
	ApprovalRetries  int    `toml:"approval_retries"`
	LatencyMillis    int    `toml:"latency_ms"`
	MaxStatusPolls   int    `toml:"max_status_polls"`
	Order            string `toml:"order"`
	RequestTimeout   int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for amreingest.
//
// Configuration sections by subsystem:
//   - Paths: job database, run lock, and log directories
//   - Archivematica: dashboard API used for transfer/ingest status and approval
//   - StorageService: Storage Service API used for reingest, packages, pipelines
//   - Reingest: pipeline target, throttle, approval retries, and polling bounds
//   - Logging: log format, level, and retention
type Config struct {
	Paths          Paths    `toml:"paths"`
	Archivematica  Service  `toml:"archivematica"`
	StorageService Service  `toml:"storage_service"`
	Reingest       Reingest `toml:"reingest"`
	Logging        Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("amreingest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the reingest job database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LockPath returns the location of the run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "amreingest.lock")
}

// Latency returns the pause between transfer status polls during launch.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Reingest.LatencyMillis) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout for the pipeline APIs.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Reingest.RequestTimeout) * time.Second
}

// FIFO reports whether admission should follow insertion order rather than
// package identifier order.
func (c *Config) FIFO() bool {
	return c.Reingest.Order == OrderFIFO
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration to path. A non-empty
// pipelineID must be a uuid and is filled into reingest.pipeline.
func CreateSample(path, pipelineID string) error {
	content := sampleConfig
	if pipelineID = strings.TrimSpace(pipelineID); pipelineID != "" {
		parsed, err := uuid.Parse(pipelineID)
		if err != nil {
			return fmt.Errorf("pipeline %q is not a valid uuid", pipelineID)
		}
		content = strings.Replace(content, `pipeline = ""`, fmt.Sprintf("pipeline = %q", parsed.String()), 1)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
