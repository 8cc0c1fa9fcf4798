package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService("archivematica", c.Archivematica); err != nil {
		return err
	}
	if err := c.validateService("storage_service", c.StorageService); err != nil {
		return err
	}
	if err := c.validateReingest(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService(section string, svc Service) error {
	if svc.URL == "" {
		return fmt.Errorf("%s.url must be set", section)
	}
	parsed, err := url.Parse(svc.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s.url %q is not an absolute URL", section, svc.URL)
	}
	if svc.User == "" {
		return fmt.Errorf("%s.user must be set", section)
	}
	return nil
}

func (c *Config) validateReingest() error {
	if c.Reingest.Pipeline == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("reingest.pipeline is required. Edit %s (create with 'amreingest config init')", defaultPath)
	}
	if _, err := uuid.Parse(c.Reingest.Pipeline); err != nil {
		return fmt.Errorf("reingest.pipeline %q is not a valid uuid", c.Reingest.Pipeline)
	}
	if c.Reingest.Throttle < 1 {
		return errors.New("reingest.throttle must be at least 1")
	}
	if c.Reingest.ApprovalRetries < 1 {
		return errors.New("reingest.approval_retries must be at least 1")
	}
	if c.Reingest.LatencyMillis < 0 {
		return errors.New("reingest.latency_ms must be >= 0")
	}
	if c.Reingest.MaxStatusPolls < 1 {
		return errors.New("reingest.max_status_polls must be at least 1")
	}
	if c.Reingest.RequestTimeout <= 0 {
		return errors.New("reingest.request_timeout must be positive (seconds)")
	}
	switch c.Reingest.Order {
	case OrderPackageID, OrderFIFO:
	default:
		return fmt.Errorf("reingest.order must be %q or %q", OrderPackageID, OrderFIFO)
	}
	switch c.Reingest.ReingestType {
	case "FULL", "OBJECTS", "METADATA":
	default:
		return fmt.Errorf("reingest.reingest_type %q is not one of FULL, OBJECTS, METADATA", c.Reingest.ReingestType)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
