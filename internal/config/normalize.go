package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServices()
	c.normalizeReingest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServices() {
	c.Archivematica.URL = strings.TrimRight(strings.TrimSpace(c.Archivematica.URL), "/")
	c.Archivematica.User = strings.TrimSpace(c.Archivematica.User)
	c.Archivematica.APIKey = strings.TrimSpace(c.Archivematica.APIKey)
	if c.Archivematica.APIKey == "" {
		if value, ok := os.LookupEnv(EnvAMAPIKey); ok {
			c.Archivematica.APIKey = strings.TrimSpace(value)
		}
	}

	c.StorageService.URL = strings.TrimRight(strings.TrimSpace(c.StorageService.URL), "/")
	c.StorageService.User = strings.TrimSpace(c.StorageService.User)
	c.StorageService.APIKey = strings.TrimSpace(c.StorageService.APIKey)
	if c.StorageService.APIKey == "" {
		if value, ok := os.LookupEnv(EnvSSAPIKey); ok {
			c.StorageService.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeReingest() {
	c.Reingest.Pipeline = strings.ToLower(strings.TrimSpace(c.Reingest.Pipeline))
	c.Reingest.ProcessingConfig = strings.TrimSpace(c.Reingest.ProcessingConfig)
	if c.Reingest.ProcessingConfig == "" {
		c.Reingest.ProcessingConfig = defaultProcessingConfig
	}
	c.Reingest.ReingestType = strings.ToUpper(strings.TrimSpace(c.Reingest.ReingestType))
	if c.Reingest.ReingestType == "" {
		c.Reingest.ReingestType = defaultReingestType
	}
	c.Reingest.Order = strings.ToLower(strings.TrimSpace(c.Reingest.Order))
	if c.Reingest.Order == "" {
		c.Reingest.Order = OrderPackageID
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
