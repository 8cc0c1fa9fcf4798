package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"amreingest/internal/config"
	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
)

type clientFactory func(cfg *config.Config, logger *slog.Logger) pipeline.Client

func newHTTPPipelineClient(cfg *config.Config, logger *slog.Logger) pipeline.Client {
	return pipeline.NewHTTPClient(cfg, logger)
}

type commandContext struct {
	configFlag *string
	clients    clientFactory

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, clients clientFactory) *commandContext {
	if clients == nil {
		clients = newHTTPPipelineClient
	}
	return &commandContext{
		configFlag: configFlag,
		clients:    clients,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// cliLogger returns a quiet stderr logger for interactive commands so their
// stdout stays parseable.
func (c *commandContext) cliLogger(cfg *config.Config) *slog.Logger {
	level := "warn"
	if cfg != nil && logging.ParseLevel(cfg.Logging.Level) < slog.LevelInfo {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) pipelineClient(cfg *config.Config, logger *slog.Logger) pipeline.Client {
	return c.clients(cfg, logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
