package reingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"amreingest/internal/config"
	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
	"amreingest/internal/queue"
)

// ErrConfiguration marks failures that must abort a run before any job is
// touched.
var ErrConfiguration = errors.New("configuration error")

// Options carries the engine's admission and launch settings.
type Options struct {
	PipelineID       string
	ProcessingConfig string
	Throttle         int
	ApprovalRetries  int
	Latency          time.Duration
	MaxStatusPolls   int
}

// OptionsFromConfig extracts engine options from the reingest section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PipelineID:       cfg.Reingest.Pipeline,
		ProcessingConfig: cfg.Reingest.ProcessingConfig,
		Throttle:         cfg.Reingest.Throttle,
		ApprovalRetries:  cfg.Reingest.ApprovalRetries,
		Latency:          cfg.Latency(),
		MaxStatusPolls:   cfg.Reingest.MaxStatusPolls,
	}
}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Engine reconciles and admits reingest jobs against one pipeline.
type Engine struct {
	store  *queue.Store
	client pipeline.Client
	opts   Options
	logger *slog.Logger
	sleep  Sleeper
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithSleeper overrides how the launch protocol waits between polls.
func WithSleeper(s Sleeper) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithOptions replaces the options derived from configuration.
func WithOptions(opts Options) EngineOption {
	return func(e *Engine) {
		e.opts = opts
	}
}

// NewEngine constructs an engine for the configured pipeline.
func NewEngine(cfg *config.Config, store *queue.Store, client pipeline.Client, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		client: client,
		opts:   OptionsFromConfig(cfg),
		logger: logging.NewComponentLogger(logger, "reingest"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Preflight checks that the target pipeline and processing configuration
// exist. Any failure wraps ErrConfiguration.
func (e *Engine) Preflight(ctx context.Context) error {
	pipelines, err := e.client.Pipelines(ctx)
	if err != nil {
		return fmt.Errorf("%w: list pipelines: %w", ErrConfiguration, err)
	}
	found := false
	for _, p := range pipelines {
		if p.UUID == e.opts.PipelineID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: pipeline %s is not registered with the storage service", ErrConfiguration, e.opts.PipelineID)
	}

	exists, err := e.client.ProcessingConfigExists(ctx, e.opts.ProcessingConfig)
	if err != nil {
		return fmt.Errorf("%w: look up processing configuration %q: %w", ErrConfiguration, e.opts.ProcessingConfig, err)
	}
	if !exists {
		return fmt.Errorf("%w: processing configuration %q does not exist", ErrConfiguration, e.opts.ProcessingConfig)
	}

	e.logger.Info("preflight passed",
		logging.String("pipeline", e.opts.PipelineID),
		logging.String("processing_config", e.opts.ProcessingConfig),
		logging.Int("throttle", e.opts.Throttle),
		logging.Int("approval_retries", e.opts.ApprovalRetries),
	)
	return nil
}

// BatchSource yields package identifiers to load into an empty store.
type BatchSource func(ctx context.Context) ([]string, error)

// LoadIfEmpty loads the batch from source only when the store has no jobs.
// It reports how many rows were inserted and whether the load was skipped.
func (e *Engine) LoadIfEmpty(ctx context.Context, source BatchSource) (int, bool, error) {
	has, err := e.store.HasJobs(ctx)
	if err != nil {
		return 0, false, err
	}
	if has {
		e.logger.Info("store already contains packages, ignoring load",
			logging.String(logging.FieldEventType, "load_skipped"),
		)
		return 0, true, nil
	}
	ids, err := source(ctx)
	if err != nil {
		return 0, false, err
	}
	inserted, err := e.store.LoadBatch(ctx, ids)
	if err != nil {
		return 0, false, err
	}
	return inserted, false, nil
}

// RunResult summarizes one invocation.
type RunResult struct {
	Reconcile ReconcileResult
	Admit     AdmitResult
}

// Run reconciles in-flight jobs and then admits new ones.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	var result RunResult
	rec, err := e.Reconcile(ctx)
	result.Reconcile = rec
	if err != nil {
		return result, fmt.Errorf("reconcile: %w", err)
	}
	adm, err := e.Admit(ctx)
	result.Admit = adm
	if err != nil {
		return result, fmt.Errorf("admit: %w", err)
	}
	return result, nil
}
