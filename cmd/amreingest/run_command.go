package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"amreingest/internal/config"
	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
	"amreingest/internal/preflight"
	"amreingest/internal/queue"
	"amreingest/internal/reingest"
	"amreingest/internal/report"
	"amreingest/internal/runlock"
)

type runOptions struct {
	fromList    string
	fromStorage bool
	logLevel    string
	debugLog    string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile in-flight reingests and launch queued packages",
		Long: `Run one reingest pass.

In-flight jobs are checked against the pipeline first, then NEW jobs are
launched up to the configured throttle. When no job is NEW or IN_PROGRESS
afterwards, the final report is printed. Schedule this command to run
repeatedly until the batch is drained.

--from-list and --from-storage load packages only when the job database is
empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return executeRun(cmd.Context(), cmd, ctx, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.fromList, "from-list", "", "Load package uuids from a JSON array file when the database is empty")
	cmd.Flags().BoolVar(&opts.fromStorage, "from-storage", false, "Load every compressed AIP in the Storage Service when the database is empty")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.debugLog, "debug-log", "", "Also write a JSON debug log to this path")
	cmd.MarkFlagsMutuallyExclusive("from-list", "from-storage")
	return cmd
}

func executeRun(ctx context.Context, cmd *cobra.Command, cc *commandContext, cfg *config.Config, opts runOptions) error {
	// A run that loses the lock leaves no run log and prunes nothing.
	lock, err := runlock.Acquire(cfg.LockPath())
	if errors.Is(err, runlock.ErrLocked) {
		lockedLogger(cfg).Info("amreingest is already running, exiting until next run",
			logging.String("lock", cfg.LockPath()),
		)
		return nil
	}
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	runLog := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("amreingest-%s.log", runID))

	logger, err := newRunLogger(cfg, runLog, opts)
	if err != nil {
		_ = lock.Release()
		return err
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))
	ctx = logging.WithRunID(ctx, runID)
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", logging.String("lock", lock.Path()), logging.Error(err))
		}
	}()

	if removed := logging.PruneRunLogs(logger, cfg.Paths.LogDir, "amreingest-*.log", cfg.Logging.RetentionDays, runLog); removed > 0 {
		logger.Debug("pruned old run logs", logging.Int("removed", removed))
	}

	if failed := preflight.Failed(preflight.CheckDirectories(cfg)); len(failed) > 0 {
		return fmt.Errorf("%s: %s", failed[0].Name, failed[0].Detail)
	}

	client := cc.pipelineClient(cfg, logger)
	store, err := queue.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := reingest.NewEngine(cfg, store, client, logger)
	if err := engine.Preflight(ctx); err != nil {
		logging.ErrorWithContext(logger, "preflight failed, nothing was processed", "preflight_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check reingest.pipeline and reingest.processing_config"),
		)
		return err
	}

	if source := batchSource(opts, client, logger); source != nil {
		if _, _, err := engine.LoadIfEmpty(ctx, source); err != nil {
			return fmt.Errorf("load packages: %w", err)
		}
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	if !result.Admit.Drained {
		return nil
	}

	logger.Info("reingest batch drained")
	rep, err := report.Build(ctx, store, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	renderReport(out, rep, shouldColorize(out))
	return nil
}

// lockedLogger writes to stdout only.
func lockedLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.New(logging.Options{Level: "info", Format: cfg.Logging.Format, OutputPaths: []string{"stdout"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func newRunLogger(cfg *config.Config, runLog string, opts runOptions) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg, runLog, opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if opts.debugLog == "" {
		return logger, nil
	}
	path, err := config.ExpandPath(opts.debugLog)
	if err != nil {
		return nil, err
	}
	handler, err := logging.NewDebugFileHandler(path)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	return logging.TeeLogger(logger, handler), nil
}

func batchSource(opts runOptions, client pipeline.Client, logger *slog.Logger) reingest.BatchSource {
	switch {
	case opts.fromList != "":
		return func(context.Context) ([]string, error) {
			logger.Info("reingesting from user list of AIPs", logging.String("path", opts.fromList))
			return readPackageList(opts.fromList)
		}
	case opts.fromStorage:
		return func(ctx context.Context) ([]string, error) {
			logger.Info("reingesting from Storage Service list of AIPs")
			packages, err := client.CompressedPackages(ctx)
			if err != nil {
				return nil, err
			}
			return sortedKeys(packages), nil
		}
	default:
		return nil
	}
}

func readPackageList(path string) ([]string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read package list: %w", err)
	}
	return queue.ParseBatch(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
