package reingest

import (
	"context"
	"errors"
	"fmt"

	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
)

// InterruptedLaunchError reports a launch cancelled after the pipeline
// accepted the reingest but before the job recorded its transfer. The remote
// transfer keeps running and the job stays NEW.
type InterruptedLaunchError struct {
	PackageID  string
	TransferID string
	Err        error
}

func (e *InterruptedLaunchError) Error() string {
	return fmt.Sprintf("reingest of %s started as transfer %s but was not recorded: %v", e.PackageID, e.TransferID, e.Err)
}

func (e *InterruptedLaunchError) Unwrap() error { return e.Err }

// launch starts a reingest of packageID and approves the resulting transfer.
// It returns the transfer id to record against the job.
func (e *Engine) launch(ctx context.Context, packageID string) (string, error) {
	logger := logging.WithContext(ctx, e.logger)

	reingest, err := e.client.StartReingest(ctx, e.opts.PipelineID, packageID, e.opts.ProcessingConfig)
	if err != nil {
		return "", fmt.Errorf("start reingest: %w", err)
	}
	transferID := reingest.ReingestUUID
	logger = logger.With(logging.String(logging.FieldTransferID, transferID))
	logger.Info("reingest accepted, waiting for transfer approval")

	rounds := max(e.opts.ApprovalRetries, 1)
	var lastCause error
	for round := 1; round <= rounds; round++ {
		status, err := e.awaitTransferStatus(ctx, transferID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", &InterruptedLaunchError{PackageID: packageID, TransferID: transferID, Err: ctxErr}
			}
			lastCause = err
			logger.Info("transfer status unavailable",
				logging.Int("round", round),
				logging.Int("rounds", rounds),
				logging.Error(err),
			)
			continue
		}

		if !status.Is(pipeline.StatusUserInput) {
			lastCause = fmt.Errorf("transfer is %s, not awaiting approval", status.Status)
			logger.Info("transfer not ready for approval",
				logging.String("status", status.Status),
				logging.Int("round", round),
				logging.Int("rounds", rounds),
			)
			continue
		}

		logger.Info("approving reingest", logging.String("directory", status.Directory))
		approval, err := e.client.ApproveTransfer(ctx, status.Directory)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", &InterruptedLaunchError{PackageID: packageID, TransferID: transferID, Err: ctxErr}
			}
			lastCause = fmt.Errorf("approve %s: %w", status.Directory, err)
			logger.Info("failed approval",
				logging.Int("round", round),
				logging.Int("rounds", rounds),
				logging.Error(err),
			)
			continue
		}

		if approval.UUID != "" {
			transferID = approval.UUID
		}
		logger.Info("approval successful")
		return transferID, nil
	}

	if lastCause == nil {
		lastCause = errors.New("no approval attempted")
	}
	return "", fmt.Errorf("transfer %s not approved after %d attempts: %w", transferID, rounds, lastCause)
}

// awaitTransferStatus polls until the pipeline returns a usable status,
// sleeping the configured latency before each poll. Soft failures are
// retried up to MaxStatusPolls times.
func (e *Engine) awaitTransferStatus(ctx context.Context, transferID string) (pipeline.UnitStatus, error) {
	polls := max(e.opts.MaxStatusPolls, 1)
	var lastErr error
	for attempt := 1; attempt <= polls; attempt++ {
		if err := e.sleep(ctx, e.opts.Latency); err != nil {
			return pipeline.UnitStatus{}, err
		}
		status, err := e.client.TransferStatus(ctx, transferID)
		if err == nil {
			return status, nil
		}
		if !errors.Is(err, pipeline.ErrNoData) {
			return pipeline.UnitStatus{}, err
		}
		lastErr = err
		e.logger.Debug("transfer status not ready",
			logging.String(logging.FieldTransferID, transferID),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}
	return pipeline.UnitStatus{}, fmt.Errorf("no transfer status after %d polls: %w", polls, lastErr)
}
