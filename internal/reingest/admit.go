package reingest

import (
	"context"
	"errors"
	"fmt"

	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
	"amreingest/internal/queue"
)

// AdmitResult reports one admission pass.
type AdmitResult struct {
	// Pool is throttle minus the IN_PROGRESS count before launching.
	Pool     int
	Launched int
	Failed   int
	// Drained is true when no job is NEW or IN_PROGRESS after the pass.
	Drained bool
}

// Admit launches up to throttle minus IN_PROGRESS jobs from the NEW set in
// store order. Launch failures mark the job ERROR; they are not returned.
func (e *Engine) Admit(ctx context.Context) (AdmitResult, error) {
	var result AdmitResult

	inProgress, err := e.store.Count(ctx, queue.StatusInProgress)
	if err != nil {
		return result, err
	}
	pending, err := e.store.ByStatus(ctx, queue.StatusNew)
	if err != nil {
		return result, err
	}
	result.Pool = e.opts.Throttle - inProgress

	if len(pending) == 0 && inProgress == 0 {
		result.Drained = true
		return result, nil
	}
	if result.Pool < 1 {
		e.logger.Info("throttle reached, waiting for next run",
			logging.Int("in_progress", inProgress),
			logging.Int("throttle", e.opts.Throttle),
			logging.Int("queued", len(pending)),
		)
		return result, nil
	}

	count := min(result.Pool, len(pending))
	for _, job := range pending[:count] {
		jobCtx := logging.WithPackageID(ctx, job.PackageID)
		transferID, err := e.launch(jobCtx, job.PackageID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				var interrupted *InterruptedLaunchError
				if errors.As(err, &interrupted) {
					logging.WarnWithContext(logging.WithContext(jobCtx, e.logger), "run interrupted after the pipeline accepted the reingest", "launch_interrupted",
						logging.String(logging.FieldTransferID, interrupted.TransferID),
						logging.String(logging.FieldErrorHint, "check the transfer in the dashboard; the next run starts this package again"),
						logging.String(logging.FieldImpact, "remote reingest running without a local record"),
					)
					return result, fmt.Errorf("launch %s interrupted: %w", job.PackageID, err)
				}
				return result, fmt.Errorf("launch %s interrupted: %w", job.PackageID, ctxErr)
			}
			logging.ErrorWithContext(logging.WithContext(jobCtx, e.logger), "error initiating reingest", "launch_failed",
				logging.Error(err),
				logging.String("error_code", pipeline.CodeOf(err).String()),
				logging.String(logging.FieldErrorHint, launchHint(err)),
			)
			if err := e.store.SetError(ctx, job.PackageID, err.Error()); err != nil {
				return result, err
			}
			result.Failed++
			continue
		}
		// The transfer is approved remotely; record it even if the run is being cancelled.
		if err := e.store.SetInProgress(context.WithoutCancel(ctx), job.PackageID, transferID); err != nil {
			return result, err
		}
		result.Launched++
	}

	summary, err := e.store.Summary(ctx)
	if err != nil {
		return result, err
	}
	result.Drained = summary.Drained()
	e.logger.Info("admission finished",
		logging.Int("pool", result.Pool),
		logging.Int("launched", result.Launched),
		logging.Int("failed", result.Failed),
		logging.Bool("drained", result.Drained),
	)
	return result, nil
}

func launchHint(err error) string {
	if errors.Is(err, pipeline.ErrRejected) {
		return "the storage service refused the reingest; check the package and the pipeline uuid"
	}
	switch pipeline.CodeOf(err) {
	case pipeline.CodeServerConn:
		return "check that the storage service and dashboard URLs are reachable"
	case pipeline.CodeInvalidResponse:
		return "check the API credentials and that the package exists in the storage service"
	case pipeline.CodeParseJSON:
		return "the remote API returned an unexpected body; check the service versions"
	default:
		return "check the package in the storage service and the pipeline dashboard"
	}
}
