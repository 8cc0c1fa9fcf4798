package reingest

import (
	"context"
	"errors"
	"strings"

	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
	"amreingest/internal/queue"
)

// ReconcileResult counts what one reconciliation pass observed.
type ReconcileResult struct {
	Checked   int
	Completed int
	InIngest  int
}

// Reconcile polls the three remote signals of every IN_PROGRESS job and
// marks jobs COMPLETE once ingest is done and the package is uploaded.
// Remote failures count as missing data; only store errors and context
// cancellation are returned.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	jobs, err := e.store.ByStatus(ctx, queue.StatusInProgress)
	if err != nil {
		return result, err
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		logger := e.logger.With(
			logging.String(logging.FieldPackageID, job.PackageID),
			logging.String(logging.FieldTransferID, job.TransferID),
		)

		transfer, err := e.client.TransferStatus(ctx, job.TransferID)
		transferStatus := e.signal(ctx, "transfer", transfer.Status, err)
		ingest, err := e.client.IngestStatus(ctx, job.PackageID)
		ingestStatus := e.signal(ctx, "ingest", ingest.Status, err)
		pkg, err := e.client.PackageStatus(ctx, job.PackageID)
		packageStatus := e.signal(ctx, "package", pkg.Status, err)
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch {
		case transferStatus == pipeline.StatusComplete && ingestStatus == pipeline.StatusProcessing:
			result.InIngest++
			logger.Info("package processing is now in ingest",
				logging.String(logging.FieldEventType, "job_in_ingest"),
			)
		case ingestStatus == pipeline.StatusComplete && packageStatus == pipeline.PackageUploaded:
			if err := e.store.SetComplete(ctx, job.PackageID); err != nil {
				return result, err
			}
			result.Completed++
		default:
			logger.Debug("no state change",
				logging.String("transfer_status", transferStatus),
				logging.String("ingest_status", ingestStatus),
				logging.String("package_status", packageStatus),
			)
		}
	}

	if result.Checked > 0 {
		e.logger.Info("reconciliation finished",
			logging.Int("checked", result.Checked),
			logging.Int("completed", result.Completed),
			logging.Int("in_ingest", result.InIngest),
		)
	}
	return result, nil
}

// signal normalizes one poll result. Any error yields an empty status.
func (e *Engine) signal(ctx context.Context, name, status string, err error) string {
	if err == nil {
		return strings.ToUpper(strings.TrimSpace(status))
	}
	if ctx.Err() == nil && !errors.Is(err, pipeline.ErrNoData) {
		e.logger.Warn("unexpected poll failure, treating as no data",
			logging.String("signal", name),
			logging.Error(err),
		)
	} else {
		e.logger.Debug("no data", logging.String("signal", name), logging.Error(err))
	}
	return ""
}
