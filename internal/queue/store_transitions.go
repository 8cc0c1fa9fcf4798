package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"amreingest/internal/logging"
)

// SetInProgress moves a NEW job to IN_PROGRESS, recording the transfer id
// returned by the pipeline and the start time.
func (s *Store) SetInProgress(ctx context.Context, id, transferID string) error {
	if strings.TrimSpace(transferID) == "" {
		return fmt.Errorf("set %s in progress: transfer id is empty", id)
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE reingest_jobs
         SET status = ?, transfer_id = ?, message = NULL, start_time = ?, updated_at = ?
         WHERE package_id = ? AND status = ?`,
		StatusInProgress, transferID, now, now,
		id, StatusNew,
	)
	if err != nil {
		return fmt.Errorf("set %s in progress: %w", id, err)
	}
	if err := s.checkTransition(ctx, res, id, StatusInProgress); err != nil {
		return err
	}
	s.logger.Info("reingest started",
		logging.String(logging.FieldPackageID, id),
		logging.String(logging.FieldTransferID, transferID),
		logging.String(logging.FieldEventType, "job_in_progress"),
	)
	return nil
}

// SetComplete moves an IN_PROGRESS job to COMPLETE and records the end time.
func (s *Store) SetComplete(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE reingest_jobs
         SET status = ?, message = NULL, end_time = ?, updated_at = ?
         WHERE package_id = ? AND status = ?`,
		StatusComplete, now, now,
		id, StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("set %s complete: %w", id, err)
	}
	if err := s.checkTransition(ctx, res, id, StatusComplete); err != nil {
		return err
	}

	attrs := []any{
		logging.String(logging.FieldPackageID, id),
		logging.String(logging.FieldEventType, "job_complete"),
	}
	if job, getErr := s.Get(ctx, id); getErr == nil && job != nil {
		attrs = append(attrs, logging.String("processing_time", job.ProcessingTimeLabel()))
	}
	s.logger.Info("reingest complete", attrs...)
	return nil
}

// SetError moves a NEW or IN_PROGRESS job to ERROR with a diagnostic
// message. ERROR is terminal.
func (s *Store) SetError(ctx context.Context, id, message string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE reingest_jobs
         SET status = ?, message = ?, updated_at = ?
         WHERE package_id = ? AND status IN (?, ?)`,
		StatusError, nullableString(message), now,
		id, StatusNew, StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("set %s error: %w", id, err)
	}
	if err := s.checkTransition(ctx, res, id, StatusError); err != nil {
		return err
	}
	logging.WarnWithContext(s.logger, "reingest failed", "job_error",
		logging.String(logging.FieldPackageID, id),
		logging.String("reason", message),
		logging.String(logging.FieldImpact, "package will not be retried automatically"),
		logging.String(logging.FieldErrorHint, "inspect the pipeline dashboard, then requeue the package in a fresh database"),
	)
	return nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// checkTransition turns a zero-row update into ErrUnknownPackage or
// ErrInvalidTransition.
func (s *Store) checkTransition(ctx context.Context, res rowsAffecter, id string, target Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set %s %s: %w", id, target, err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("set %s %s: %w", id, target, ErrUnknownPackage)
	}
	return fmt.Errorf("set %s %s from %s: %w", id, target, job.Status, ErrInvalidTransition)
}
