package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"amreingest/internal/logging"
)

// InsertNew records id as a NEW job. An id that is already present is left
// untouched and reported as false with no error.
func (s *Store) InsertNew(ctx context.Context, id string) (bool, error) {
	if err := validatePackageID(id); err != nil {
		return false, err
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO reingest_jobs (package_id, status, created_at, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(package_id) DO NOTHING`,
		id, StatusNew, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", id, err)
	}
	if affected == 0 {
		s.logger.Info("package already queued, leaving existing row",
			logging.String(logging.FieldPackageID, id),
			logging.String(logging.FieldEventType, "job_duplicate"),
		)
		return false, nil
	}
	return true, nil
}

// LoadBatch inserts ids as NEW jobs in a single transaction and returns how
// many rows were added. Ids already present are skipped. A blank id rejects
// the whole batch with ErrMalformedBatch before anything is written.
func (s *Store) LoadBatch(ctx context.Context, ids []string) (int, error) {
	ctx = ensureContext(ctx)
	for _, id := range ids {
		if err := validatePackageID(id); err != nil {
			return 0, err
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var inserted int
	var skipped []string
	err := retryOnBusy(ctx, func() error {
		inserted = 0
		skipped = skipped[:0]
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO reingest_jobs (package_id, status, created_at, updated_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT(package_id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := formatTime(time.Now())
		for _, id := range ids {
			res, err := stmt.ExecContext(ctx, id, StatusNew, now, now)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				skipped = append(skipped, id)
				continue
			}
			inserted++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("load batch: %w", err)
	}

	for _, id := range skipped {
		s.logger.Info("package already queued, leaving existing row",
			logging.String(logging.FieldPackageID, id),
			logging.String(logging.FieldEventType, "job_duplicate"),
		)
	}
	s.logger.Info("batch loaded",
		logging.Int("requested", len(ids)),
		logging.Int("inserted", inserted),
		logging.Int("skipped", len(skipped)),
		logging.String(logging.FieldEventType, "batch_loaded"),
	)
	return inserted, nil
}

// Get fetches a job by package id. It returns nil with no error when the
// package is not present.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM reingest_jobs WHERE package_id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ByStatus returns every job in status, in admission order.
func (s *Store) ByStatus(ctx context.Context, status Status) ([]*Job, error) {
	return s.List(ctx, status)
}

// List returns jobs whose status matches any of statuses, or every job when
// none are given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM reingest_jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += s.orderClause()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Count returns the number of jobs in status.
func (s *Store) Count(ctx context.Context, status Status) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM reingest_jobs WHERE status = ?`, status,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s jobs: %w", status, err)
	}
	return count, nil
}

// Stats returns job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM reingest_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("job stats: %w", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}

// Summary aggregates Stats into a Summary.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		New:        stats[StatusNew],
		InProgress: stats[StatusInProgress],
		Complete:   stats[StatusComplete],
		Error:      stats[StatusError],
	}
	summary.Total = summary.New + summary.InProgress + summary.Complete + summary.Error
	return summary, nil
}

// HasJobs reports whether any job row exists.
func (s *Store) HasJobs(ctx context.Context) (bool, error) {
	ctx = ensureContext(ctx)
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reingest_jobs)`,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check for jobs: %w", err)
	}
	return exists == 1, nil
}
