package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "package_id, transfer_id, status, message, start_time, end_time, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		packageID  string
		transferID sql.NullString
		statusStr  string
		message    sql.NullString
		startRaw   sql.NullString
		endRaw     sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&packageID,
		&transferID,
		&statusStr,
		&message,
		&startRaw,
		&endRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		PackageID:  packageID,
		TransferID: transferID.String,
		Status:     Status(statusStr),
		Message:    message.String,
	}
	if startRaw.Valid {
		if start, err := parseTimeString(startRaw.String); err == nil {
			job.StartTime = &start
		}
	}
	if endRaw.Valid {
		if end, err := parseTimeString(endRaw.String); err == nil {
			job.EndTime = &end
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func (s *Store) orderClause() string {
	if s.fifo {
		return ` ORDER BY rowid`
	}
	return ` ORDER BY package_id`
}
