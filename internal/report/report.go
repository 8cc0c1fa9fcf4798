// Package report builds read-only views of the job store for operators.
package report

import (
	"context"
	"time"

	"amreingest/internal/queue"
)

// Row is one job as presented in a report.
type Row struct {
	PackageID      string     `json:"package_id"`
	TransferID     string     `json:"transfer_id,omitempty"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	ProcessingTime string     `json:"processing_time"`
	// Seconds is the processing time in whole seconds, or nil when unavailable.
	Seconds *int64 `json:"processing_seconds,omitempty"`
}

// Report is a snapshot of the job store.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	All         bool           `json:"all"`
	Statuses    []queue.Status `json:"statuses,omitempty"`
	Summary     queue.Summary  `json:"summary"`
	Rows        []Row          `json:"jobs"`
}

// Build lists COMPLETE jobs followed by ERROR jobs, or every job when all is
// set. It never modifies the store.
func Build(ctx context.Context, store *queue.Store, all bool) (Report, error) {
	if all {
		rep, err := snapshot(ctx, store, func() ([]*queue.Job, error) { return store.List(ctx) })
		rep.All = true
		return rep, err
	}
	return snapshot(ctx, store, func() ([]*queue.Job, error) {
		var jobs []*queue.Job
		for _, status := range []queue.Status{queue.StatusComplete, queue.StatusError} {
			batch, err := store.ByStatus(ctx, status)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, batch...)
		}
		return jobs, nil
	})
}

// BuildFor lists only jobs in the given statuses, in store order.
func BuildFor(ctx context.Context, store *queue.Store, statuses ...queue.Status) (Report, error) {
	if len(statuses) == 0 {
		return Build(ctx, store, false)
	}
	rep, err := snapshot(ctx, store, func() ([]*queue.Job, error) { return store.List(ctx, statuses...) })
	rep.Statuses = statuses
	return rep, err
}

func snapshot(ctx context.Context, store *queue.Store, load func() ([]*queue.Job, error)) (Report, error) {
	summary, err := store.Summary(ctx)
	if err != nil {
		return Report{}, err
	}
	jobs, err := load()
	if err != nil {
		return Report{}, err
	}
	rows := make([]Row, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, NewRow(job))
	}
	return Report{
		GeneratedAt: time.Now().UTC(),
		Summary:     summary,
		Rows:        rows,
	}, nil
}

// NewRow converts a job into a report row.
func NewRow(job *queue.Job) Row {
	row := Row{
		PackageID:      job.PackageID,
		TransferID:     job.TransferID,
		Status:         string(job.Status),
		Message:        job.Message,
		StartTime:      job.StartTime,
		EndTime:        job.EndTime,
		ProcessingTime: job.ProcessingTimeLabel(),
	}
	if elapsed, ok := job.ProcessingTime(); ok {
		seconds := int64(elapsed.Seconds())
		row.Seconds = &seconds
	}
	return row
}
