package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a reingest job.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusComplete   Status = "COMPLETE"
	StatusError      Status = "ERROR"
)

var allStatuses = []Status{
	StatusNew,
	StatusInProgress,
	StatusComplete,
	StatusError,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status. Matching is
// case-insensitive and accepts hyphens in place of underscores.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(value)), "-", "_"))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible from status.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// Job is the local record tracking one package's reingest.
type Job struct {
	PackageID  string
	TransferID string
	Status     Status
	Message    string
	StartTime  *time.Time
	EndTime    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProcessingTime returns the elapsed time between entering IN_PROGRESS and
// COMPLETE. The second result is false when either timestamp is missing.
func (j Job) ProcessingTime() (time.Duration, bool) {
	if j.StartTime == nil || j.EndTime == nil {
		return 0, false
	}
	return j.EndTime.Sub(*j.StartTime), true
}

// ProcessingTimeLabel renders ProcessingTime for operators.
func (j Job) ProcessingTimeLabel() string {
	elapsed, ok := j.ProcessingTime()
	if !ok {
		return "unavailable"
	}
	return fmt.Sprintf("%d seconds", int64(elapsed.Seconds()))
}

func (j Job) String() string {
	return fmt.Sprintf("package_id=%s, transfer_id=%s, status=%s, message=%s, processing_time=%s",
		j.PackageID, j.TransferID, j.Status, j.Message, j.ProcessingTimeLabel())
}

// Summary describes aggregated job counts per status.
type Summary struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	InProgress int `json:"in_progress"`
	Complete   int `json:"complete"`
	Error      int `json:"error"`
}

// Drained reports whether no job is waiting or in flight.
func (s Summary) Drained() bool {
	return s.New == 0 && s.InProgress == 0
}
