package main

import (
	"fmt"
	"io"
	"strings"

	"amreingest/internal/queue"
	"amreingest/internal/report"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
)

func statusColor(status string) string {
	switch queue.Status(status) {
	case queue.StatusComplete:
		return ansiGreen
	case queue.StatusError:
		return ansiRed
	case queue.StatusInProgress:
		return ansiYellow
	case queue.StatusNew:
		return ansiBlue
	default:
		return ""
	}
}

func colorizeStatus(status string, colorize bool) string {
	color := statusColor(status)
	if !colorize || color == "" {
		return status
	}
	return color + status + ansiReset
}

func renderReport(out io.Writer, rep report.Report, colorize bool) {
	if len(rep.Rows) == 0 {
		switch {
		case rep.All:
			fmt.Fprintln(out, "No jobs in the database")
		case len(rep.Statuses) > 0:
			names := make([]string, len(rep.Statuses))
			for i, s := range rep.Statuses {
				names[i] = string(s)
			}
			fmt.Fprintf(out, "No jobs with status %s\n", strings.Join(names, " or "))
		default:
			fmt.Fprintln(out, "No completed or failed jobs yet")
		}
	} else {
		view := newTableView("Package", "Status", "Transfer", "Processing Time", "Message").numeric(3)
		for _, row := range rep.Rows {
			view.row(
				row.PackageID,
				colorizeStatus(row.Status, colorize),
				row.TransferID,
				row.ProcessingTime,
				truncate(row.Message, 60),
			)
		}
		view.writeTo(out)
	}
	fmt.Fprintln(out, summaryLine(rep.Summary))
}

func summaryLine(s queue.Summary) string {
	return fmt.Sprintf("Total %d | New %d | In progress %d | Complete %d | Error %d",
		s.Total, s.New, s.InProgress, s.Complete, s.Error)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
