package pipeline

import "strings"

// Unit status values reported by the dashboard API.
const (
	StatusUserInput  = "USER_INPUT"
	StatusProcessing = "PROCESSING"
	StatusComplete   = "COMPLETE"
	StatusFailed     = "FAILED"
	StatusRejected   = "REJECTED"
)

// PackageUploaded is the Storage Service status of a package stored at rest.
const PackageUploaded = "UPLOADED"

// Reingest is the Storage Service response to a reingest request.
type Reingest struct {
	ReingestUUID string `json:"reingest_uuid"`
	Message      string `json:"message"`
}

// UnitStatus describes where a transfer or ingest unit sits in the workflow.
type UnitStatus struct {
	Status       string `json:"status"`
	Name         string `json:"name"`
	UUID         string `json:"uuid"`
	Directory    string `json:"directory"`
	Microservice string `json:"microservice"`
	Type         string `json:"type"`
	Message      string `json:"message"`
}

// Is reports whether the unit is in status, ignoring case.
func (u UnitStatus) Is(status string) bool {
	return strings.EqualFold(u.Status, status)
}

// PackageStatus holds the Storage Service details of one package.
type PackageStatus struct {
	UUID            string `json:"uuid"`
	Status          string `json:"status"`
	PackageType     string `json:"package_type"`
	CurrentPath     string `json:"current_path"`
	CurrentFullPath string `json:"current_full_path"`
	Size            int64  `json:"size"`
}

// Uploaded reports whether the package is stored at rest.
func (p PackageStatus) Uploaded() bool {
	return strings.EqualFold(p.Status, PackageUploaded)
}

// Approval is the dashboard response to approving a transfer.
type Approval struct {
	UUID    string `json:"uuid"`
	Message string `json:"message"`
}

// Pipeline is a pipeline registered with the Storage Service.
type Pipeline struct {
	UUID        string `json:"uuid"`
	Description string `json:"description"`
	RemoteName  string `json:"remote_name"`
}

// Package is an AIP in the Storage Service inventory.
type Package = PackageStatus

var compressedSuffixes = []string{".7z", ".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar"}

// Compressed reports whether the package is stored as a single archive file.
func (p PackageStatus) Compressed() bool {
	path := p.CurrentFullPath
	if path == "" {
		path = p.CurrentPath
	}
	path = strings.ToLower(path)
	for _, suffix := range compressedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
