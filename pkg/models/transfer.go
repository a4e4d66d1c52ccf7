package models

import "fmt"

// BaselineManifest describes where baseline files were materialized and
// under which revision
type BaselineManifest struct {
	// CommitSHA is the revision the baseline alias resolved to
	CommitSHA string `json:"commitSha"`
	// IsPublic reports whether the baseline files are publicly readable
	IsPublic bool `json:"isPublic"`
	// OutputDir is the local directory holding the downloaded files
	OutputDir string `json:"outputDir"`
	// FileCount is the number of files successfully materialized
	FileCount int `json:"fileCount"`
	// Files are the paths of the materialized files, relative to OutputDir
	Files []string `json:"files"`
}

// TransferTask is one unit of work for the transfer pool. It is never
// modified once built.
type TransferTask struct {
	// FilePath is the local absolute path (source for uploads, target for downloads)
	FilePath string
	// RelativePath is the remote path of the file
	RelativePath string
	// Size in bytes, 0 when unknown
	Size int64
	// ContentType is the MIME type sent with uploads
	ContentType string
	// Destination is the presigned URL or relay target, depending on the strategy
	Destination string
}

// String returns a short description used in logs
func (t TransferTask) String() string {
	return fmt.Sprintf("%s (%d bytes)", t.RelativePath, t.Size)
}

// TransferFailure records a task that exhausted its retries
type TransferFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// TransferOutcome accumulates the result of a batch of transfer tasks
type TransferOutcome struct {
	Success []string          `json:"success"`
	Failed  []TransferFailure `json:"failed"`
}

// Total returns the number of tasks that reached a terminal state
func (o *TransferOutcome) Total() int {
	return len(o.Success) + len(o.Failed)
}

// ShouldAbort reports whether failures outnumber successes
func (o *TransferOutcome) ShouldAbort() bool {
	return len(o.Failed) > len(o.Success)
}
