package transfer

import (
	"context"
	"io"
)

// DownloadRequest asks the artifact service for a baseline file listing
type DownloadRequest struct {
	Repository string `json:"repository"`
	// Path restricts the listing to a sub-directory of the deployment
	Path  string `json:"path,omitempty"`
	Alias string `json:"alias"`
}

// RemoteFile is a file offered for download
type RemoteFile struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// DownloadPlan is the service answer to a DownloadRequest
type DownloadPlan struct {
	CommitSHA              string       `json:"commitSha"`
	IsPublic               bool         `json:"isPublic"`
	PresignedURLsSupported bool         `json:"presignedUrlsSupported"`
	Files                  []RemoteFile `json:"files"`
}

// UploadFile describes a local file announced to the service
type UploadFile struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// UploadRequest announces a batch of files to upload
type UploadRequest struct {
	Repository  string       `json:"repository"`
	CommitSHA   string       `json:"commitSha"`
	Branch      string       `json:"branch"`
	Alias       string       `json:"alias,omitempty"`
	BasePath    string       `json:"basePath,omitempty"`
	Description string       `json:"description,omitempty"`
	Files       []UploadFile `json:"files"`
}

// UploadTarget pairs a remote path with the URL to send its bytes to
type UploadTarget struct {
	Path         string `json:"path"`
	PresignedURL string `json:"presignedUrl"`
}

// UploadPlan is the service answer to an UploadRequest
type UploadPlan struct {
	PresignedURLsSupported bool           `json:"presignedUrlsSupported"`
	UploadToken            string         `json:"uploadToken,omitempty"`
	ExpiresAt              string         `json:"expiresAt,omitempty"`
	Files                  []UploadTarget `json:"files,omitempty"`
}

// DeploymentURLs are the public addresses of a finalized upload
type DeploymentURLs struct {
	SHA   string `json:"sha,omitempty"`
	Alias string `json:"alias,omitempty"`
}

// Deployment is the result of finalizing an upload
type Deployment struct {
	DeploymentID string         `json:"deploymentId"`
	URLs         DeploymentURLs `json:"urls"`
}

// URL returns the commit-pinned URL, falling back to the alias URL
func (d *Deployment) URL() string {
	if d == nil {
		return ""
	}
	if d.URLs.SHA != "" {
		return d.URLs.SHA
	}
	return d.URLs.Alias
}

// RelayRef identifies a file served through the service relay
type RelayRef struct {
	Repository string
	Alias      string
	Path       string
}

// Client is the artifact service used by the orchestrator. Planning calls
// are made once per batch; the transport calls once per attempt.
type Client interface {
	PrepareDownload(ctx context.Context, req DownloadRequest) (*DownloadPlan, error)
	PrepareUpload(ctx context.Context, req UploadRequest) (*UploadPlan, error)
	Finalize(ctx context.Context, uploadToken string) (*Deployment, error)

	// GetURL streams a presigned download URL
	GetURL(ctx context.Context, url string) (io.ReadCloser, error)
	// PutURL sends size bytes to a presigned upload URL
	PutURL(ctx context.Context, url string, body io.Reader, size int64, contentType string) error

	// RelayDownload streams a file through the service
	RelayDownload(ctx context.Context, ref RelayRef) (io.ReadCloser, error)
	// RelayUpload sends a file through the service under an upload token
	RelayUpload(ctx context.Context, uploadToken, path string, body io.Reader, size int64, contentType string) error
}
