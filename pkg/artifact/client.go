// Package artifact implements the HTTP client of the artifact service that
// stores baselines and published screenshots.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/transfer"
)

const (
	// DefaultTimeout bounds every request made by the client
	DefaultTimeout = 2 * time.Minute

	// DefaultUserAgent is sent with every request
	DefaultUserAgent = "vrtnorris"

	apiKeyHeader      = "X-API-Key"
	uploadTokenHeader = "X-Upload-Token"
	maxErrorBody      = 1024
)

// Service endpoints
const (
	PathPrepareDownload = "/api/deployments/prepare-batch-download"
	PathPrepareUpload   = "/api/deployments/prepare-batch-upload"
	PathFinalizeUpload  = "/api/deployments/finalize-upload"
	PathDownloadFile    = "/api/deployments/download-file"
	PathUploadFile      = "/api/deployments/upload-file"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Retryable reports whether the request may succeed when repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the artifact service over HTTP
type Client struct {
	baseURL   *url.URL
	apiKey    string
	http      *http.Client
	userAgent string
}

var _ transfer.Client = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api url is required")
	}
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:   u,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PrepareDownload lists the files of a baseline alias
func (c *Client) PrepareDownload(ctx context.Context, req transfer.DownloadRequest) (*transfer.DownloadPlan, error) {
	var plan transfer.DownloadPlan
	if err := c.postJSON(ctx, PathPrepareDownload, req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// PrepareUpload announces a batch of files and returns where to send them
func (c *Client) PrepareUpload(ctx context.Context, req transfer.UploadRequest) (*transfer.UploadPlan, error) {
	var plan transfer.UploadPlan
	if err := c.postJSON(ctx, PathPrepareUpload, req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Finalize completes an upload and returns the resulting deployment
func (c *Client) Finalize(ctx context.Context, uploadToken string) (*transfer.Deployment, error) {
	body := struct {
		UploadToken string `json:"uploadToken"`
	}{UploadToken: uploadToken}

	var deployment transfer.Deployment
	if err := c.postJSON(ctx, PathFinalizeUpload, body, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// GetURL downloads from a presigned URL. The API key is not sent.
func (c *Client) GetURL(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, transfer.Permanent(err)
	}
	return c.stream(req, "presigned download")
}

// PutURL uploads to a presigned URL. The API key is not sent.
func (c *Client) PutURL(ctx context.Context, rawURL string, body io.Reader, size int64, contentType string) error {
	req, err := newUploadRequest(ctx, rawURL, body, size, contentType)
	if err != nil {
		return err
	}
	return c.discard(req, "presigned upload")
}

// RelayDownload downloads a file through the service
func (c *Client) RelayDownload(ctx context.Context, ref transfer.RelayRef) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("repository", ref.Repository)
	q.Set("alias", ref.Alias)
	q.Set("path", ref.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(PathDownloadFile, q), nil)
	if err != nil {
		return nil, transfer.Permanent(err)
	}
	c.authorize(req)
	return c.stream(req, PathDownloadFile)
}

// RelayUpload uploads a file through the service under an upload token
func (c *Client) RelayUpload(ctx context.Context, uploadToken, path string, body io.Reader, size int64, contentType string) error {
	q := url.Values{}
	q.Set("path", path)

	req, err := newUploadRequest(ctx, c.endpoint(PathUploadFile, q), body, size, contentType)
	if err != nil {
		return err
	}
	c.authorize(req)
	req.Header.Set(uploadTokenHeader, uploadToken)
	return c.discard(req, PathUploadFile)
}

func (c *Client) endpoint(p string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *Client) postJSON(ctx context.Context, p string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(p, nil), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", p, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, p); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", p, err)
	}
	return nil
}

// stream returns the response body of a successful request
func (c *Client) stream(req *http.Request, label string) (io.ReadCloser, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", label, err)
	}
	if err := checkStatus(resp, label); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// discard performs a request and drops the response body
func (c *Client) discard(req *http.Request, label string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", label, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, label); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func newUploadRequest(ctx context.Context, rawURL string, body io.Reader, size int64, contentType string) (*http.Request, error) {
	if size == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, body)
	if err != nil {
		return nil, transfer.Permanent(err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// checkStatus converts non-2xx responses into a StatusError. Errors that
// cannot succeed on retry are marked permanent.
func checkStatus(resp *http.Response, label string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := &StatusError{
		Method:     resp.Request.Method,
		Endpoint:   label,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if err.Retryable() {
		return err
	}
	return transfer.Permanent(err)
}
