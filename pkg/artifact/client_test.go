package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sdejongh/vrtnorris/pkg/transfer"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		key     string
		wantErr string
	}{
		{name: "valid", url: "https://artifacts.example.com/", key: "k"},
		{name: "missing url", url: "", key: "k", wantErr: "api url is required"},
		{name: "missing key", url: "https://a.example", key: "", wantErr: "api key is required"},
		{name: "bad scheme", url: "ftp://a.example", key: "k", wantErr: "scheme must be http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, tt.key)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := client.endpoint(PathPrepareUpload, nil); got != "https://artifacts.example.com"+PathPrepareUpload {
				t.Errorf("endpoint = %s", got)
			}
		})
	}
}

func TestPrepareDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathPrepareDownload {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}

		var req transfer.DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Repository != "acme/web" || req.Alias != "main" || req.Path != "shots" {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"commitSha": "abc123",
			"isPublic": true,
			"presignedUrlsSupported": true,
			"files": [{"path": "home.png", "size": 42, "downloadUrl": "https://s3/home.png"}]
		}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret")
	if err != nil {
		t.Fatal(err)
	}

	plan, err := client.PrepareDownload(context.Background(), transfer.DownloadRequest{
		Repository: "acme/web",
		Alias:      "main",
		Path:       "shots",
	})
	if err != nil {
		t.Fatalf("PrepareDownload() error = %v", err)
	}
	if plan.CommitSHA != "abc123" || !plan.IsPublic || !plan.PresignedURLsSupported {
		t.Errorf("plan = %+v", plan)
	}
	if len(plan.Files) != 1 || plan.Files[0].Size != 42 || plan.Files[0].DownloadURL != "https://s3/home.png" {
		t.Errorf("files = %+v", plan.Files)
	}
}

func TestPrepareUploadAndFinalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathPrepareUpload:
			var req transfer.UploadRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(req.Files) != 1 || req.Files[0].ContentType != "image/png" {
				t.Errorf("files = %+v", req.Files)
			}
			_, _ = io.WriteString(w, `{"presignedUrlsSupported": true, "uploadToken": "tok",
				"expiresAt": "2026-01-01T00:00:00Z",
				"files": [{"path": "a.png", "presignedUrl": "https://s3/a.png"}]}`)
		case PathFinalizeUpload:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["uploadToken"] != "tok" {
				t.Errorf("finalize body = %v", body)
			}
			_, _ = io.WriteString(w, `{"deploymentId": "dep-1", "urls": {"alias": "https://alias", "sha": "https://sha"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "secret")
	ctx := context.Background()

	plan, err := client.PrepareUpload(ctx, transfer.UploadRequest{
		Repository: "acme/web",
		Files:      []transfer.UploadFile{{Path: "a.png", Size: 3, ContentType: "image/png"}},
	})
	if err != nil {
		t.Fatalf("PrepareUpload() error = %v", err)
	}
	if plan.UploadToken != "tok" || plan.Files[0].PresignedURL != "https://s3/a.png" {
		t.Errorf("plan = %+v", plan)
	}

	deployment, err := client.Finalize(ctx, plan.UploadToken)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if deployment.DeploymentID != "dep-1" || deployment.URL() != "https://sha" {
		t.Errorf("deployment = %+v", deployment)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status        int
		wantPermanent bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client, _ := NewClient(server.URL, "secret")
			_, err := client.PrepareDownload(context.Background(), transfer.DownloadRequest{})

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error = %v, want *StatusError", err)
			}
			if statusErr.StatusCode != tt.status || statusErr.Body != "nope" {
				t.Errorf("StatusError = %+v", statusErr)
			}
			if transfer.IsPermanent(err) != tt.wantPermanent {
				t.Errorf("IsPermanent() = %v, want %v", transfer.IsPermanent(err), tt.wantPermanent)
			}
		})
	}
}

func TestPresignedTransport(t *testing.T) {
	var gotBody, gotType string
	var gotLength int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "" {
			t.Error("API key must not be sent to presigned URLs")
		}
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, "png-bytes")
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			gotBody = string(data)
			gotType = r.Header.Get("Content-Type")
			gotLength = r.ContentLength
		}
	}))
	defer server.Close()

	client, _ := NewClient("https://api.example", "secret")
	ctx := context.Background()

	body, err := client.GetURL(ctx, server.URL+"/bucket/home.png?sig=1")
	if err != nil {
		t.Fatalf("GetURL() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "png-bytes" {
		t.Errorf("GetURL() content = %q", data)
	}

	if err := client.PutURL(ctx, server.URL+"/bucket/a.png", strings.NewReader("abc"), 3, "image/png"); err != nil {
		t.Fatalf("PutURL() error = %v", err)
	}
	if gotBody != "abc" || gotType != "image/png" || gotLength != 3 {
		t.Errorf("PUT body=%q type=%q length=%d", gotBody, gotType, gotLength)
	}
}

func TestRelayTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}
		q := r.URL.Query()
		switch r.URL.Path {
		case PathDownloadFile:
			if q.Get("repository") != "acme/web" || q.Get("alias") != "main" || q.Get("path") != "dir/home page.png" {
				t.Errorf("query = %v", q)
			}
			_, _ = io.WriteString(w, "relayed")
		case PathUploadFile:
			if r.Header.Get("X-Upload-Token") != "tok" || q.Get("path") != "a.png" {
				t.Errorf("upload headers/query = %v %v", r.Header, q)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "secret")
	ctx := context.Background()

	body, err := client.RelayDownload(ctx, transfer.RelayRef{Repository: "acme/web", Alias: "main", Path: "dir/home page.png"})
	if err != nil {
		t.Fatalf("RelayDownload() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "relayed" {
		t.Errorf("content = %q", data)
	}

	if err := client.RelayUpload(ctx, "tok", "a.png", strings.NewReader("x"), 1, "image/png"); err != nil {
		t.Errorf("RelayUpload() error = %v", err)
	}
}
