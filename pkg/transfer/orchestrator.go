package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/ratelimit"
	"github.com/sdejongh/vrtnorris/pkg/storage"
)

// Transfer operation names
const (
	OpDownload = "download"
	OpUpload   = "upload"
)

// maxListedFailures is the number of failures listed individually in warnings
const maxListedFailures = 10

// BaselineDirPrefix prefixes the temporary baseline directories
const BaselineDirPrefix = "vrt-baseline-"

// Options configures an Orchestrator
type Options struct {
	Pool PoolConfig
	// Limiter throttles every transfer stream; nil means unlimited
	Limiter *ratelimit.Limiter
	// Exclude lists glob patterns skipped when enumerating upload directories
	Exclude []string
	// Progress observes every batch; nil disables reporting
	Progress Progress
	// TempDir is the parent of baseline directories, os.TempDir when empty
	TempDir string
}

// Orchestrator plans batches with the artifact service and runs them
// through the pool
type Orchestrator struct {
	client Client
	opts   Options
	logger logging.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(client Client, opts Options, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Orchestrator{client: client, opts: opts, logger: logger}
}

// DownloadBaseline materializes the baseline identified by req into a fresh
// temporary directory. The caller removes manifest.OutputDir when done. An
// empty baseline is not an error.
func (o *Orchestrator) DownloadBaseline(ctx context.Context, req DownloadRequest) (*models.BaselineManifest, error) {
	req.Path = CleanRemotePath(req.Path)

	o.logger.Info(ctx, "Preparing baseline download", logging.Fields{
		"repository": req.Repository,
		"alias":      req.Alias,
		"path":       req.Path,
	})

	plan, err := o.client.PrepareDownload(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare baseline download: %w", err)
	}

	dir, err := os.MkdirTemp(o.opts.TempDir, BaselineDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create baseline directory: %w", err)
	}

	manifest := &models.BaselineManifest{
		CommitSHA: plan.CommitSHA,
		IsPublic:  plan.IsPublic,
		OutputDir: dir,
		Files:     []string{},
	}

	if len(plan.Files) == 0 {
		o.logger.Warn(ctx, "No baseline files found, every screenshot will be reported as new", logging.Fields{
			"alias": req.Alias,
		})
		return manifest, nil
	}

	local, err := storage.NewLocal(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	strategy := o.downloadStrategy(plan, req)
	o.logger.Info(ctx, "Downloading baseline", logging.Fields{
		"files":     len(plan.Files),
		"strategy":  strategy.Name(),
		"commit":    plan.CommitSHA,
		"is_public": plan.IsPublic,
	})

	tasks := make([]models.TransferTask, 0, len(plan.Files))
	for _, f := range plan.Files {
		tasks = append(tasks, models.TransferTask{
			FilePath:     filepath.Join(dir, filepath.FromSlash(f.Path)),
			RelativePath: f.Path,
			Size:         f.Size,
			ContentType:  storage.ContentType(f.Path),
			Destination:  f.DownloadURL,
		})
	}

	executor := &downloadExecutor{
		strategy: strategy,
		local:    local,
		limiter:  o.opts.Limiter,
		counter:  o.byteCounter(),
	}
	outcome := o.run(ctx, OpDownload, executor, tasks)

	if err := o.settle(ctx, OpDownload, outcome); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	manifest.Files = outcome.Success
	manifest.FileCount = len(outcome.Success)
	return manifest, nil
}

func (o *Orchestrator) downloadStrategy(plan *DownloadPlan, req DownloadRequest) Strategy {
	if plan.PresignedURLsSupported {
		return NewPresignedStrategy(o.client)
	}
	return NewRelayStrategy(o.client, req.Repository, req.Alias, "")
}

// UploadDirectory uploads every content file of dir under req.BasePath and
// finalizes the deployment. req.Files is filled from the directory listing.
// ErrTransferSkipped is returned when the service offers no usable strategy.
func (o *Orchestrator) UploadDirectory(ctx context.Context, dir string, req UploadRequest) (*Deployment, error) {
	absDir, err := storage.ValidateDirectory(dir)
	if err != nil {
		return nil, err
	}

	local, err := storage.NewLocal(absDir)
	if err != nil {
		return nil, err
	}
	local.SetExcludePatterns(o.opts.Exclude)

	files, err := local.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload in %s", dir)
	}

	req.BasePath = CleanRemotePath(req.BasePath)
	req.Files = make([]UploadFile, 0, len(files))
	for _, f := range files {
		req.Files = append(req.Files, UploadFile{
			Path:        RemotePath(req.BasePath, f.RelativePath),
			Size:        f.Size,
			ContentType: f.ContentType,
		})
	}

	o.logger.Info(ctx, "Preparing upload", logging.Fields{
		"dir":   dir,
		"alias": req.Alias,
		"files": len(files),
	})

	plan, err := o.client.PrepareUpload(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload: %w", err)
	}

	var (
		strategy Strategy
		urls     map[string]string
	)
	switch {
	case plan.PresignedURLsSupported:
		if plan.UploadToken == "" || len(plan.Files) == 0 {
			return nil, errors.New("invalid upload plan: missing upload token or file targets")
		}
		urls = make(map[string]string, len(plan.Files))
		for _, target := range plan.Files {
			urls[target.Path] = target.PresignedURL
		}
		strategy = NewPresignedStrategy(o.client)
	case plan.UploadToken != "":
		strategy = NewRelayStrategy(o.client, req.Repository, req.Alias, plan.UploadToken)
	default:
		o.logger.Warn(ctx, "Upload skipped, the service offered neither presigned URLs nor an upload token", logging.Fields{
			"dir": dir,
		})
		return nil, ErrTransferSkipped
	}

	tasks := make([]models.TransferTask, 0, len(files))
	for i, f := range files {
		task := models.TransferTask{
			FilePath:     f.Path,
			RelativePath: req.Files[i].Path,
			Size:         f.Size,
			ContentType:  f.ContentType,
		}
		if urls != nil {
			url, ok := urls[task.RelativePath]
			if !ok || url == "" {
				return nil, fmt.Errorf("no presigned URL returned for %s", task.RelativePath)
			}
			task.Destination = url
		}
		tasks = append(tasks, task)
	}

	executor := &uploadExecutor{
		strategy: strategy,
		local:    local,
		limiter:  o.opts.Limiter,
		counter:  o.byteCounter(),
	}
	outcome := o.run(ctx, OpUpload, executor, tasks)

	if err := o.settle(ctx, OpUpload, outcome); err != nil {
		return nil, err
	}

	deployment, err := o.client.Finalize(ctx, plan.UploadToken)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	o.logger.Info(ctx, "Upload finalized", logging.Fields{
		"deployment": deployment.DeploymentID,
		"url":        deployment.URL(),
		"uploaded":   len(outcome.Success),
	})
	return deployment, nil
}

// run executes one batch through a fresh pool
func (o *Orchestrator) run(ctx context.Context, op string, executor Executor, tasks []models.TransferTask) *models.TransferOutcome {
	pool := NewPool(o.opts.Pool, executor, o.logger.WithFields(logging.Fields{"op": op}))
	if o.opts.Progress != nil {
		pool.SetProgress(o.opts.Progress)
	}
	return pool.Run(ctx, op, tasks)
}

// settle applies the abort rule to a finished batch and reports failures
func (o *Orchestrator) settle(ctx context.Context, op string, outcome *models.TransferOutcome) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s interrupted: %w", op, err)
	}

	if len(outcome.Failed) == 0 {
		return nil
	}

	o.logger.Warn(ctx, fmt.Sprintf("%d of %d %ss failed", len(outcome.Failed), outcome.Total(), op), nil)
	for i, f := range outcome.Failed {
		if i == maxListedFailures {
			o.logger.Warn(ctx, fmt.Sprintf("... and %d more", len(outcome.Failed)-maxListedFailures), nil)
			break
		}
		o.logger.Warn(ctx, fmt.Sprintf("  %s: %s", f.Path, f.Error), nil)
	}

	if outcome.ShouldAbort() {
		return &BatchError{Op: op, Failed: len(outcome.Failed), Total: outcome.Total()}
	}
	return nil
}

func (o *Orchestrator) byteCounter() ByteCounter {
	if bc, ok := o.opts.Progress.(ByteCounter); ok {
		return bc
	}
	return nil
}

// CleanRemotePath strips leading "./" and "/" and trailing "/" from a
// remote path and converts it to slash form
func CleanRemotePath(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	for {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(p, "./"), "/")
		if trimmed == p {
			break
		}
		p = trimmed
	}
	p = strings.TrimRight(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// RemotePath joins a base path and a relative path in slash form
func RemotePath(basePath, rel string) string {
	if basePath == "" {
		return rel
	}
	return path.Join(basePath, rel)
}
