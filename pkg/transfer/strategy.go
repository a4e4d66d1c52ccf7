package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/ratelimit"
	"github.com/sdejongh/vrtnorris/pkg/storage"
)

// Strategy names
const (
	StrategyPresigned = "presigned"
	StrategyRelay     = "relay"
)

// Strategy moves the bytes of a single task. One strategy is chosen per
// batch from the service capabilities.
type Strategy interface {
	Name() string
	// Fetch opens the remote content of task
	Fetch(ctx context.Context, task models.TransferTask) (io.ReadCloser, error)
	// Send uploads body as the remote content of task
	Send(ctx context.Context, task models.TransferTask, body io.Reader) error
}

// presignedStrategy talks directly to storage URLs carried by each task
type presignedStrategy struct {
	client Client
}

// NewPresignedStrategy returns a strategy using task destinations as presigned URLs
func NewPresignedStrategy(client Client) Strategy {
	return &presignedStrategy{client: client}
}

func (s *presignedStrategy) Name() string { return StrategyPresigned }

func (s *presignedStrategy) Fetch(ctx context.Context, task models.TransferTask) (io.ReadCloser, error) {
	if task.Destination == "" {
		return nil, Permanent(fmt.Errorf("no download URL for %s", task.RelativePath))
	}
	return s.client.GetURL(ctx, task.Destination)
}

func (s *presignedStrategy) Send(ctx context.Context, task models.TransferTask, body io.Reader) error {
	if task.Destination == "" {
		return Permanent(fmt.Errorf("no presigned URL for %s", task.RelativePath))
	}
	return s.client.PutURL(ctx, task.Destination, body, task.Size, task.ContentType)
}

// relayStrategy streams bytes through the artifact service
type relayStrategy struct {
	client      Client
	repository  string
	alias       string
	uploadToken string
}

// NewRelayStrategy returns a strategy routing transfers through the service.
// Uploads require uploadToken.
func NewRelayStrategy(client Client, repository, alias, uploadToken string) Strategy {
	return &relayStrategy{
		client:      client,
		repository:  repository,
		alias:       alias,
		uploadToken: uploadToken,
	}
}

func (s *relayStrategy) Name() string { return StrategyRelay }

func (s *relayStrategy) Fetch(ctx context.Context, task models.TransferTask) (io.ReadCloser, error) {
	return s.client.RelayDownload(ctx, RelayRef{
		Repository: s.repository,
		Alias:      s.alias,
		Path:       task.RelativePath,
	})
}

func (s *relayStrategy) Send(ctx context.Context, task models.TransferTask, body io.Reader) error {
	if s.uploadToken == "" {
		return Permanent(ErrTransferSkipped)
	}
	return s.client.RelayUpload(ctx, s.uploadToken, task.RelativePath, body, task.Size, task.ContentType)
}

// ByteCounter is implemented by progress observers that also track bytes
type ByteCounter interface {
	AddBytes(n int64)
}

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

// progressReader reports bytes read to a ByteCounter, throttled
type progressReader struct {
	reader         io.Reader
	counter        ByteCounter
	read           int64
	lastReported   int64
	lastReportTime time.Time
}

func newProgressReader(r io.Reader, counter ByteCounter) io.Reader {
	if counter == nil {
		return r
	}
	return &progressReader{reader: r, counter: counter, lastReportTime: time.Now()}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
	}
	if pr.read > pr.lastReported &&
		(pr.read-pr.lastReported >= progressReportBytes ||
			time.Since(pr.lastReportTime) >= progressReportInterval ||
			err != nil) {
		pr.counter.AddBytes(pr.read - pr.lastReported)
		pr.lastReported = pr.read
		pr.lastReportTime = time.Now()
	}
	return n, err
}

// downloadExecutor writes fetched content under the local root at the
// task's FilePath
type downloadExecutor struct {
	strategy Strategy
	local    storage.Backend
	limiter  *ratelimit.Limiter
	counter  ByteCounter
}

func (e *downloadExecutor) Transfer(ctx context.Context, task models.TransferTask) error {
	rel, err := e.local.Rel(task.FilePath)
	if err != nil {
		return Permanent(err)
	}

	body, err := e.strategy.Fetch(ctx, task)
	if err != nil {
		return err
	}
	defer body.Close()

	size := task.Size
	if size <= 0 {
		size = -1
	}

	reader := newProgressReader(ratelimit.NewReader(ctx, body, e.limiter), e.counter)
	if err := e.local.Write(ctx, rel, reader, size); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// uploadExecutor sends a local file through the strategy
type uploadExecutor struct {
	strategy Strategy
	local    storage.Backend
	limiter  *ratelimit.Limiter
	counter  ByteCounter
}

func (e *uploadExecutor) Transfer(ctx context.Context, task models.TransferTask) error {
	rel, err := e.local.Rel(task.FilePath)
	if err != nil {
		return Permanent(err)
	}

	file, err := e.local.Read(ctx, rel)
	if err != nil {
		return Permanent(fmt.Errorf("failed to open %s: %w", rel, err))
	}
	defer file.Close()

	reader := newProgressReader(ratelimit.NewReader(ctx, file, e.limiter), e.counter)
	return e.strategy.Send(ctx, task, reader)
}
