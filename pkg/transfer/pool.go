package transfer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/models"
)

// DefaultConcurrency is the number of parallel transfer workers
const DefaultConcurrency = 10

// PoolConfig holds configuration for the transfer pool
type PoolConfig struct {
	// Concurrency is the maximum number of tasks in flight
	Concurrency int
	// MaxRetries is the number of additional attempts after a failure
	MaxRetries int
	// RetryDelay is the base backoff delay
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff delay
	MaxRetryDelay time.Duration
	// JitterFactor randomizes the delay by +/- half this fraction
	JitterFactor float64
}

// DefaultPoolConfig returns sensible defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:   DefaultConcurrency,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		JitterFactor:  DefaultJitterFactor,
	}
}

// withDefaults fills zero values
func (c PoolConfig) withDefaults() PoolConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}
	return c
}

// Executor performs a single transfer attempt
type Executor interface {
	Transfer(ctx context.Context, task models.TransferTask) error
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, task models.TransferTask) error

// Transfer calls f
func (f ExecutorFunc) Transfer(ctx context.Context, task models.TransferTask) error {
	return f(ctx, task)
}

// Progress receives pool events. Implementations must be safe for
// concurrent use.
type Progress interface {
	// Start is called once before any task runs
	Start(op string, total int, totalBytes int64)
	// Done is called once per task with its final error, nil on success
	Done(task models.TransferTask, err error)
	// Finish is called once after every task reached a terminal state
	Finish()
}

// Pool runs transfer tasks with bounded concurrency and per-task retries
type Pool struct {
	config   PoolConfig
	executor Executor
	logger   logging.Logger
	progress Progress

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewPool creates a new transfer pool
func NewPool(config PoolConfig, executor Executor, logger logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Pool{
		config:   config.withDefaults(),
		executor: executor,
		logger:   logger,
	}
}

// SetProgress registers a progress observer
func (p *Pool) SetProgress(progress Progress) {
	p.progress = progress
}

// MaxInFlight returns the highest number of concurrently running tasks
// observed during the last Run
func (p *Pool) MaxInFlight() int {
	return int(p.maxInFlight.Load())
}

// Run executes all tasks and returns once every task reached a terminal
// state. Individual failures never abort the batch. When ctx is cancelled
// queued tasks are recorded as failed and in-flight tasks are allowed to
// return. Success paths are sorted in task order.
func (p *Pool) Run(ctx context.Context, op string, tasks []models.TransferTask) *models.TransferOutcome {
	outcome := &models.TransferOutcome{
		Success: []string{},
		Failed:  []models.TransferFailure{},
	}
	p.inFlight.Store(0)
	p.maxInFlight.Store(0)

	var totalBytes int64
	for _, t := range tasks {
		totalBytes += t.Size
	}
	if p.progress != nil {
		p.progress.Start(op, len(tasks), totalBytes)
		defer p.progress.Finish()
	}
	if len(tasks) == 0 {
		return outcome
	}

	workers := p.config.Concurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	queue := make(chan *job, len(tasks))
	jobs := make([]*job, len(tasks))
	for i, t := range tasks {
		jobs[i] = newJob(t)
		queue <- jobs[i]
	}
	close(queue)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	record := func(j *job) {
		mu.Lock()
		defer mu.Unlock()
		if j.status == JobCompleted {
			outcome.Success = append(outcome.Success, j.task.RelativePath)
		} else {
			outcome.Failed = append(outcome.Failed, models.TransferFailure{
				Path:  j.task.RelativePath,
				Error: j.err.Error(),
			})
		}
		if p.progress != nil {
			p.progress.Done(j.task, j.err)
		}
	}

	p.logger.Debug(ctx, "Starting transfer workers", logging.Fields{
		"op":      op,
		"workers": workers,
		"tasks":   len(tasks),
	})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.runWorker(ctx, i, queue, record, &wg)
	}
	wg.Wait()

	order := make(map[string]int, len(tasks))
	for i, t := range tasks {
		order[t.RelativePath] = i
	}
	sort.SliceStable(outcome.Success, func(a, b int) bool {
		return order[outcome.Success[a]] < order[outcome.Success[b]]
	})
	sort.SliceStable(outcome.Failed, func(a, b int) bool {
		return order[outcome.Failed[a].Path] < order[outcome.Failed[b].Path]
	})

	return outcome
}

// runWorker drains the queue until it is empty
func (p *Pool) runWorker(ctx context.Context, workerID int, queue <-chan *job, record func(*job), wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range queue {
		j.MarkProcessing(workerID)

		if err := ctx.Err(); err != nil {
			j.MarkError(fmt.Errorf("not started: %w", err), 0, 0)
			record(j)
			continue
		}

		p.execute(ctx, j)
		record(j)
	}
}

// execute runs a job with retries and updates its state
func (p *Pool) execute(ctx context.Context, j *job) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.maxInFlight.Load()
		if n <= peak || p.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	start := time.Now()
	attempts, err := retry(ctx, p.config, func(attempt int) error {
		if attempt > 0 {
			p.logger.Debug(ctx, "Retrying transfer", logging.Fields{
				"path":    j.task.RelativePath,
				"attempt": attempt + 1,
			})
		}
		return p.executor.Transfer(ctx, j.task)
	})

	if err != nil {
		j.MarkError(err, attempts, time.Since(start))
		p.logger.Debug(ctx, "Transfer failed", logging.Fields{
			"path":     j.task.RelativePath,
			"attempts": attempts,
			"worker":   j.workerID,
			"error":    err.Error(),
		})
		return
	}

	j.MarkCompleted(attempts, time.Since(start))
	p.logger.Debug(ctx, "Transfer completed", logging.Fields{
		"path":     j.task.RelativePath,
		"attempts": attempts,
		"worker":   j.workerID,
		"duration": j.duration.String(),
	})
}
