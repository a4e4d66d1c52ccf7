package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

const progressTemplate = `{{string . "op"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{speed . }} {{string . "failed"}}`

// getUpdateInterval returns the progress refresh interval based on OS.
// Windows terminals have higher latency with ANSI sequences.
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// TransferProgress renders transfer batches as a progress bar on
// interactive terminals and as one summary line per batch otherwise.
// It is safe for concurrent use by pool workers.
type TransferProgress struct {
	writer      io.Writer
	interactive bool
	termWidth   int

	mu        sync.Mutex
	bar       *pb.ProgressBar
	byBytes   bool
	op        string
	total     int
	completed int
	failed    int
	bytes     int64
	startTime time.Time
}

// NewTransferProgress creates a progress renderer writing to w (stderr when nil)
func NewTransferProgress(w io.Writer) *TransferProgress {
	if w == nil {
		w = os.Stderr
	}

	p := &TransferProgress{writer: w, termWidth: 120}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		p.interactive = true
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			p.termWidth = width
		}
	}
	return p
}

// Start begins a new batch
func (p *TransferProgress) Start(op string, total int, totalBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.op = op
	p.total = total
	p.completed = 0
	p.failed = 0
	p.bytes = 0
	p.startTime = time.Now()
	p.bar = nil

	if !p.interactive || total == 0 {
		return
	}

	// Byte totals are only known when every size was reported
	p.byBytes = totalBytes > 0
	count := int64(total)
	if p.byBytes {
		count = totalBytes
	}

	p.bar = pb.ProgressBarTemplate(progressTemplate).New(0).
		SetTotal(count).
		SetWriter(p.writer).
		SetMaxWidth(p.termWidth).
		SetRefreshRate(getUpdateInterval()).
		Set(pb.Bytes, p.byBytes).
		Set(pb.Terminal, true).
		Set("op", fmt.Sprintf("%-8s", op)).
		Set("failed", "")
	p.bar.Start()
}

// Done records the final state of one task
func (p *TransferProgress) Done(task models.TransferTask, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if err != nil {
		p.failed++
	}

	if p.bar == nil {
		return
	}
	if !p.byBytes {
		p.bar.Increment()
	}
	if p.failed > 0 {
		p.bar.Set("failed", fmt.Sprintf("(%d failed)", p.failed))
	}
}

// AddBytes records bytes moved by in-flight tasks
func (p *TransferProgress) AddBytes(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bytes += n
	if p.bar != nil && p.byBytes {
		p.bar.Add64(n)
	}
}

// Finish ends the batch and prints its summary line
func (p *TransferProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}

	if p.total == 0 {
		return
	}
	fmt.Fprintf(p.writer, "%s: %d/%d files, %s in %s",
		p.op, p.completed-p.failed, p.total, formatBytes(p.bytes), formatDuration(time.Since(p.startTime)))
	if p.failed > 0 {
		fmt.Fprintf(p.writer, ", %d failed", p.failed)
	}
	fmt.Fprintln(p.writer)
}

// Counts returns the completed and failed task counts of the current batch
func (p *TransferProgress) Counts() (completed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.failed
}
