package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// RunInfo carries run details that are not part of the comparison report
type RunInfo struct {
	Duration       time.Duration
	ReportPath     string
	ScreenshotsURL string
	DiffsURL       string
	// FailOnDifference reports whether a fail verdict fails the run
	FailOnDifference bool
}

// Formatter defines the interface for rendering run results.
// Implementations include human-readable and JSON formatters.
type Formatter interface {
	// Complete renders the final report
	Complete(report *models.ComparisonReport, info RunInfo) error

	// Error reports a fatal error of the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// NewFormatter returns the formatter registered under name, writing to w
// (stdout when nil)
func NewFormatter(name string, w io.Writer) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch name {
	case "", "human":
		return NewHumanFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (expected human or json)", name)
	}
}
