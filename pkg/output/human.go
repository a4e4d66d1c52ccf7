package output

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/report"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer io.Writer
	title  cases.Caser
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	return &HumanFormatter{
		writer: w,
		title:  cases.Title(language.English),
	}
}

var statusMarks = map[models.Status]string{
	models.StatusPass:    "✓",
	models.StatusFail:    "✗",
	models.StatusNew:     "+",
	models.StatusMissing: "-",
}

// Complete prints one line per screenshot followed by the summary
func (f *HumanFormatter) Complete(r *models.ComparisonReport, info RunInfo) error {
	w := f.writer

	fmt.Fprintf(w, "\nVisual regression results\n")
	fmt.Fprintf(w, "  Baseline:  %s @ %s\n", r.BaselineAlias, shortSHA(r.BaselineCommitSHA))
	fmt.Fprintf(w, "  Current:   %s\n", shortSHA(r.CurrentCommitSHA))
	fmt.Fprintf(w, "  Threshold: %s%%\n\n", formatPercent(r.Threshold))

	nameWidth := 10
	for _, res := range r.Results {
		if len(res.Name) > nameWidth {
			nameWidth = len(res.Name)
		}
	}

	for _, res := range r.Results {
		line := fmt.Sprintf("  %s %-8s %-*s", statusMarks[res.Status], f.title.String(string(res.Status)), nameWidth, res.Name)
		if pct, ok := res.Percentage(); ok {
			line += fmt.Sprintf("  %8s%%", formatPercent(pct))
		}
		if res.Status == models.StatusFail && res.HasDiffArtifact() {
			line += "  diff: " + res.DiffPath
		}
		fmt.Fprintln(w, line)
	}

	s := r.Summary
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Total:    %d\n", s.Total)
	fmt.Fprintf(w, "  Passed:   %d\n", s.Passed)
	fmt.Fprintf(w, "  Failed:   %d\n", s.Failed)
	fmt.Fprintf(w, "  New:      %d\n", s.New)
	fmt.Fprintf(w, "  Missing:  %d\n", s.Missing)

	if info.ReportPath != "" {
		fmt.Fprintf(w, "\nReport: %s\n", info.ReportPath)
	}
	if info.ScreenshotsURL != "" {
		fmt.Fprintf(w, "Screenshots: %s\n", info.ScreenshotsURL)
	}
	if info.DiffsURL != "" {
		fmt.Fprintf(w, "Diffs: %s\n", info.DiffsURL)
	}
	if info.Duration > 0 {
		fmt.Fprintf(w, "\nCompleted in %s\n", formatDuration(info.Duration))
	}

	fmt.Fprintf(w, "Result: %s\n", f.title.String(string(report.VerdictOf(s))))
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	fmt.Fprintf(f.writer, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func shortSHA(sha string) string {
	if sha == "" {
		return "-"
	}
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// formatPercent renders a percentage with three decimals
func formatPercent(p float64) string {
	return fmt.Sprintf("%.3f", p)
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
