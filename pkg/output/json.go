package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/report"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer io.Writer
	now    func() time.Time
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w, now: time.Now}
}

// JSONEvent is the single document written by the formatter
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONReportData represents the final run data
type JSONReportData struct {
	Result     models.Verdict           `json:"result"`
	Duration   string                   `json:"duration,omitempty"`
	DurationMs int64                    `json:"duration_ms,omitempty"`
	ReportPath string                   `json:"report_path,omitempty"`
	Uploads    *JSONUploadData          `json:"uploads,omitempty"`
	Report     *models.ComparisonReport `json:"report"`
}

// JSONUploadData lists the published deployment URLs
type JSONUploadData struct {
	ScreenshotsURL string `json:"screenshots_url,omitempty"`
	DiffsURL       string `json:"diffs_url,omitempty"`
}

// JSONErrorData represents a fatal error
type JSONErrorData struct {
	Result models.Verdict `json:"result"`
	Error  string         `json:"error"`
}

// Complete writes the report as a "complete" event
func (f *JSONFormatter) Complete(r *models.ComparisonReport, info RunInfo) error {
	data := JSONReportData{
		Result:     report.VerdictOf(r.Summary),
		ReportPath: info.ReportPath,
		Report:     r,
	}
	if info.Duration > 0 {
		data.Duration = info.Duration.Round(time.Millisecond).String()
		data.DurationMs = info.Duration.Milliseconds()
	}
	if info.ScreenshotsURL != "" || info.DiffsURL != "" {
		data.Uploads = &JSONUploadData{ScreenshotsURL: info.ScreenshotsURL, DiffsURL: info.DiffsURL}
	}
	return f.emit("complete", data)
}

// Error writes an "error" event
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", JSONErrorData{Result: models.VerdictError, Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) emit(eventType string, data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONEvent{
		Timestamp: f.now().UTC(),
		Type:      eventType,
		Data:      data,
	})
}
