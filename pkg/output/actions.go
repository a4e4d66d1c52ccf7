package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/report"
)

// ActionOutputs are the step outputs published for later workflow steps
type ActionOutputs struct {
	Summary           models.ComparisonSummary
	Result            models.Verdict
	Report            *models.ComparisonReport
	BaselineCommitSHA string
	BaselineIsPublic  bool
	ScreenshotsURL    string
	DiffsURL          string
}

// NewActionOutputs derives the outputs of a finished run
func NewActionOutputs(r *models.ComparisonReport, screenshotsURL, diffsURL string) ActionOutputs {
	return ActionOutputs{
		Summary:           r.Summary,
		Result:            report.VerdictOf(r.Summary),
		Report:            r,
		BaselineCommitSHA: r.BaselineCommitSHA,
		BaselineIsPublic:  r.BaselineIsPublic,
		ScreenshotsURL:    screenshotsURL,
		DiffsURL:          diffsURL,
	}
}

// Pairs returns the outputs as ordered name/value pairs. Upload URLs are
// omitted when empty.
func (o ActionOutputs) Pairs() ([][2]string, error) {
	reportJSON := "{}"
	if o.Report != nil {
		data, err := json.Marshal(o.Report)
		if err != nil {
			return nil, fmt.Errorf("failed to encode report output: %w", err)
		}
		reportJSON = string(data)
	}

	pairs := [][2]string{
		{"total", strconv.Itoa(o.Summary.Total)},
		{"passed", strconv.Itoa(o.Summary.Passed)},
		{"failed", strconv.Itoa(o.Summary.Failed)},
		{"new", strconv.Itoa(o.Summary.New)},
		{"missing", strconv.Itoa(o.Summary.Missing)},
		{"result", string(o.Result)},
		{"report", reportJSON},
		{"baseline-commit-sha", o.BaselineCommitSHA},
		{"baseline-is-public", strconv.FormatBool(o.BaselineIsPublic)},
	}
	if o.ScreenshotsURL != "" {
		pairs = append(pairs, [2]string{"screenshots-url", o.ScreenshotsURL})
	}
	if o.DiffsURL != "" {
		pairs = append(pairs, [2]string{"diffs-url", o.DiffsURL})
	}
	return pairs, nil
}

// WriteActionOutputs appends the outputs to the GITHUB_OUTPUT file at path
func WriteActionOutputs(path string, o ActionOutputs) error {
	pairs, err := o.Pairs()
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(formatOutput(p[0], p[1]))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open outputs file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	return nil
}

// formatOutput encodes one output, using a random heredoc delimiter for
// values spanning several lines
func formatOutput(name, value string) string {
	if !strings.ContainsAny(value, "\r\n") {
		return name + "=" + value + "\n"
	}
	delimiter := "ghadelimiter_" + uuid.NewString()
	return fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter)
}
