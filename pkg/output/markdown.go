package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// Summary image modes
const (
	ImagesAuto   = "auto"
	ImagesAlways = "true"
	ImagesNever  = "false"
)

// SummaryOptions controls the Markdown step summary
type SummaryOptions struct {
	// APIURL is the artifact service base URL used to build image links
	APIURL string
	// Repository is "owner/name"
	Repository       string
	CurrentCommitSHA string
	// ScreenshotsPath and DiffsPath are the remote base paths of the uploads
	ScreenshotsPath string
	DiffsPath       string
	// Images is auto, true or false. Auto embeds images only for public baselines.
	Images         string
	ScreenshotsURL string
	DiffsURL       string
}

var summaryEmoji = map[models.Status]string{
	models.StatusPass:    ":white_check_mark:",
	models.StatusFail:    ":x:",
	models.StatusNew:     ":new:",
	models.StatusMissing: ":warning:",
}

// RenderSummary renders the report as GitHub-flavored Markdown
func RenderSummary(r *models.ComparisonReport, opts SummaryOptions) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString("## Visual Regression Report\n\n")

	switch {
	case s.Failed == 0 && s.Missing == 0 && s.New > 0:
		fmt.Fprintf(&b, "> **%d** new screenshot%s (no baseline to compare)\n\n", s.New, plural(s.New))
	case s.Failed == 0 && s.Missing == 0:
		fmt.Fprintf(&b, "> **%d/%d** screenshots passed\n\n", s.Passed, s.Total)
	default:
		fmt.Fprintf(&b, "> **%d/%d** screenshots passed", s.Passed, s.Compared())
		if s.Failed > 0 {
			fmt.Fprintf(&b, " | **%d** failed", s.Failed)
		}
		if s.Missing > 0 {
			fmt.Fprintf(&b, " | **%d** missing", s.Missing)
		}
		if s.New > 0 {
			fmt.Fprintf(&b, " | **%d** new", s.New)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "**Baseline:** `%s` @ `%s`\n", r.BaselineAlias, shortSHA(r.BaselineCommitSHA))
	fmt.Fprintf(&b, "**Current:** `%s`\n", shortSHA(r.CurrentCommitSHA))
	fmt.Fprintf(&b, "**Threshold:** %g%%\n\n", r.Threshold)

	b.WriteString("### Results\n\n")
	b.WriteString("| Screenshot | Status | Diff % |\n")
	b.WriteString("|------------|--------|--------|\n")
	for _, res := range r.Results {
		pct := "-"
		if p, ok := res.Percentage(); ok {
			pct = formatPercent(p) + "%"
		}
		fmt.Fprintf(&b, "| %s | %s %s | %s |\n", res.Name, summaryEmoji[res.Status], res.Status, pct)
	}

	if failures := r.Failures(); len(failures) > 0 {
		b.WriteString("\n### Failed Screenshots\n\n")
		writeFailures(&b, r, failures, opts)
	}

	writeNameList(&b, r, models.StatusNew, "New Screenshots",
		"These screenshots have no baseline to compare against:")
	writeNameList(&b, r, models.StatusMissing, "Missing Screenshots",
		"These screenshots exist in baseline but not in the current run:")

	if opts.ScreenshotsURL != "" || opts.DiffsURL != "" {
		b.WriteString("\n### Uploaded Results\n\n")
		if opts.ScreenshotsURL != "" {
			fmt.Fprintf(&b, "- [PR Screenshots](%s)\n", opts.ScreenshotsURL)
		}
		if opts.DiffsURL != "" {
			fmt.Fprintf(&b, "- [Diff Images](%s)\n", opts.DiffsURL)
		}
	}

	return b.String()
}

// writeFailures embeds images for public baselines and links otherwise
func writeFailures(b *strings.Builder, r *models.ComparisonReport, failures []models.ComparisonResult, opts SummaryOptions) {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	shots := trimSlashes(opts.ScreenshotsPath)
	diffs := trimSlashes(opts.DiffsPath)

	showImages := opts.Images == ImagesAlways || (opts.Images != ImagesNever && r.BaselineIsPublic)
	if showImages {
		base := fmt.Sprintf("%s/public/%s/commits", apiURL, opts.Repository)
		for _, f := range failures {
			pct, _ := f.Percentage()
			fmt.Fprintf(b, "<details>\n<summary>:x: %s (%s%% diff)</summary>\n\n", f.Name, formatPercent(pct))
			b.WriteString("| Baseline | Current | Diff |\n")
			b.WriteString("|----------|---------|------|\n")
			fmt.Fprintf(b, "| ![baseline](%s) | ![current](%s) | ![diff](%s) |\n\n",
				joinURL(base, r.BaselineCommitSHA, shots, f.Name),
				joinURL(base, opts.CurrentCommitSHA, shots, f.Name),
				joinURL(base, opts.CurrentCommitSHA, diffs, "diff-"+f.Name))
			b.WriteString("</details>\n\n")
		}
		return
	}

	base := fmt.Sprintf("%s/repo/%s", apiURL, opts.Repository)
	baselineURL := joinURL(base, r.BaselineCommitSHA, shots)
	currentURL := joinURL(base, opts.CurrentCommitSHA, shots)
	diffsURL := joinURL(base, opts.CurrentCommitSHA, diffs)

	b.WriteString("| Screenshot | Diff % | Links |\n")
	b.WriteString("|------------|--------|-------|\n")
	for _, f := range failures {
		pct, _ := f.Percentage()
		fmt.Fprintf(b, "| %s | %s%% | [baseline](%s/%s) [current](%s/%s) [diff](%s/diff-%s) |\n",
			f.Name, formatPercent(pct), baselineURL, f.Name, currentURL, f.Name, diffsURL, f.Name)
	}
	fmt.Fprintf(b, "\n> :lock: [View all diffs](%s) (requires login)\n", diffsURL)
}

func writeNameList(b *strings.Builder, r *models.ComparisonReport, status models.Status, title, intro string) {
	var names []string
	for _, res := range r.Results {
		if res.Status == status {
			names = append(names, res.Name)
		}
	}
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n%s\n\n", title, intro)
	for _, n := range names {
		fmt.Fprintf(b, "- `%s`\n", n)
	}
}

// AppendStepSummary appends the rendered summary to the step summary file
func AppendStepSummary(path string, r *models.ComparisonReport, opts SummaryOptions) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open step summary: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(RenderSummary(r, opts)); err != nil {
		return fmt.Errorf("failed to write step summary: %w", err)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func trimSlashes(p string) string {
	return strings.Trim(strings.TrimPrefix(p, "./"), "/")
}

// joinURL joins non-empty segments with "/"
func joinURL(base string, segments ...string) string {
	parts := []string{base}
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
