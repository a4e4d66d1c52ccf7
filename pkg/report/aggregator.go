// Package report folds classification results into a run report.
package report

import (
	"time"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// TimestampFormat is RFC 3339 in UTC with millisecond precision
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Metadata identifies the run a report belongs to
type Metadata struct {
	BaselineAlias     string
	BaselineCommitSHA string
	BaselineIsPublic  bool
	CurrentCommitSHA  string
	Threshold         float64
}

// Summarize counts results by status
func Summarize(results []models.ComparisonResult) models.ComparisonSummary {
	var s models.ComparisonSummary
	for _, r := range results {
		switch r.Status {
		case models.StatusPass:
			s.Passed++
		case models.StatusFail:
			s.Failed++
		case models.StatusNew:
			s.New++
		case models.StatusMissing:
			s.Missing++
		default:
			continue
		}
		s.Total++
	}
	return s
}

// Build wraps results with run metadata. Only the timestamp depends on at.
func Build(meta Metadata, results []models.ComparisonResult, at time.Time) *models.ComparisonReport {
	copied := make([]models.ComparisonResult, len(results))
	copy(copied, results)

	return &models.ComparisonReport{
		Timestamp:         at.UTC().Format(TimestampFormat),
		BaselineAlias:     meta.BaselineAlias,
		BaselineCommitSHA: meta.BaselineCommitSHA,
		BaselineIsPublic:  meta.BaselineIsPublic,
		CurrentCommitSHA:  meta.CurrentCommitSHA,
		Threshold:         meta.Threshold,
		Results:           copied,
		Summary:           Summarize(copied),
	}
}

// VerdictOf returns fail when any screenshot failed or went missing.
// New screenshots alone never fail a run.
func VerdictOf(s models.ComparisonSummary) models.Verdict {
	if s.Failed > 0 || s.Missing > 0 {
		return models.VerdictFail
	}
	return models.VerdictPass
}
