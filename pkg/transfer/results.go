package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/models"
)

// ResultsRequest describes where comparison artifacts live and how to
// publish them
type ResultsRequest struct {
	Repository string
	CommitSHA  string
	Branch     string
	// PRNumber is 0 outside pull requests
	PRNumber int

	ScreenshotsDir string
	DiffsDir       string

	// Aliases override the defaults derived from PRNumber or CommitSHA
	ScreenshotsAlias string
	DiffsAlias       string

	// Remote base paths inside each deployment
	ScreenshotsPath string
	DiffsPath       string
}

// ResultsUpload holds the deployments created by UploadResults. A nil
// deployment means that part was skipped or failed.
type ResultsUpload struct {
	Screenshots *Deployment
	Diffs       *Deployment
}

// ScreenshotsURL returns the screenshots deployment URL, empty when absent
func (r *ResultsUpload) ScreenshotsURL() string {
	if r == nil {
		return ""
	}
	return r.Screenshots.URL()
}

// DiffsURL returns the diffs deployment URL, empty when absent
func (r *ResultsUpload) DiffsURL() string {
	if r == nil {
		return ""
	}
	return r.Diffs.URL()
}

// ShortSHA returns the first seven characters of sha
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// DefaultAliases returns the screenshots and diffs aliases for a PR number,
// or for the commit when prNumber is 0
func DefaultAliases(prNumber int, commitSHA string) (screenshots, diffs string) {
	if prNumber > 0 {
		return fmt.Sprintf("screenshots-pr-%d", prNumber), fmt.Sprintf("screenshot-diffs-pr-%d", prNumber)
	}
	short := ShortSHA(commitSHA)
	return "screenshots-sha-" + short, "screenshot-diffs-sha-" + short
}

// Description returns the deployment description for a run
func Description(prNumber int, commitSHA string) string {
	if prNumber > 0 {
		return fmt.Sprintf("Visual regression test results for PR #%d", prNumber)
	}
	return "Visual regression test results for " + ShortSHA(commitSHA)
}

// UploadResults publishes the current screenshots and, when some result
// failed with a diff image, the diff images. Failures of either part are
// logged and joined into the returned error; the uploads that succeeded
// are still reported.
func (o *Orchestrator) UploadResults(ctx context.Context, report *models.ComparisonReport, req ResultsRequest) (*ResultsUpload, error) {
	screenshotsAlias, diffsAlias := DefaultAliases(req.PRNumber, req.CommitSHA)
	if req.ScreenshotsAlias != "" {
		screenshotsAlias = req.ScreenshotsAlias
	}
	if req.DiffsAlias != "" {
		diffsAlias = req.DiffsAlias
	}

	base := UploadRequest{
		Repository:  req.Repository,
		CommitSHA:   req.CommitSHA,
		Branch:      req.Branch,
		Description: Description(req.PRNumber, req.CommitSHA),
	}

	result := &ResultsUpload{}
	var errs []error

	screenshots := base
	screenshots.Alias = screenshotsAlias
	screenshots.BasePath = req.ScreenshotsPath
	deployment, err := o.UploadDirectory(ctx, req.ScreenshotsDir, screenshots)
	if err != nil {
		o.logger.Warn(ctx, "Failed to upload screenshots", logging.Fields{"error": err.Error()})
		errs = append(errs, fmt.Errorf("screenshots upload: %w", err))
	} else {
		result.Screenshots = deployment
	}

	if report != nil && report.HasFailedDiffs() {
		diffs := base
		diffs.Alias = diffsAlias
		diffs.BasePath = req.DiffsPath
		deployment, err := o.UploadDirectory(ctx, req.DiffsDir, diffs)
		if err != nil {
			o.logger.Warn(ctx, "Failed to upload diff images", logging.Fields{"error": err.Error()})
			errs = append(errs, fmt.Errorf("diffs upload: %w", err))
		} else {
			result.Diffs = deployment
		}
	}

	return result, errors.Join(errs...)
}
