package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/vrtnorris/internal/gitctx"
	"github.com/sdejongh/vrtnorris/internal/platform"
	"github.com/sdejongh/vrtnorris/pkg/compare"
	"github.com/sdejongh/vrtnorris/pkg/config"
	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/models"
	"github.com/sdejongh/vrtnorris/pkg/output"
	"github.com/sdejongh/vrtnorris/pkg/report"
	"github.com/sdejongh/vrtnorris/pkg/transfer"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare screenshots against a remote baseline",
		Long: `Download the baseline identified by an alias, compare every screenshot of
the current run against it, write the JSON report and publish screenshots and
diff images when something failed or is new.

Inside GitHub Actions the step outputs and the step summary are written too.`,
		RunE: runRun,
	}

	addCompareFlags(cmd)
	addRemoteFlags(cmd)
	addBaselineFlags(cmd)
	addUploadFlags(cmd)
	addTransferFlags(cmd)
	addOutputFlags(cmd)
	addSummaryFlags(cmd)

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	git, err := gitctx.Detect(os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to detect git context: %w", err)
	}
	if cfg.Remote.Repository == "" {
		cfg.Remote.Repository = git.Repository
	}
	if err := cfg.ValidateRemote(true); err != nil {
		return err
	}
	if git.InActions {
		fmt.Fprintf(cmd.OutOrStdout(), "::add-mask::%s\n", cfg.Remote.APIKey)
	}

	formatter, err := output.NewFormatter(cfg.Output.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, cmd.ErrOrStderr(), uuid.NewString())
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	r := &runner{
		cfg:    cfg,
		git:    git,
		client: client,
		logger: logger,
		stderr: cmd.ErrOrStderr(),
		getenv: os.Getenv,
		now:    time.Now,
	}
	return r.finish(ctx, formatter)
}

// runner executes one full regression run
type runner struct {
	cfg    *config.Config
	git    *gitctx.Context
	client transfer.Client
	logger logging.Logger
	stderr io.Writer
	getenv func(string) string
	now    func() time.Time
}

// runResult is what a completed run hands to the formatters
type runResult struct {
	report  *models.ComparisonReport
	uploads *transfer.ResultsUpload
}

// finish runs the pipeline, renders the outcome and maps it to an exit code
func (r *runner) finish(ctx context.Context, formatter output.Formatter) error {
	start := r.now()

	res, err := r.execute(ctx)
	if err != nil {
		r.logger.Error(ctx, "Visual regression run failed", err, nil)
		formatter.Error(err)
		return &ExitError{Code: models.VerdictError.ExitCode()}
	}

	info := output.RunInfo{
		Duration:         r.now().Sub(start),
		ReportPath:       r.cfg.Output.ReportFile,
		ScreenshotsURL:   res.uploads.ScreenshotsURL(),
		DiffsURL:         res.uploads.DiffsURL(),
		FailOnDifference: r.cfg.Output.FailOnDifference,
	}
	if err := formatter.Complete(res.report, info); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	return verdictError(ctx, r.logger, res.report, r.cfg.Output.FailOnDifference)
}

// execute downloads the baseline, classifies, reports and publishes. The
// temporary baseline directory is removed whatever happens.
func (r *runner) execute(ctx context.Context) (*runResult, error) {
	cfg := r.cfg

	dir, err := screenshotDir(cfg)
	if err != nil {
		return nil, err
	}
	diffDir, err := platform.NormalizePath(cfg.Compare.DiffDir)
	if err != nil {
		return nil, err
	}

	classifier, err := newClassifier(cfg, r.logger)
	if err != nil {
		return nil, err
	}

	orch, err := newOrchestrator(cfg, r.client, r.logger, r.stderr)
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "Starting visual regression run", logging.Fields{
		"path":           cfg.Compare.Path,
		"baseline_alias": cfg.Remote.BaselineAlias,
		"repository":     cfg.Remote.Repository,
		"threshold":      cfg.Compare.Threshold,
		"commit":         r.git.CommitSHA,
		"branch":         r.git.Branch,
		"pr":             r.git.PRNumber,
	})

	manifest, err := orch.DownloadBaseline(ctx, transfer.DownloadRequest{
		Repository: cfg.Remote.Repository,
		Path:       cfg.Compare.Path,
		Alias:      cfg.Remote.BaselineAlias,
	})
	if err != nil {
		return nil, err
	}
	defer r.cleanup(ctx, manifest.OutputDir)

	r.logger.Info(ctx, "Baseline ready", logging.Fields{
		"files":     manifest.FileCount,
		"commit":    manifest.CommitSHA,
		"is_public": manifest.IsPublic,
	})

	local, err := compare.LoadLocalSet(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list screenshots: %w", err)
	}

	results, err := classifier.Classify(ctx, local, compare.NewBaselineIndex(manifest))
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	rep := report.Build(report.Metadata{
		BaselineAlias:     cfg.Remote.BaselineAlias,
		BaselineCommitSHA: manifest.CommitSHA,
		BaselineIsPublic:  manifest.IsPublic,
		CurrentCommitSHA:  r.git.CommitSHA,
		Threshold:         cfg.Compare.Threshold,
	}, results, r.now())

	r.logger.Info(ctx, "Comparison complete", logging.Fields{
		"total":   rep.Summary.Total,
		"passed":  rep.Summary.Passed,
		"failed":  rep.Summary.Failed,
		"new":     rep.Summary.New,
		"missing": rep.Summary.Missing,
	})

	if err := report.WriteJSON(cfg.Output.ReportFile, rep); err != nil {
		return nil, err
	}
	r.logger.Debug(ctx, "Report written", logging.Fields{"path": cfg.Output.ReportFile})

	res := &runResult{report: rep}
	if cfg.Remote.UploadResults && (rep.Summary.Failed > 0 || rep.Summary.New > 0) {
		uploads, err := orch.UploadResults(ctx, rep, transfer.ResultsRequest{
			Repository:       cfg.Remote.Repository,
			CommitSHA:        r.git.CommitSHA,
			Branch:           r.git.Branch,
			PRNumber:         r.git.PRNumber,
			ScreenshotsDir:   dir,
			DiffsDir:         diffDir,
			ScreenshotsAlias: cfg.Remote.ScreenshotsAlias,
			DiffsAlias:       cfg.Remote.DiffsAlias,
			ScreenshotsPath:  transfer.CleanRemotePath(cfg.Compare.Path),
			DiffsPath:        transfer.CleanRemotePath(cfg.Compare.DiffDir),
		})
		if err != nil {
			// Publishing is best effort, the verdict stands without it
			r.logger.Warn(ctx, "Results were not fully uploaded", logging.Fields{"error": err.Error()})
		}
		res.uploads = uploads
	}

	if err := r.publish(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// publish writes the Actions step outputs and summary when the runner
// provides their files
func (r *runner) publish(ctx context.Context, res *runResult) error {
	if path := r.getenv("GITHUB_OUTPUT"); path != "" {
		outputs := output.NewActionOutputs(res.report, res.uploads.ScreenshotsURL(), res.uploads.DiffsURL())
		if err := output.WriteActionOutputs(path, outputs); err != nil {
			return err
		}
	}

	if !r.cfg.Output.Summary {
		return nil
	}
	path := r.getenv("GITHUB_STEP_SUMMARY")
	if path == "" {
		return nil
	}

	err := output.AppendStepSummary(path, res.report, output.SummaryOptions{
		APIURL:           r.cfg.Remote.APIURL,
		Repository:       r.cfg.Remote.Repository,
		CurrentCommitSHA: r.git.CommitSHA,
		ScreenshotsPath:  transfer.CleanRemotePath(r.cfg.Compare.Path),
		DiffsPath:        transfer.CleanRemotePath(r.cfg.Compare.DiffDir),
		Images:           r.cfg.Output.SummaryImages,
		ScreenshotsURL:   res.uploads.ScreenshotsURL(),
		DiffsURL:         res.uploads.DiffsURL(),
	})
	if err != nil {
		r.logger.Warn(ctx, "Failed to write step summary", logging.Fields{"error": err.Error()})
	}
	return nil
}

func (r *runner) cleanup(ctx context.Context, dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		r.logger.Warn(ctx, "Failed to clean up temporary baseline directory", logging.Fields{
			"dir":   dir,
			"error": err.Error(),
		})
		return
	}
	r.logger.Debug(ctx, "Cleaned up temporary baseline directory", logging.Fields{"dir": dir})
}

// verdictError returns the exit error for a failed verdict, nil otherwise
func verdictError(ctx context.Context, logger logging.Logger, rep *models.ComparisonReport, failOnDifference bool) error {
	verdict := report.VerdictOf(rep.Summary)
	if verdict != models.VerdictFail || !failOnDifference {
		return nil
	}

	err := fmt.Errorf("visual regression detected: %d failed, %d missing", rep.Summary.Failed, rep.Summary.Missing)
	logger.Error(ctx, "Visual regression detected", err, nil)
	return &ExitError{Code: verdict.ExitCode()}
}
