package cli

import (
	"context"
	"fmt"
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
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare screenshots against a local baseline directory",
		Long: `Compare the screenshots of the current run against a baseline directory on
disk. Nothing is downloaded or uploaded; the report and diff images are
written exactly as the run command does.`,
		RunE: runCompare,
	}

	addCompareFlags(cmd)
	cmd.Flags().StringVar(&cmdFlags.Baseline, "baseline", "", "baseline screenshot directory (required)")
	cmd.MarkFlagRequired("baseline")
	addOutputFlags(cmd)

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
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

	rep, err := compareLocal(ctx, cfg, cmdFlags.Baseline, logger)
	if err != nil {
		formatter.Error(err)
		return &ExitError{Code: models.VerdictError.ExitCode()}
	}

	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		if err := output.WriteActionOutputs(path, output.NewActionOutputs(rep, "", "")); err != nil {
			return err
		}
	}

	err = formatter.Complete(rep, output.RunInfo{
		Duration:         time.Since(start),
		ReportPath:       cfg.Output.ReportFile,
		FailOnDifference: cfg.Output.FailOnDifference,
	})
	if err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	return verdictError(ctx, logger, rep, cfg.Output.FailOnDifference)
}

// compareLocal classifies the configured screenshots against baselineDir and
// writes the report
func compareLocal(ctx context.Context, cfg *config.Config, baselineDir string, logger logging.Logger) (*models.ComparisonReport, error) {
	dir, err := screenshotDir(cfg)
	if err != nil {
		return nil, err
	}
	baseDir, err := platform.NormalizePath(baselineDir)
	if err != nil {
		return nil, err
	}
	if err := platform.CheckSeparate(baseDir, cfg.Compare.DiffDir); err != nil {
		return nil, fmt.Errorf("invalid diff output directory: %w", err)
	}

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	baseline, err := compare.IndexDirectory(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline directory: %w", err)
	}
	local, err := compare.LoadLocalSet(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list screenshots: %w", err)
	}

	logger.Info(ctx, "Comparing against local baseline", logging.Fields{
		"baseline":       baseDir,
		"path":           dir,
		"baseline_files": baseline.Len(),
		"current_files":  len(local.Names),
	})

	results, err := classifier.Classify(ctx, local, baseline)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	// Best effort: a plain directory needs no git checkout
	var commit string
	if git, err := gitctx.Detect(os.Getenv); err == nil {
		commit = git.CommitSHA
	}

	rep := report.Build(report.Metadata{
		BaselineAlias:    baselineDir,
		CurrentCommitSHA: commit,
		Threshold:        cfg.Compare.Threshold,
	}, results, time.Now())

	if err := report.WriteJSON(cfg.Output.ReportFile, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
