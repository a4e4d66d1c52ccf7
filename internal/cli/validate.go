package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/vrtnorris/internal/platform"
	"github.com/sdejongh/vrtnorris/pkg/artifact"
	"github.com/sdejongh/vrtnorris/pkg/compare"
	"github.com/sdejongh/vrtnorris/pkg/config"
	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/output"
	"github.com/sdejongh/vrtnorris/pkg/ratelimit"
	"github.com/sdejongh/vrtnorris/pkg/transfer"
)

// ExitError carries a process exit code out of a command. A nil Err means
// the failure was already reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// loadConfig loads the configuration file, then overlays environment
// variables and the flags set on cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyEnvironment(cfg); err != nil {
		return nil, err
	}

	applyFlagsToConfig(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	// Comparison
	if changed("path") {
		cfg.Compare.Path = cmdFlags.Path
	}
	if changed("threshold") {
		cfg.Compare.Threshold = cmdFlags.Threshold
	}
	if changed("pixel-threshold") {
		cfg.Compare.PixelThreshold = cmdFlags.PixelThreshold
	}
	if changed("include-anti-aliasing") {
		cfg.Compare.IncludeAntiAliasing = cmdFlags.IncludeAntiAliasing
	}
	if changed("output-dir") {
		cfg.Compare.DiffDir = cmdFlags.OutputDir
	}

	// Artifact service
	if changed("api-url") {
		cfg.Remote.APIURL = cmdFlags.APIURL
	}
	if changed("api-key") {
		cfg.Remote.APIKey = cmdFlags.APIKey
	}
	if changed("repository") {
		cfg.Remote.Repository = cmdFlags.Repository
	}
	if changed("baseline-alias") {
		cfg.Remote.BaselineAlias = cmdFlags.BaselineAlias
	}
	if changed("screenshots-alias") {
		cfg.Remote.ScreenshotsAlias = cmdFlags.ScreenshotsAlias
	}
	if changed("diffs-alias") {
		cfg.Remote.DiffsAlias = cmdFlags.DiffsAlias
	}
	if changed("upload-results") {
		cfg.Remote.UploadResults = cmdFlags.UploadResults
	}

	// Transfers
	if changed("parallel") {
		cfg.Transfer.Concurrency = cmdFlags.Parallel
	}
	if changed("retries") {
		cfg.Transfer.MaxRetries = cmdFlags.Retries
	}
	if changed("bandwidth") {
		cfg.Transfer.BandwidthLimit = cmdFlags.Bandwidth
	}
	if changed("exclude") {
		cfg.Exclude = cmdFlags.Exclude
	}
	if changed("no-progress") && cmdFlags.NoProgress {
		cfg.Output.Progress = false
	}

	// Output
	if changed("output") {
		cfg.Output.Format = cmdFlags.Output
	}
	if changed("report-file") {
		cfg.Output.ReportFile = cmdFlags.ReportFile
	}
	if changed("summary") {
		cfg.Output.Summary = cmdFlags.Summary
	}
	if changed("summary-images") {
		cfg.Output.SummaryImages = cmdFlags.SummaryImages
	}
	if changed("fail-on-difference") {
		cfg.Output.FailOnDifference = cmdFlags.FailOnDifference
	}

	// Logging
	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Debug logs in verbose mode
	if globalFlags.Verbose && globalFlags.LogLevel == "" {
		cfg.Logging.Level = "debug"
	}
}

// createLogger creates the run logger: the console stream plus the log
// file when one is configured. Every entry carries the run id.
func createLogger(cfg *config.Config, console io.Writer, runID string) (logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewNullLogger(), nil
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	consoleLevel := level
	if cfg.Output.Quiet && consoleLevel < logging.ErrorLevel {
		consoleLevel = logging.ErrorLevel
	}

	loggers := []logging.Logger{
		logging.NewStreamLogger(console, logging.ParseFormat(cfg.Logging.Format), consoleLevel),
	}

	if cfg.Logging.File != "" {
		// Workflow commands mean nothing in a file
		format := logging.ParseFormat(cfg.Logging.Format)
		if format == logging.FormatGitHub {
			format = logging.FormatText
		}

		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      level,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		loggers = append(loggers, fileLogger)
	}

	return logging.Tee(loggers...).WithFields(logging.Fields{"run_id": runID}), nil
}

// newClient creates the artifact service client
func newClient(cfg *config.Config) (*artifact.Client, error) {
	client, err := artifact.NewClient(cfg.Remote.APIURL, cfg.Remote.APIKey,
		artifact.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout}),
		artifact.WithUserAgent(artifact.DefaultUserAgent+"/"+Version))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact client: %w", err)
	}
	return client, nil
}

// newOrchestrator wires the transfer pool, bandwidth limit and progress
// reporting around client
func newOrchestrator(cfg *config.Config, client transfer.Client, logger logging.Logger, progressOut io.Writer) (*transfer.Orchestrator, error) {
	rate, err := cfg.BandwidthLimit()
	if err != nil {
		return nil, err
	}

	opts := transfer.Options{
		Pool:    cfg.PoolConfig(),
		Limiter: ratelimit.NewLimiter(rate),
		Exclude: cfg.Exclude,
		TempDir: cfg.Transfer.TempDir,
	}
	if cfg.Output.Progress && !cfg.Output.Quiet {
		opts.Progress = output.NewTransferProgress(progressOut)
	}

	return transfer.NewOrchestrator(client, opts, logger), nil
}

// newClassifier creates the screenshot classifier, making sure diff images
// never land inside the screenshot directory
func newClassifier(cfg *config.Config, logger logging.Logger) (*compare.Classifier, error) {
	if err := platform.CheckSeparate(cfg.Compare.Path, cfg.Compare.DiffDir); err != nil {
		return nil, fmt.Errorf("invalid diff output directory: %w", err)
	}

	return compare.NewClassifier(compare.Config{
		Threshold:  cfg.Compare.Threshold,
		Diff:       cfg.DiffOptions(),
		OutputDir:  cfg.Compare.DiffDir,
		BufferSize: cfg.Compare.BufferSize,
	}, logger)
}

// screenshotDir validates the directory of current screenshots
func screenshotDir(cfg *config.Config) (string, error) {
	dir, err := platform.NormalizePath(cfg.Compare.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("screenshot directory not found: %s", cfg.Compare.Path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("screenshot path is not a directory: %s", cfg.Compare.Path)
	}
	return dir, nil
}
