package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/vrtnorris/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
	cmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "also write logs to file")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFormat, "log-format", "", "log format: text, json, github")
	cmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// CommandFlags holds the flags shared by the run, compare, download and
// upload commands. Only flags set on the command line override the
// configuration.
type CommandFlags struct {
	// Comparison
	Path                string
	Baseline            string
	Threshold           float64
	PixelThreshold      float64
	IncludeAntiAliasing bool
	OutputDir           string

	// Artifact service
	APIURL           string
	APIKey           string
	Repository       string
	BaselineAlias    string
	ScreenshotsAlias string
	DiffsAlias       string
	UploadResults    bool

	// Transfers
	Parallel  int
	Retries   int
	Bandwidth string
	Exclude   []string

	// Output
	Output           string
	ReportFile       string
	Summary          bool
	SummaryImages    string
	FailOnDifference bool
	NoProgress       bool
}

var cmdFlags CommandFlags

func addCompareFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cmdFlags.Path, "path", "p", "", "directory of current screenshots (default ./screenshots)")
	cmd.Flags().Float64VarP(&cmdFlags.Threshold, "threshold", "t", 0, "max differing pixels in percent, 0-100 (default 0.1)")
	cmd.Flags().Float64Var(&cmdFlags.PixelThreshold, "pixel-threshold", 0, "per-pixel color tolerance, 0-1 (default 0.1)")
	cmd.Flags().BoolVar(&cmdFlags.IncludeAntiAliasing, "include-anti-aliasing", false, "count anti-aliased pixels as differences")
	cmd.Flags().StringVar(&cmdFlags.OutputDir, "output-dir", "", "directory for diff images (default ./screenshot-diffs)")
}

func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cmdFlags.APIURL, "api-url", "", "artifact service base URL")
	cmd.Flags().StringVar(&cmdFlags.APIKey, "api-key", "", "artifact service API key (prefer VRT_API_KEY)")
	cmd.Flags().StringVar(&cmdFlags.Repository, "repository", "", "repository as owner/name (default from GITHUB_REPOSITORY)")
}

func addTransferFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cmdFlags.Parallel, "parallel", 0, "number of concurrent transfers (default 10)")
	cmd.Flags().IntVar(&cmdFlags.Retries, "retries", 0, "retries per file after the first attempt (default 2)")
	cmd.Flags().StringVarP(&cmdFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringSliceVar(&cmdFlags.Exclude, "exclude", []string{}, "glob patterns excluded from uploads")
	cmd.Flags().BoolVar(&cmdFlags.NoProgress, "no-progress", false, "disable transfer progress")
}

func addBaselineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cmdFlags.BaselineAlias, "baseline-alias", "a", "", "alias of the baseline deployment (e.g. production)")
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&cmdFlags.UploadResults, "upload-results", true, "publish screenshots and diffs when there are failures or new screenshots")
	cmd.Flags().StringVar(&cmdFlags.ScreenshotsAlias, "screenshots-alias", "", "alias for uploaded screenshots (default screenshots-pr-N or screenshots-sha-SHA)")
	cmd.Flags().StringVar(&cmdFlags.DiffsAlias, "diffs-alias", "", "alias for uploaded diffs (default screenshot-diffs-pr-N or screenshot-diffs-sha-SHA)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cmdFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&cmdFlags.ReportFile, "report-file", "", "JSON report path (default vrt-report.json)")
	cmd.Flags().BoolVar(&cmdFlags.FailOnDifference, "fail-on-difference", true, "exit non-zero when screenshots fail or go missing")
}

func addSummaryFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&cmdFlags.Summary, "summary", true, "append a Markdown summary to $GITHUB_STEP_SUMMARY")
	cmd.Flags().StringVar(&cmdFlags.SummaryImages, "summary-images", "", "embed images in the summary: auto, true, false")
}
