package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the vrtnorris root command with every subcommand
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vrtnorris",
		Short: "Visual regression testing for screenshot suites",
		Long: `vrtnorris compares the screenshots of a test run against a baseline stored
on an artifact service, reports what passed, failed, is new or went missing,
and publishes screenshots and diff images for review.

Settings come from the config file, then VRT_* and INPUT_* environment
variables, then flags.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewDownloadCommand())
	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
