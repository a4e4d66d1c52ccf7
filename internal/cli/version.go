package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// buildInfo is what the version command reports
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (b buildInfo) write(w io.Writer) {
	fmt.Fprintf(w, "vrtnorris %s\n", b.Version)
	fmt.Fprintf(w, "  Commit:     %s\n", b.Commit)
	fmt.Fprintf(w, "  Built:      %s\n", b.BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", b.GoVersion)
	fmt.Fprintf(w, "  OS/Arch:    %s\n", b.Platform)
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var short, asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentBuild()
			out := cmd.OutOrStdout()
			switch {
			case short:
				fmt.Fprintln(out, info.Version)
			case asJSON:
				return json.NewEncoder(out).Encode(info)
			default:
				info.write(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print build information as JSON")

	return cmd
}
