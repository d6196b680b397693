package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/updater/internal/update"
)

// versionInfo describes this build.
type versionInfo struct {
	Version  string `json:"version" yaml:"version"`
	Commit   string `json:"commit" yaml:"commit"`
	Date     string `json:"date" yaml:"date"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

// RenderText prints the version the way --version does, plus build details.
func (v versionInfo) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "updater version %s\n  commit:   %s\n  built:    %s\n  platform: %s\n",
		v.Version, v.Commit, v.Date, v.Platform)
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the updater version, commit, build date and platform.

Examples:
  updater version
  updater version -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildInfo
			info.Platform = update.Detect().String()
			return writeOutput(cmd.OutOrStdout(), info)
		},
	}
}
