package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/fpintake/cmd/fpintake/internal/format"
	"github.com/vulntor/fpintake/pkg/version"
)

// NewVersionCommand prints build information.
func NewVersionCommand(cliExecutable string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()

			if f := format.FromCommand(cmd); f.Mode() != format.ModeTable {
				return f.PrintData(info)
			}

			fmt.Fprintf(out, "%s version: %s\n", cliExecutable, info.Version)
			if short {
				return nil
			}
			fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			fmt.Fprintf(out, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			if !info.Release {
				fmt.Fprintln(out, "Development build")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().StringP("output", "o", "table", "Output format: table | json | yaml")

	return cmd
}
