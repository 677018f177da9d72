package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// buildInfo is stamped into the binary with -ldflags.
type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b buildInfo) String() string {
	return fmt.Sprintf("covreport %s (commit %s, built %s, %s %s/%s)",
		b.Version, b.Commit, b.Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func newVersionCommand(info buildInfo) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "print the covreport build information",
		Example: "covreport version --short",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print the version number only")
	return cmd
}
