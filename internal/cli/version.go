package cli

import (
	"fmt"

	"github.com/protokollabs/protokol/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version, commit and build date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "protokol v%s\n", version.Resolve())
			fmt.Fprintf(out, "commit: %s\n", version.Commit)
			fmt.Fprintf(out, "built:  %s\n", version.Date)
			return nil
		},
	}
}
