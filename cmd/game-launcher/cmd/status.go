package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the game is installed and running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			svc, err := loadService()
			if err != nil {
				return err
			}

			status, err := svc.Status(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "install dir: %s\n", status.Dir)
			_, _ = fmt.Fprintf(out, "executable:  %s\n", status.Executable)
			_, _ = fmt.Fprintf(out, "installed:   %t\n", status.Installed)
			_, _ = fmt.Fprintf(out, "running:     %t\n", status.Running)

			return nil
		},
	}
}
