package cmd

import (
	"github.com/spf13/cobra"
)

func newLaunchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Start the installed game",
		Long:  "Starts the configured executable from the install directory and returns without waiting for it to exit.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			svc, err := loadService()
			if err != nil {
				return err
			}

			return svc.LaunchInstalledGame(ctx)
		},
	}
}
