package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/game-launcher/internal/config"
)

var errConfigExists = errors.New("settings file already exists, use --force to overwrite")

func newInitCommand() *cobra.Command {
	var (
		cfg   config.Config
		force bool
	)

	command := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file",
		Long: `Writes a settings file with the given release feed coordinates.
Unset optional values receive their defaults, which are written out so they can be edited later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("%s: %w", configPath, errConfigExists)
				}
			}

			if err := config.Save(configPath, &cfg); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "settings written to %s\n", configPath)

			return nil
		},
	}

	flags := command.Flags()
	flags.StringVar(&cfg.Owner, "owner", "", "release feed owner")
	flags.StringVar(&cfg.Project, "project", "", "release feed project")
	flags.StringVar(&cfg.AssetName, "asset", "", "exact asset file name to install")
	flags.StringVar(&cfg.ExecutableName, "executable", "", "executable file name inside the archive")
	flags.StringVar(&cfg.GameSubdir, "subdir", config.DefaultGameSubdir, "install subdirectory under the data dir")
	flags.StringVar(&cfg.DataDir, "data-dir", "", "per-application data directory (default: user config dir)")
	flags.StringVar(&cfg.APIBaseURL, "api-base-url", "", "release feed API root, e.g. for GitHub Enterprise")
	flags.BoolVarP(&force, "force", "f", false, "overwrite an existing settings file")

	for _, name := range []string{"owner", "project", "asset", "executable"} {
		if err := command.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return command
}
