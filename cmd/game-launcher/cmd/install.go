package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
	"github.com/oshokin/game-launcher/internal/service/game"
)

const progressBarWidth = 40

func newInstallCommand() *cobra.Command {
	var noProgress bool

	command := &cobra.Command{
		Use:   "install",
		Short: "Download and install the latest release",
		Long: `Resolves the latest release of the configured project, downloads the configured asset
and replaces the install directory with the archive contents.

The previous installation stays in place until the new one is fully extracted.
Interrupting with Ctrl+C aborts the download or extraction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			svc, err := loadService()
			if err != nil {
				return err
			}

			var emitter game.Emitter = game.EmitterFunc(func(_ string, p install.Progress) {
				logger.InfoKV(ctx, p.Status, "percentage", p.Percentage)
			})

			if !noProgress {
				// Keep informational entries from tearing the bar apart.
				if logger.Level() > zapcore.DebugLevel {
					previous := logger.Logger()
					logger.SetLogger(previous.WithOptions(logger.WithLevel(zapcore.WarnLevel)))

					defer logger.SetLogger(previous)
				}

				emitter = newBarEmitter(cmd.ErrOrStderr())
			}

			return svc.InstallLatestRelease(ctx, emitter)
		},
	}

	command.Flags().BoolVar(&noProgress, "no-progress", false, "log progress events instead of drawing a progress bar")

	return command
}

// barEmitter renders progress events as a terminal progress bar.
type barEmitter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newBarEmitter(w io.Writer) *barEmitter {
	if w == nil {
		w = os.Stderr
	}

	return &barEmitter{
		w: w,
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(install.StatusDownloadStarted),
			progressbar.OptionSetWidth(progressBarWidth),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(w)
			}),
		),
	}
}

// Emit moves the bar during download and prints phase changes as lines.
func (e *barEmitter) Emit(_ string, p install.Progress) {
	switch p.Status {
	case install.StatusDownloadComplete, install.StatusInstallComplete:
		_ = e.bar.Finish()
		_, _ = fmt.Fprintln(e.w, p.Status)
	default:
		_ = e.bar.Set(int(p.Percentage))
	}
}
