package game

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/game-launcher/internal/config"
	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
	"github.com/oshokin/game-launcher/internal/repository/feed"
	"github.com/oshokin/game-launcher/internal/service/download"
	"github.com/oshokin/game-launcher/internal/service/installer"
	"github.com/oshokin/game-launcher/internal/service/launcher"
	"github.com/oshokin/game-launcher/internal/service/progress"
)

// EventName is the name of the progress event delivered to the host.
const EventName = "download_progress"

var errConfigRequired = errors.New("configuration is required")

// Emitter delivers named events to the host shell.
type Emitter interface {
	Emit(event string, payload install.Progress)
}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(event string, payload install.Progress)

// Emit calls f(event, payload).
func (f EmitterFunc) Emit(event string, payload install.Progress) {
	f(event, payload)
}

// Status describes the installation as seen by the host.
type Status struct {
	// Installed is true when the executable exists in the install directory.
	Installed bool
	// Running is true when a process with the executable's name is alive.
	Running bool
	// Dir is the install directory.
	Dir string
	// Executable is the expected executable path.
	Executable string
}

// Service wires the install pipeline for one configuration.
type Service struct {
	cfg        *config.Config
	resolver   feed.Resolver
	downloader *download.Downloader
	installer  *installer.Installer
	launcher   *launcher.Launcher
}

// Option customizes the service.
type Option func(*options)

type options struct {
	httpClient *http.Client
	resolver   feed.Resolver
}

// WithHTTPClient sets the HTTP client used for feed requests and downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithResolver replaces the release feed resolver.
func WithResolver(resolver feed.Resolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// New creates a service from validated settings.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	resolver := o.resolver
	if resolver == nil {
		feedOptions := []feed.Option{
			feed.WithBaseURL(cfg.APIBaseURL),
			feed.WithToken(cfg.Token),
			feed.WithUserAgent(cfg.UserAgent),
			feed.WithCallTimeout(cfg.Timeout),
		}

		if o.httpClient != nil {
			feedOptions = append(feedOptions, feed.WithHTTPClient(o.httpClient))
		}

		client, err := feed.NewClient(feedOptions...)
		if err != nil {
			return nil, err
		}

		resolver = client
	}

	return &Service{
		cfg:        cfg,
		resolver:   resolver,
		downloader: download.New(download.WithHTTPClient(o.httpClient)),
		installer:  installer.New(),
		launcher:   launcher.New(),
	}, nil
}

// InstallLatestRelease resolves, downloads and installs the configured asset.
// Progress events are emitted to emitter zero or more times; on success the
// last one is the 100% installation event.
func (s *Service) InstallLatestRelease(ctx context.Context, emitter Emitter) error {
	ctx = logger.WithKV(logger.WithName(ctx, "install"), "install_id", uuid.NewString())

	target := s.cfg.Target()

	running, err := s.launcher.Running(s.cfg.ExecutableName)
	if err != nil {
		logger.WarnKV(ctx, "Could not check for a running game", "error", err)
	}

	if running {
		return fmt.Errorf("%w: %s is running, close it before installing", install.ErrFilesystem, s.cfg.ExecutableName)
	}

	unlock, err := installer.Lock(ctx, target)
	if err != nil {
		return err
	}

	defer unlock()

	reporter := progress.NewReporter(s.cfg.ProgressBuffer)

	var group errgroup.Group

	group.Go(func() error {
		progress.Observe(reporter, func(p install.Progress) {
			if emitter != nil {
				emitter.Emit(EventName, p)
			}
		})

		return nil
	})

	group.Go(func() error {
		defer reporter.Close()

		return s.install(ctx, target, reporter)
	})

	if err = group.Wait(); err != nil {
		logger.ErrorKV(ctx, "Installation failed", "error", err)

		return err
	}

	return nil
}

// install runs the pipeline stages in order, feeding each stage's output to the next.
func (s *Service) install(ctx context.Context, target install.Target, sink progress.Sink) error {
	asset, err := s.resolver.ResolveAsset(ctx, s.cfg.Owner, s.cfg.Project, s.cfg.AssetName)
	if err != nil {
		return err
	}

	if v := asset.Version(); v != nil {
		logger.InfoKV(ctx, "Installing release", "version", v.String(), "asset", asset.Name)
	} else {
		logger.InfoKV(ctx, "Installing release", "tag", asset.ReleaseTag, "asset", asset.Name)
	}

	archive, err := s.downloader.Download(ctx, asset.DownloadURL, sink)
	if err != nil {
		return err
	}

	return s.installer.Install(ctx, archive, target, sink)
}

// LaunchInstalledGame starts the installed executable.
func (s *Service) LaunchInstalledGame(ctx context.Context) error {
	ctx = logger.WithName(ctx, "launch")

	return s.launcher.Launch(ctx, s.cfg.Target(), s.cfg.ExecutableName)
}

// Status reports whether the game is installed and running.
func (s *Service) Status(_ context.Context) (*Status, error) {
	target := s.cfg.Target()
	executable := target.ExecutablePath(s.cfg.ExecutableName)

	status := &Status{
		Dir:        target.Dir(),
		Executable: executable,
	}

	info, err := os.Stat(executable)

	switch {
	case err == nil:
		status.Installed = !info.IsDir()
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: inspect %s: %w", install.ErrFilesystem, executable, err)
	}

	running, err := s.launcher.Running(s.cfg.ExecutableName)
	if err != nil {
		return nil, err
	}

	status.Running = running

	return status, nil
}
