package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/version"
)

// Config holds the release feed coordinates and install layout consumed by the launcher.
type Config struct {
	// Owner is the release feed owner (GitHub user or organization).
	Owner string `yaml:"owner"`
	// Project is the repository whose latest release is installed.
	Project string `yaml:"project"`
	// AssetName is the exact, case-sensitive file name of the release asset.
	AssetName string `yaml:"asset_name"`
	// ExecutableName is the file launched from the install directory.
	ExecutableName string `yaml:"executable_name"`
	// GameSubdir is the directory under DataDir that holds the installed game.
	GameSubdir string `yaml:"game_subdir"`
	// DataDir is the per-application data directory. Defaults to the user config dir.
	DataDir string `yaml:"data_dir"`
	// APIBaseURL overrides the release feed API root, e.g. for GitHub Enterprise.
	APIBaseURL string `yaml:"api_base_url,omitempty"`
	// Token authenticates feed requests. Falls back to $GITHUB_TOKEN.
	Token string `yaml:"token,omitempty"`
	// UserAgent is sent with every feed request.
	UserAgent string `yaml:"user_agent"`
	// Timeout bounds the release metadata request. Downloads are not bounded.
	Timeout time.Duration `yaml:"timeout"`
	// ProgressBuffer is the capacity of the progress event channel.
	ProgressBuffer int `yaml:"progress_buffer"`
	// LogLevel is the minimum level of log entries.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "game-launcher-settings.yaml"

	// AppID names the launcher's directory under the user config dir.
	AppID = "com.oshokin.game-launcher"

	// DefaultGameSubdir is the install subdirectory under the data dir.
	DefaultGameSubdir = "game"

	// DefaultUserAgent is the product token of the User-Agent sent to the release feed.
	DefaultUserAgent = "GameLauncher"

	// DefaultTimeout is the default duration for release metadata requests.
	DefaultTimeout = 30 * time.Second

	// DefaultProgressBuffer is the default capacity of the progress channel.
	DefaultProgressBuffer = 64

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// tokenEnv is consulted when no token is configured.
	tokenEnv = "GITHUB_TOKEN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory setting is empty.
	errFieldRequired = errors.New("setting must be provided")
	// errInvalidSubdir is returned when the game subdirectory is not a single local name.
	errInvalidSubdir = errors.New("game_subdir must be a single directory name")
	// errInvalidExecutable is returned when the executable is not a plain file name.
	errInvalidExecutable = errors.New("executable_name must be a file inside the game directory")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	// The token is a secret and comes from the environment when not set explicitly.
	persisted := *cfg
	if persisted.Token == os.Getenv(tokenEnv) {
		persisted.Token = ""
	}

	data, err := yaml.Marshal(&persisted)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	required := []struct {
		name  string
		value string
	}{
		{"owner", settings.Owner},
		{"project", settings.Project},
		{"asset_name", settings.AssetName},
		{"executable_name", settings.ExecutableName},
	}

	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s: %w", field.name, errFieldRequired)
		}
	}

	if settings.GameSubdir == "" {
		settings.GameSubdir = DefaultGameSubdir
	}

	if !isSingleElement(settings.GameSubdir) {
		return fmt.Errorf("%q: %w", settings.GameSubdir, errInvalidSubdir)
	}

	if !filepath.IsLocal(settings.ExecutableName) {
		return fmt.Errorf("%q: %w", settings.ExecutableName, errInvalidExecutable)
	}

	if settings.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve data directory: %w", err)
		}

		settings.DataDir = filepath.Join(base, AppID)
	}

	if settings.APIBaseURL != "" {
		if _, err := url.ParseRequestURI(settings.APIBaseURL); err != nil {
			return fmt.Errorf("invalid api base URL: %w", err)
		}
	}

	if settings.Token == "" {
		settings.Token = os.Getenv(tokenEnv)
	}

	if settings.UserAgent == "" {
		settings.UserAgent = version.UserAgent(DefaultUserAgent)
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.ProgressBuffer <= 0 {
		settings.ProgressBuffer = DefaultProgressBuffer
	}

	return nil
}

// Target returns the install target described by the settings.
func (c *Config) Target() install.Target {
	return install.Target{
		Root:   c.DataDir,
		Subdir: c.GameSubdir,
	}
}

// isSingleElement reports whether name is one local path element.
func isSingleElement(name string) bool {
	return filepath.IsLocal(name) && filepath.Base(name) == name && name != "."
}
