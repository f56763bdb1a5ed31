package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v30/github"
	"golang.org/x/oauth2"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
)

// Resolver finds the download location of a named asset in the latest release.
type Resolver interface {
	ResolveAsset(ctx context.Context, owner, project, assetName string) (*install.Asset, error)
}

// Client wraps the go-github API client with the launcher's error kinds.
type Client struct {
	// api is the underlying GitHub REST client.
	api *github.Client

	// callTimeout bounds a single metadata request.
	callTimeout time.Duration
}

// settings collects option values before the API client is built.
type settings struct {
	baseURL    string
	token      string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures client behaviour.
type Option func(*settings)

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise or a test server.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// WithToken authenticates requests with a static OAuth2 token.
func WithToken(token string) Option {
	return func(s *settings) {
		s.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(s *settings) {
		s.userAgent = userAgent
	}
}

// WithCallTimeout bounds every metadata request.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the transport used for feed requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// NewClient creates a feed client. Without a token requests are anonymous
// and subject to the feed's unauthenticated rate limit.
func NewClient(opts ...Option) (*Client, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if s.token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.token}))
	}

	api := github.NewClient(httpClient)

	if s.baseURL != "" {
		baseURL := s.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}

		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse feed base URL: %w", err)
		}

		api.BaseURL = u
	}

	if s.userAgent != "" {
		api.UserAgent = s.userAgent
	}

	return &Client{
		api:         api,
		callTimeout: s.timeout,
	}, nil
}

// ResolveAsset returns the first asset of the latest release whose name equals assetName.
// The comparison is exact and case-sensitive, and assets are scanned in feed order.
func (c *Client) ResolveAsset(ctx context.Context, owner, project, assetName string) (*install.Asset, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	logger.DebugKV(ctx, "Fetching latest release", "owner", owner, "project", project)

	release, response, err := c.api.Repositories.GetLatestRelease(callCtx, owner, project)
	if err != nil {
		return nil, classify(ctx, owner, project, response, err)
	}

	if release.Assets == nil {
		return nil, fmt.Errorf("%w: no assets found in release %s", install.ErrParse, release.GetTagName())
	}

	for _, asset := range release.Assets {
		if asset.GetName() != assetName {
			continue
		}

		downloadURL := asset.GetBrowserDownloadURL()
		if downloadURL == "" {
			return nil, fmt.Errorf("%w: asset %q has no download URL", install.ErrParse, assetName)
		}

		logger.InfoKV(ctx, "Resolved release asset",
			"release", release.GetTagName(), "asset", assetName, "size", asset.GetSize())

		return &install.Asset{
			Name:        assetName,
			DownloadURL: downloadURL,
			Size:        int64(asset.GetSize()),
			ReleaseTag:  release.GetTagName(),
		}, nil
	}

	return nil, fmt.Errorf("%w: asset %q in latest release of %s/%s", install.ErrNotFound, assetName, owner, project)
}

// classify maps go-github failures onto the launcher's error kinds.
func classify(ctx context.Context, owner, project string, response *github.Response, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: fetch release info: %w", install.ErrCanceled, err)
	}

	var (
		errorResponse *github.ErrorResponse
		rateLimit     *github.RateLimitError
		abuseLimit    *github.AbuseRateLimitError
		accepted      *github.AcceptedError
	)

	switch {
	case errors.As(err, &errorResponse), errors.As(err, &rateLimit),
		errors.As(err, &abuseLimit), errors.As(err, &accepted):
		return fmt.Errorf("%w: failed to fetch release info for %s/%s: %s",
			install.ErrNetwork, owner, project, statusOf(response))
	case response != nil && response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices:
		// The request succeeded, so the body is what could not be decoded.
		return fmt.Errorf("%w: decode release info: %w", install.ErrParse, err)
	default:
		return fmt.Errorf("%w: fetch release info for %s/%s: %w", install.ErrNetwork, owner, project, err)
	}
}

func statusOf(response *github.Response) string {
	if response == nil || response.Response == nil {
		return "no response"
	}

	return response.Status
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

var _ Resolver = (*Client)(nil)
