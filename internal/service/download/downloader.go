package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oshokin/game-launcher/internal/domain/install"
	"github.com/oshokin/game-launcher/internal/logger"
	"github.com/oshokin/game-launcher/internal/service/progress"
)

const (
	// DefaultChunkSize is the read buffer size; each filled read is one chunk.
	DefaultChunkSize = 32 * 1024

	// maxPrealloc caps buffer growth driven by a declared Content-Length.
	maxPrealloc = 1 << 30
)

// Downloader fetches a URL in chunks into a memory buffer.
// The whole asset is held in memory, so peak memory equals the asset size.
type Downloader struct {
	client    *http.Client
	chunkSize int
}

// Option configures the downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithChunkSize sets the size of a single read.
func WithChunkSize(size int) Option {
	return func(d *Downloader) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

// New creates a downloader using http.DefaultClient unless overridden.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:    http.DefaultClient,
		chunkSize: DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download fetches url and returns its full body.
//
// It reports 0% before reading, one event per chunk, and a single 100% event
// once the stream is drained. Without a declared length every chunk reports 0%.
// On failure the partial buffer is discarded.
func (d *Downloader) Download(ctx context.Context, url string, sink progress.Sink) ([]byte, error) {
	if sink == nil {
		sink = progress.Discard
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", install.ErrNetwork, url, err)
	}

	response, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: download %s: %w", install.ErrCanceled, url, ctx.Err())
		}

		return nil, fmt.Errorf("%w: download %s: %w", install.ErrNetwork, url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: download %s: %s", install.ErrNetwork, url, response.Status)
	}

	total := response.ContentLength
	logger.InfoKV(ctx, "Downloading asset", "url", url, "content_length", total)

	var buffer bytes.Buffer
	if total > 0 && total <= maxPrealloc {
		buffer.Grow(int(total))
	}

	sink.Report(install.Progress{Percentage: 0, Status: install.StatusDownloadStarted})

	if err = d.drain(ctx, response.Body, total, &buffer, sink); err != nil {
		return nil, err
	}

	sink.Report(install.Progress{Percentage: 100, Status: install.StatusDownloadComplete})
	logger.InfoKV(ctx, "Download complete", "bytes", buffer.Len())

	return buffer.Bytes(), nil
}

// drain copies body into buffer chunk by chunk, reporting after each one.
func (d *Downloader) drain(
	ctx context.Context,
	body io.Reader,
	total int64,
	buffer *bytes.Buffer,
	sink progress.Sink,
) error {
	var (
		chunk    = make([]byte, d.chunkSize)
		received int64
	)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: download interrupted after %d bytes: %w", install.ErrCanceled, received, err)
		}

		n, err := body.Read(chunk)
		if n > 0 {
			buffer.Write(chunk[:n])
			received += int64(n)

			sink.Report(install.Downloading(percentage(received, total)))
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: download interrupted after %d bytes: %w", install.ErrCanceled, received, ctx.Err())
			}

			return fmt.Errorf("%w: read chunk after %d bytes: %w", install.ErrStream, received, err)
		}
	}
}

// percentage is received/total*100, or 0 when the total is unknown.
// Bodies longer than declared are clamped at 100.
func percentage(received, total int64) float64 {
	if total <= 0 {
		return 0
	}

	pct := float64(received) / float64(total) * 100
	if pct > 100 {
		return 100
	}

	return pct
}
