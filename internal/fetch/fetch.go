// Package fetch downloads remote media into request-scoped temporary files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"accentid/internal/config"
	"accentid/internal/logging"
)

// ChunkSize is the read size used while streaming a response body to disk.
const ChunkSize = 8192

// Suffix is the container-agnostic extension given to fetched files.
const Suffix = ".media"

// Error reports a transport, status, or write failure while retrieving a URL.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrTooLarge is wrapped when a body exceeds the configured byte ceiling.
var ErrTooLarge = errors.New("response exceeds maximum size")

// Fetcher streams HTTP(S) resources to temporary files.
type Fetcher struct {
	client    *http.Client
	tempDir   string
	userAgent string
	maxBytes  int64
	timeout   time.Duration
	logger    *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// New builds a Fetcher from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		tempDir: os.TempDir(),
		logger:  logging.NewComponentLogger(logger, "fetch"),
	}
	if cfg != nil {
		if cfg.Paths.TempDir != "" {
			f.tempDir = cfg.Paths.TempDir
		}
		f.userAgent = cfg.Fetch.UserAgent
		f.maxBytes = cfg.Fetch.MaxBytes
		f.timeout = cfg.FetchTimeout()
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url into a new temporary file and returns its path. The
// caller owns the file. On failure no file remains.
func (f *Fetcher) Fetch(ctx context.Context, url string) (path string, err error) {
	logger := logging.WithContext(ctx, f.logger)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: url, StatusCode: resp.StatusCode}
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return "", &Error{URL: url, Err: fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, resp.ContentLength, f.maxBytes)}
	}

	file, err := os.CreateTemp(f.tempDir, "accentid-*"+Suffix)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("create temp file: %w", err)}
	}
	succeeded := false
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &Error{URL: url, Err: fmt.Errorf("close temp file: %w", cerr)}
		}
		// Also runs while a panic unwinds, before the path reaches the caller.
		if err != nil || !succeeded {
			_ = os.Remove(file.Name())
			path = ""
		}
	}()

	started := time.Now()
	written, err := f.copy(logger, file, resp.Body, resp.ContentLength)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	succeeded = true

	logger.Info("media downloaded",
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("content_type", resp.Header.Get("Content-Type")),
	)
	return file.Name(), nil
}

// copy streams body to dst in ChunkSize reads, logging sampled progress.
func (f *Fetcher) copy(logger *slog.Logger, dst io.Writer, body io.Reader, total int64) (int64, error) {
	sampler := logging.NewProgressSampler(10, 0)
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if f.maxBytes > 0 && written+int64(n) > f.maxBytes {
				return written, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, f.maxBytes)
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write temp file: %w", werr)
			}
			written += int64(n)
			if sampler.ShouldLog(written, total) {
				logger.Debug("download progress", logging.Int64("bytes", written), logging.Int64("total", total))
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read body: %w", rerr)
		}
	}
}
