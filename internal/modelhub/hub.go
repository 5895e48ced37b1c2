package modelhub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"accentid/internal/config"
	"accentid/internal/logging"
	"accentid/internal/services"
)

const (
	// ConfigFile holds the model's id2label mapping.
	ConfigFile = "config.json"
	// PreprocessorFile holds the feature extractor settings.
	PreprocessorFile = "preprocessor_config.json"

	lockFileName   = ".download.lock"
	partialSuffix  = ".partial"
	lockRetryDelay = 250 * time.Millisecond
)

// Artifacts are the on-disk files needed to build a classifier.
type Artifacts struct {
	Dir              string
	ConfigPath       string
	PreprocessorPath string
	ModelPath        string
}

// Hub downloads and caches model artifacts.
type Hub struct {
	client   *http.Client
	baseURL  string
	token    string
	cacheDir string
	localDir string
	modelID  string
	revision string
	onnxFile string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option customizes a Hub.
type Option func(*Hub)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(h *Hub) {
		if client != nil {
			h.client = client
		}
	}
}

// New builds a Hub for the configured model.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		client: &http.Client{},
		logger: logging.NewComponentLogger(logger, "modelhub"),
	}
	if cfg != nil {
		h.baseURL = strings.TrimRight(cfg.Model.HubURL, "/")
		h.token = cfg.Model.HubToken
		h.cacheDir = cfg.Paths.ModelCacheDir
		h.localDir = cfg.Model.LocalDir
		h.modelID = cfg.Model.ID
		h.revision = cfg.Model.Revision
		h.onnxFile = cfg.Model.ONNXFile
		h.timeout = cfg.ModelDownloadTimeout()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ModelID returns the configured model identifier.
func (h *Hub) ModelID() string { return h.modelID }

// Revision returns the configured model revision.
func (h *Hub) Revision() string { return h.revision }

// Dir returns the directory artifacts are read from.
func (h *Hub) Dir() string {
	if h.localDir != "" {
		return h.localDir
	}
	return filepath.Join(h.cacheDir, cacheName(h.modelID), sanitize(h.revision))
}

func (h *Hub) artifacts() Artifacts {
	dir := h.Dir()
	return Artifacts{
		Dir:              dir,
		ConfigPath:       filepath.Join(dir, ConfigFile),
		PreprocessorPath: filepath.Join(dir, PreprocessorFile),
		ModelPath:        filepath.Join(dir, filepath.FromSlash(h.onnxFile)),
	}
}

func (h *Hub) files() []string {
	return []string{ConfigFile, PreprocessorFile, h.onnxFile}
}

// Cached reports whether every artifact is already present locally.
func (h *Hub) Cached() (Artifacts, bool) {
	a := h.artifacts()
	for _, p := range []string{a.ConfigPath, a.PreprocessorPath, a.ModelPath} {
		if !fileExists(p) {
			return a, false
		}
	}
	return a, true
}

// Ensure returns local artifact paths, downloading any that are missing.
func (h *Hub) Ensure(ctx context.Context) (Artifacts, error) {
	if h.localDir != "" {
		a, ok := h.Cached()
		if !ok {
			return a, services.Wrap(services.ErrConfiguration, "modelhub", "local artifacts",
				fmt.Sprintf("%s must contain %s", h.localDir, strings.Join(h.files(), ", ")), nil)
		}
		return a, nil
	}
	if a, ok := h.Cached(); ok {
		h.logger.Debug("model artifacts cached", logging.String("dir", a.Dir))
		return a, nil
	}

	a := h.artifacts()
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return a, services.Wrap(services.ErrConfiguration, "modelhub", "create cache dir", a.Dir, err)
	}

	lock := flock.New(filepath.Join(a.Dir, lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return a, services.Wrap(services.ErrTimeout, "modelhub", "lock cache", a.Dir, err)
	}
	defer func() { _ = lock.Unlock() }()

	for _, name := range h.files() {
		dest := filepath.Join(a.Dir, filepath.FromSlash(name))
		if fileExists(dest) {
			continue
		}
		if err := h.download(ctx, name, dest); err != nil {
			return a, err
		}
	}
	return a, nil
}

// FileURL returns the registry URL of one artifact.
func (h *Hub) FileURL(name string) string {
	return h.baseURL + "/" + escapeID(h.modelID) + "/resolve/" + url.PathEscape(h.revision) + "/" + escapePath(name)
}

func (h *Hub) download(ctx context.Context, name, dest string) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	src := h.FileURL(name)
	logger := h.logger.With(logging.String("file", name))
	logger.Info("downloading model artifact", logging.String("url", src))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "modelhub", "download", name, err)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "modelhub", "download", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "modelhub", "download", fmt.Sprintf("%s: %s", name, resp.Status), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "modelhub", "download", fmt.Sprintf("%s: %s (check model.hub_token)", name, resp.Status), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return services.Wrap(services.ErrTransient, "modelhub", "download", fmt.Sprintf("%s: %s", name, resp.Status), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "modelhub", "download", name, err)
	}
	partial := dest + partialSuffix
	written, err := writeFile(partial, resp.Body, resp.ContentLength, contentDigest(resp.Header), logger)
	if err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrTransient, "modelhub", "download", name, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrTransient, "modelhub", "download", name, err)
	}
	logger.Info("model artifact stored", logging.String("path", dest), logging.Int64("bytes", written))
	return nil
}

// contentDigest returns the sha256 the registry advertises for LFS files, if any.
func contentDigest(h http.Header) string {
	for _, key := range []string{"X-Linked-Etag", "ETag"} {
		v := strings.Trim(strings.TrimPrefix(strings.TrimSpace(h.Get(key)), "W/"), `"`)
		if len(v) == 64 {
			if _, err := hex.DecodeString(v); err == nil {
				return strings.ToLower(v)
			}
		}
	}
	return ""
}

func writeFile(path string, body io.Reader, total int64, digest string, logger *slog.Logger) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	hasher := sha256.New()
	sampler := logging.NewProgressSampler(10, 0)
	reader := &progressReader{r: body, onRead: func(done int64) {
		if sampler.ShouldLog(done, total) {
			logger.Debug("model download progress", logging.Int64("bytes", done), logging.Int64("total", total))
		}
	}}
	written, err := io.Copy(io.MultiWriter(file, hasher), reader)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err == nil && total > 0 && written != total {
		err = fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	if err == nil && digest != "" {
		if got := hex.EncodeToString(hasher.Sum(nil)); got != digest {
			err = fmt.Errorf("sha256 mismatch: got %s, want %s", got, digest)
		}
	}
	return written, err
}

type progressReader struct {
	r      io.Reader
	done   int64
	onRead func(int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.onRead(p.done)
	}
	return n, err
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// cacheName turns "owner/name" into a single directory name.
func cacheName(id string) string {
	return sanitize(strings.ReplaceAll(id, "/", "--"))
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "..", "_")
	s = strings.ReplaceAll(s, string(os.PathSeparator), "_")
	if s == "" {
		return "_"
	}
	return s
}

func escapeID(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func escapePath(name string) string {
	parts := strings.Split(path.Clean(name), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
