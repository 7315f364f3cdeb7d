// Package rulefetch downloads published rule definition files into a local
// rules directory. It runs strictly before the engine: rule loading itself
// stays synchronous and local, fetching is an explicit, separate step.
package rulefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vk/modplango/internal/ctxlog"
)

// defaultFiles are the rule category files published alongside each other
// under one base URL.
var defaultFiles = []string{
	"dependencies.json",
	"incompatibilities.json",
	"order.json",
}

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxInterval = 15 * time.Second
	defaultMaxRetries  = 4
)

// Fetcher downloads rule files from a base URL into a directory.
type Fetcher struct {
	client     *http.Client
	baseURL    string
	dir        string
	files      []string
	maxRetries int
}

// Option adjusts a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the default HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithFiles replaces the default rule file names.
func WithFiles(files ...string) Option {
	return func(f *Fetcher) { f.files = files }
}

// WithMaxRetries caps the retry attempts per file.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) { f.maxRetries = n }
}

// New returns a fetcher for the given base URL and destination directory.
func New(baseURL, dir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		dir:        dir,
		files:      defaultFiles,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll downloads every rule file. A file that still fails after all
// retries aborts the whole fetch: a rules directory with a stale category
// mixed into a fresh one is worse than keeping the previous state.
func (f *Fetcher) FetchAll(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory %s: %w", f.dir, err)
	}

	logger := ctxlog.FromContext(ctx)
	for _, name := range f.files {
		if err := f.fetchFile(ctx, name); err != nil {
			return err
		}
		logger.Info("Rule file fetched.", "file", name, "dir", f.dir)
	}
	return nil
}

// fetchFile downloads one file with exponential backoff, writing to a
// temporary file and renaming into place so readers never observe a
// partial download.
func (f *Fetcher) fetchFile(ctx context.Context, name string) error {
	logger := ctxlog.FromContext(ctx)
	url := f.baseURL + "/" + name

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = defaultMaxInterval

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := backoffCfg.NextBackOff()
			logger.Warn("Retrying rule file download.", "url", url, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}

		if lastErr = f.download(ctx, url, name); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to fetch %s: %w", url, lastErr)
}

func (f *Fetcher) download(ctx context.Context, url, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(f.dir, name))
}
