// Package feed loads the patch and software feeds from disk or over HTTP and
// turns them into canonical rows.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// maxFeedBytes bounds how much of a feed response is read.
const maxFeedBytes = 64 << 20

// Fetcher retrieves the raw bytes of a feed.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// HTTPFetcher fetches feeds over HTTP. Responses are never served from a
// cache: every request carries Cache-Control: no-store, and with CacheBust
// set a t=<unix millis> query parameter as well.
type HTTPFetcher struct {
	Client    *http.Client
	CacheBust bool
	Now       func() time.Time
}

// NewHTTPFetcher returns an HTTPFetcher whose client gives up after timeout.
func NewHTTPFetcher(timeout time.Duration, cacheBust bool) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		CacheBust: cacheBust,
		Now:       time.Now,
	}
}

// Fetch issues a GET for source and returns the body of a 2xx response.
// Other statuses are reported as *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	target := source
	if f.CacheBust {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("invalid feed URL %q: %w", source, err)
		}
		q := u.Query()
		q.Set("t", strconv.FormatInt(f.now().UnixMilli(), 10))
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: source, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", source, err)
	}
	return body, nil
}

func (f *HTTPFetcher) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// FileFetcher reads feeds from the local filesystem.
type FileFetcher struct{}

// Fetch reads the file at source.
func (FileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}
	return data, nil
}

// SourceFetcher sends http(s) sources to HTTP and everything else to File.
type SourceFetcher struct {
	HTTP Fetcher
	File Fetcher
}

// NewSourceFetcher returns a SourceFetcher backed by NewHTTPFetcher and FileFetcher.
func NewSourceFetcher(timeout time.Duration, cacheBust bool) *SourceFetcher {
	return &SourceFetcher{
		HTTP: NewHTTPFetcher(timeout, cacheBust),
		File: FileFetcher{},
	}
}

// Fetch dispatches on the scheme of source.
func (f *SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if IsRemote(source) {
		return f.HTTP.Fetch(ctx, source)
	}
	return f.File.Fetch(ctx, source)
}

// IsRemote reports whether source is an http or https URL.
func IsRemote(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
