package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
)

const (
	defaultCacheDir     = "./cache/ics-cache"
	defaultFetchTimeout = 15 * time.Second
	maxBodyBytes        = 10 << 20
	userAgent           = "calgrid/1 (+ics import)"
)

// Source is one subscribed feed.
type Source struct {
	ID  string
	URL string
}

// SourcesFrom converts the configured subscriptions, dropping entries
// without a URL.
func SourcesFrom(cfgs []config.ICSConfig) []Source {
	out := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		out = append(out, Source{ID: c.SourceID(), URL: c.URL})
	}
	return out
}

// FetchResult is the body of one feed, fresh or reused from the cache.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// StatusError is returned for a non-2xx/304 response with nothing cached
// to fall back to.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string { return "ics: unexpected status " + e.Status }

// ErrNotModifiedWithoutCache is returned when the server answers 304 but
// the cached body is gone.
var ErrNotModifiedWithoutCache = errors.New("ics: 304 Not Modified but no cached body")

// cacheMeta is stored next to the cached body of one URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads feeds with conditional requests, keeping the last good
// body on disk so a flaky server does not empty the calendar.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string, opts ...FetcherOption) *Fetcher {
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		cacheDir: cacheDir,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll fetches every source in order. Failed sources are logged and
// reported in the error slice; results only hold sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne fetches src, sending If-None-Match / If-Modified-Since from the
// previous response. On network errors and unexpected statuses the cached
// body is returned when one exists.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("ics: source URL is empty")
	}

	dir := f.cacheDirFor(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FetchResult{}, fmt.Errorf("ics: cache dir: %w", err)
	}
	meta, _ := readMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	fallback := func(reason error, kv ...any) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, reason
		}
		appLog.Error("ics fetch degraded, using cached body", reason,
			append([]any{"id", src.ID, "url", redactURL(src.URL)}, kv...)...)
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("ics: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, ErrNotModifiedWithoutCache
		}
		appLog.Info("ics fetch not modified", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fallback(fmt.Errorf("ics: read body: %w", err))
		}
		next := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := writeCache(dir, next, body); err != nil {
			// The fresh body is still good; only the next request loses its validators.
			appLog.Error("ics cache save failed", err, "id", src.ID)
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	default:
		return fallback(&StatusError{Code: resp.StatusCode, Status: resp.Status}, "status", resp.StatusCode)
	}
}

// cacheDirFor maps a URL to its own cache directory.
func (f *Fetcher) cacheDirFor(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func readMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeCache(dir string, meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a feed URL for logging; private
// calendar URLs carry their secret in the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
