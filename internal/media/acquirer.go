package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// FetchError means a remote clip the project explicitly referenced could not
// be downloaded. Callers treat it as fatal: a video silently missing a clip
// is worse than a failed job.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("media download failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Acquirer downloads remote clips into a content-addressed local cache.
// The cache key is a hash of the URL, so a clip is fetched at most once;
// cached content is never re-validated within a job.
type Acquirer struct {
	cacheDir string
	client   *http.Client
}

func NewAcquirer(cacheDir string) *Acquirer {
	return &Acquirer{
		cacheDir: cacheDir,
		client: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Acquire returns the local path for rawURL, downloading it on first use.
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) (string, error) {
	sum := sha256.Sum256([]byte(rawURL))
	dest := filepath.Join(a.cacheDir, hex.EncodeToString(sum[:])+extensionFor(rawURL))

	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(a.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media cache dir: %w", err)
	}

	log.Printf("[Media] Downloading %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	// Write to a temp file first so a partial download never poisons the cache.
	tmp, err := os.CreateTemp(a.cacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move download into cache: %w", err)
	}

	return dest, nil
}

// extensionFor infers the file extension from the URL path, ignoring the
// query string. Unknown extensions default to .mp4.
func extensionFor(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	if ext := path.Ext(p); ext != "" {
		return ext
	}
	return ".mp4"
}
