// Package url fetches datasets published as direct HTTP downloads.
package url

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/fetchers/archive"
	"github.com/allan-project/allan-cli/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

const (
	// DefaultMaxRetries is the number of attempts per download.
	DefaultMaxRetries = 3

	// DefaultTimeout bounds a single download attempt.
	DefaultTimeout = 5 * time.Minute

	// DefaultRequestRate throttles outgoing requests per second.
	DefaultRequestRate = 2

	// copyChunkSize is the copy buffer size for progress reporting.
	copyChunkSize = 64 * 1024

	// retryBaseDelay is the backoff unit between attempts.
	retryBaseDelay = 2 * time.Second
)

// Fetcher downloads a single artifact via HTTP GET and extracts archives.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client. Useful for testing.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxRetries sets the attempt count per download.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxRetries = n
		}
	}
}

// WithRequestRate sets the outgoing request rate per second.
func WithRequestRate(rps float64) Option {
	return func(f *Fetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a URL fetcher with the given options.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestRate), 1),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Kind returns the source kind this fetcher serves.
func (f *Fetcher) Kind() domain.SourceKind {
	return domain.KindURL
}

// Fetch downloads the dataset artifact into destDir.
// Archives are extracted; plain files are written as-is.
func (f *Fetcher) Fetch(
	ctx context.Context,
	ds domain.Dataset,
	destDir string,
	progress driven.Progress,
) (*driven.FetchResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	filename := artifactName(ds)
	tmpFile := filepath.Join(destDir, "."+filename+".part")
	defer os.Remove(tmpFile)

	var (
		bytes    int64
		checksum string
		err      error
	)
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		bytes, checksum, err = f.download(ctx, ds.Source, tmpFile, progress)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("download attempt %d/%d for %s failed: %v", attempt, f.maxRetries, ds.Name, err)
		if attempt < f.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBaseDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", ds.Source, err)
	}

	result := &driven.FetchResult{Bytes: bytes, Checksum: checksum}

	// The URL basename can reveal an archive even when the catalog entry
	// records the content format, e.g. a GitHub master.zip of CSV files.
	format := ds.Format
	if !format.IsArchive() {
		if detected, ok := archive.DetectFormat(filename); ok {
			format = detected
		}
	}

	if format.IsArchive() {
		files, err := archive.Extract(tmpFile, format, destDir)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", filename, err)
		}
		result.Files = files
		return result, nil
	}

	final := filepath.Join(destDir, filename)
	if err := os.Rename(tmpFile, final); err != nil {
		return nil, fmt.Errorf("placing %s: %w", filename, err)
	}
	result.Files = 1
	return result, nil
}

// download performs one GET attempt, writing to path and hashing the body.
func (f *Fetcher) download(
	ctx context.Context,
	rawURL, path string,
	progress driven.Progress,
) (int64, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, "", err
	}

	total := f.contentLength(ctx, rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	if total == 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, "", fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	hash := sha256.New()
	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, "", fmt.Errorf("writing file: %w", err)
			}
			hash.Write(buf[:n])
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, "", fmt.Errorf("reading body: %w", readErr)
		}
	}

	return written, hex.EncodeToString(hash.Sum(nil)), nil
}

// contentLength asks for the artifact size via HEAD. Best effort; a
// failing HEAD just disables the progress total.
func (f *Fetcher) contentLength(ctx context.Context, rawURL string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.ContentLength < 0 {
		return 0
	}
	return resp.ContentLength
}

// artifactName derives the downloaded filename from the source URL,
// falling back to "<name>.<format>" when the URL has no usable basename.
func artifactName(ds domain.Dataset) string {
	if u, err := neturl.Parse(ds.Source); err == nil {
		base := path.Base(u.Path)
		if base != "" && base != "." && base != "/" && path.Ext(base) != "" {
			return base
		}
	}
	ext := string(ds.Format)
	if ext == "" {
		ext = "bin"
	}
	return ds.Name + "." + ext
}
