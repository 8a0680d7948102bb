// Package hub fetches datasets hosted on the Hugging Face Hub.
//
// The hub API is queried for the dataset's file listing, each file is
// downloaded through the resolve endpoint, and a metadata.json snapshot
// of the hub record is written next to the files.
package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/fetchers/archive"
	"github.com/allan-project/allan-cli/internal/logger"
)

var _ driven.Fetcher = (*Fetcher)(nil)

const (
	// DefaultBaseURL is the public Hugging Face endpoint.
	DefaultBaseURL = "https://huggingface.co"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 5 * time.Minute

	// DefaultRequestRate throttles hub requests per second.
	DefaultRequestRate = 4

	// MetadataFile is the snapshot written alongside the dataset files.
	MetadataFile = "metadata.json"

	copyChunkSize = 64 * 1024
)

// datasetInfo is the subset of the hub dataset record we consume.
type datasetInfo struct {
	ID           string    `json:"id"`
	SHA          string    `json:"sha"`
	LastModified time.Time `json:"lastModified"`
	Downloads    int64     `json:"downloads"`
	Likes        int64     `json:"likes"`
	Tags         []string  `json:"tags"`
	Siblings     []sibling `json:"siblings"`
}

type sibling struct {
	Filename string `json:"rfilename"`
	Size     int64  `json:"size"`
}

// metadata is what lands in metadata.json for later inspection.
type metadata struct {
	Dataset      string    `json:"dataset"`
	HubID        string    `json:"hub_id"`
	Revision     string    `json:"revision"`
	LastModified time.Time `json:"last_modified"`
	Downloads    int64     `json:"downloads"`
	Likes        int64     `json:"likes"`
	Tags         []string  `json:"tags"`
	Files        []string  `json:"files"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher downloads hub-hosted datasets file by file.
type Fetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithBaseURL points the fetcher at a different hub endpoint.
// Useful for testing against httptest servers.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a hub fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestRate), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Kind returns the source kind this fetcher serves.
func (f *Fetcher) Kind() domain.SourceKind {
	return domain.KindHub
}

// Fetch downloads every file of the hub dataset into destDir and writes
// a metadata.json snapshot. The dataset Source field holds the hub id,
// for example "sberquad" or "RussianNLP/russian_super_glue".
func (f *Fetcher) Fetch(
	ctx context.Context,
	ds domain.Dataset,
	destDir string,
	progress driven.Progress,
) (*driven.FetchResult, error) {
	info, err := f.datasetInfo(ctx, ds.Source)
	if err != nil {
		return nil, fmt.Errorf("querying hub for %s: %w", ds.Source, err)
	}
	if len(info.Siblings) == 0 {
		return nil, fmt.Errorf("%w: hub dataset %s lists no files", domain.ErrNotFound, ds.Source)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	var (
		total     int64
		fetched   int64
		filenames []string
	)
	for _, s := range info.Siblings {
		total += s.Size
	}

	hash := sha256.New()
	files := 0
	for _, s := range info.Siblings {
		if skipHubFile(s.Filename) {
			logger.Debug("skipping hub file %s", s.Filename)
			continue
		}
		n, err := f.downloadFile(ctx, ds.Source, s.Filename, destDir, hash, func(written int64) {
			if progress != nil {
				progress(fetched+written, total)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("downloading %s/%s: %w", ds.Source, s.Filename, err)
		}
		fetched += n
		files++
		filenames = append(filenames, s.Filename)
	}
	if files == 0 {
		return nil, fmt.Errorf("%w: hub dataset %s has only repository files", domain.ErrNotFound, ds.Source)
	}

	if err := f.writeMetadata(destDir, ds, info, filenames); err != nil {
		return nil, err
	}

	return &driven.FetchResult{
		Bytes:    fetched,
		Files:    files,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// datasetInfo fetches the hub record for a dataset id.
func (f *Fetcher) datasetInfo(ctx context.Context, id string) (*datasetInfo, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/datasets/%s", f.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var info datasetInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding hub response: %w", err)
	}
	return &info, nil
}

// downloadFile streams one repository file into destDir, feeding the
// running checksum and reporting per-file progress.
func (f *Fetcher) downloadFile(
	ctx context.Context,
	id, filename, destDir string,
	hash io.Writer,
	report func(written int64),
) (int64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/datasets/%s/resolve/main/%s", f.baseURL, id, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	// Listing filenames come from the server and must not escape destDir.
	target, err := archive.SafeJoin(destDir, filepath.FromSlash(filename))
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", filename, err)
	}
	defer out.Close()

	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("writing %s: %w", filename, err)
			}
			hash.Write(buf[:n])
			written += int64(n)
			report(written)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading body: %w", readErr)
		}
	}
}

// writeMetadata records the hub snapshot next to the downloaded files.
func (f *Fetcher) writeMetadata(destDir string, ds domain.Dataset, info *datasetInfo, files []string) error {
	meta := metadata{
		Dataset:      ds.Name,
		HubID:        info.ID,
		Revision:     info.SHA,
		LastModified: info.LastModified,
		Downloads:    info.Downloads,
		Likes:        info.Likes,
		Tags:         info.Tags,
		Files:        files,
		FetchedAt:    time.Now().UTC(),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	path := filepath.Join(destDir, MetadataFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// skipHubFile filters repository housekeeping files that are not part
// of the dataset payload.
func skipHubFile(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	switch base {
	case ".gitattributes", ".gitignore", "readme.md":
		return true
	}
	return strings.HasPrefix(name, ".")
}
