package url

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

func testFetcher(opts ...Option) *Fetcher {
	base := []Option{WithRequestRate(1000)}
	return New(append(base, opts...)...)
}

func TestFetch_PlainFile(t *testing.T) {
	body := []byte("text,label\nпривет мир,1\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body) //nolint:errcheck
	}))
	defer srv.Close()

	ds := domain.Dataset{
		Name:   "tiny",
		Source: srv.URL + "/data/tiny.csv",
		Kind:   domain.KindURL,
		Format: domain.FormatCSV,
	}

	dest := t.TempDir()
	result, err := testFetcher().Fetch(context.Background(), ds, dest, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(len(body)), result.Bytes)
	assert.Equal(t, 1, result.Files)

	sum := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(sum[:]), result.Checksum)

	content, err := os.ReadFile(filepath.Join(dest, "tiny.csv"))
	require.NoError(t, err)
	assert.Equal(t, body, content)
}

func TestFetch_ExtractsZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("train.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("русский текст"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(buf.Bytes()) //nolint:errcheck
	}))
	defer srv.Close()

	ds := domain.Dataset{
		Name:   "zipped",
		Source: srv.URL + "/archive.zip",
		Kind:   domain.KindURL,
		Format: domain.FormatZip,
	}

	dest := t.TempDir()
	result, err := testFetcher().Fetch(context.Background(), ds, dest, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Files)
	assert.FileExists(t, filepath.Join(dest, "train.txt"))

	// The archive itself must not remain in the destination.
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetch_DetectsArchiveByName(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("data.csv")
	require.NoError(t, err)
	_, err = entry.Write([]byte("text,label\nмир,0\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(buf.Bytes()) //nolint:errcheck
	}))
	defer srv.Close()

	// The catalog entry records the content format, but the URL points
	// at a zip bundle. The bundle must still be unpacked.
	ds := domain.Dataset{
		Name:   "bundled",
		Source: srv.URL + "/archive/master.zip",
		Kind:   domain.KindURL,
		Format: domain.FormatCSV,
	}

	dest := t.TempDir()
	result, err := testFetcher().Fetch(context.Background(), ds, dest, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Files)
	assert.FileExists(t, filepath.Join(dest, "data.csv"))
	assert.NoFileExists(t, filepath.Join(dest, "master.zip"))
}

func TestFetch_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok after retries")) //nolint:errcheck
	}))
	defer srv.Close()

	ds := domain.Dataset{
		Name:   "flaky",
		Source: srv.URL + "/flaky.txt",
		Kind:   domain.KindURL,
		Format: domain.FormatCSV,
	}

	result, err := testFetcher().Fetch(context.Background(), ds, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len("ok after retries")), result.Bytes)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestFetch_FailsAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ds := domain.Dataset{
		Name:   "missing",
		Source: srv.URL + "/missing.csv",
		Kind:   domain.KindURL,
		Format: domain.FormatCSV,
	}

	_, err := testFetcher(WithMaxRetries(2)).Fetch(context.Background(), ds, t.TempDir(), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_ReportsProgress(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 256*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body) //nolint:errcheck
	}))
	defer srv.Close()

	ds := domain.Dataset{
		Name:   "big",
		Source: srv.URL + "/big.csv",
		Kind:   domain.KindURL,
		Format: domain.FormatCSV,
	}

	var lastFetched, lastTotal int64
	_, err := testFetcher().Fetch(context.Background(), ds, t.TempDir(), func(fetched, total int64) {
		lastFetched = fetched
		lastTotal = total
	})
	require.NoError(t, err)

	assert.Equal(t, int64(len(body)), lastFetched)
	assert.Equal(t, int64(len(body)), lastTotal)
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		source string
		format domain.Format
		want   string
	}{
		{"https://example.com/archive/master.zip", domain.FormatZip, "master.zip"},
		{"https://example.com/a/b/corpus.tar.gz", domain.FormatTarGz, "corpus.tar.gz"},
		{"https://example.com/download", domain.FormatZip, "ds.zip"},
		{"https://example.com/", domain.FormatCSV, "ds.csv"},
	}

	for _, tt := range tests {
		ds := domain.Dataset{Name: "ds", Source: tt.source, Format: tt.format}
		assert.Equal(t, tt.want, artifactName(ds), tt.source)
	}
}
