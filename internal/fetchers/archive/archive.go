// Package archive extracts downloaded dataset archives.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

// Extract unpacks an archive into destDir based on the dataset format.
// Returns the number of files written.
func Extract(path string, format domain.Format, destDir string) (int, error) {
	switch format {
	case domain.FormatZip:
		return extractZip(path, destDir)
	case domain.FormatTar:
		return extractTar(path, destDir, false)
	case domain.FormatTarGz:
		return extractTar(path, destDir, true)
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedArchive, format)
	}
}

// DetectFormat guesses the archive format from a filename.
// Returns false when the name does not look like a supported archive.
func DetectFormat(name string) (domain.Format, bool) {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return domain.FormatZip, true
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return domain.FormatTarGz, true
	case strings.HasSuffix(name, ".tar"):
		return domain.FormatTar, true
	default:
		return "", false
	}
}

func extractZip(path, destDir string) (int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	files := 0
	for _, f := range r.File {
		target, err := SafeJoin(destDir, f.Name)
		if err != nil {
			return files, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("creating directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return files, fmt.Errorf("creating directory: %w", err)
		}

		if err := writeZipEntry(f, target); err != nil {
			return files, err
		}
		files++
	}

	return files, nil
}

func writeZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}

func extractTar(path, destDir string, gzipped bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening tar: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("opening gzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	files := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("reading tar: %w", err)
		}

		target, err := SafeJoin(destDir, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return files, fmt.Errorf("creating directory: %w", err)
			}
			if err := writeTarEntry(tr, target); err != nil {
				return files, err
			}
			files++
		default:
			// Symlinks and special files are skipped. Dataset archives
			// are expected to contain plain files and directories.
			continue
		}
	}
}

func writeTarEntry(tr *tar.Reader, target string) error {
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, tr); err != nil {
		return fmt.Errorf("extracting %s: %w", target, err)
	}
	return nil
}

// SafeJoin joins a destination directory with an untrusted relative
// name, rejecting names that would escape the destination ("zip slip").
// Used for archive entries and for server-supplied file listings.
func SafeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
		return "", fmt.Errorf("%w: entry %q escapes destination", domain.ErrInvalidInput, name)
	}
	return target, nil
}
