package validators

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// Ensure all checks implement the interface.
var (
	_ driven.Check = (*RussianText)(nil)
	_ driven.Check = (*TextFormat)(nil)
	_ driven.Check = (*QAFormat)(nil)
	_ driven.Check = (*ClassificationFormat)(nil)
	_ driven.Check = (*SentimentFormat)(nil)
)

const (
	// sampleFileLimit caps how many files a check inspects.
	sampleFileLimit = 5

	// sampleByteLimit caps how much of each file a check reads.
	sampleByteLimit = 64 * 1024

	// minCyrillicRatio is the Cyrillic share of letters required for
	// content to count as Russian text.
	minCyrillicRatio = 0.3
)

var textExtensions = map[string]bool{
	".txt":   true,
	".csv":   true,
	".tsv":   true,
	".json":  true,
	".jsonl": true,
	".md":    true,
}

// RussianText verifies the dataset actually contains Russian text by
// measuring the Cyrillic share of sampled letters.
type RussianText struct{}

// NewRussianText creates the check.
func NewRussianText() *RussianText { return &RussianText{} }

// Name returns the check name.
func (c *RussianText) Name() string { return "russian_text" }

// Run samples text files and measures the Cyrillic letter ratio.
func (c *RussianText) Run(ctx context.Context, dir string) error {
	samples, err := sampleFiles(ctx, dir)
	if err != nil {
		return err
	}

	var cyrillic, letters int
	for _, sample := range samples {
		for _, r := range sample {
			if !unicode.IsLetter(r) {
				continue
			}
			letters++
			if unicode.Is(unicode.Cyrillic, r) {
				cyrillic++
			}
		}
	}
	if letters == 0 {
		return fmt.Errorf("%w: no letters found in sampled files", domain.ErrValidationFailed)
	}

	ratio := float64(cyrillic) / float64(letters)
	if ratio < minCyrillicRatio {
		return fmt.Errorf("%w: cyrillic ratio %.2f below %.2f", domain.ErrValidationFailed, ratio, minCyrillicRatio)
	}
	return nil
}

// TextFormat verifies the dataset has non-empty, valid UTF-8 text files.
type TextFormat struct{}

// NewTextFormat creates the check.
func NewTextFormat() *TextFormat { return &TextFormat{} }

// Name returns the check name.
func (c *TextFormat) Name() string { return "text_format" }

// Run verifies sampled files are non-empty valid UTF-8.
func (c *TextFormat) Run(ctx context.Context, dir string) error {
	samples, err := sampleFiles(ctx, dir)
	if err != nil {
		return err
	}
	for _, sample := range samples {
		if !utf8.ValidString(sample) {
			return fmt.Errorf("%w: file content is not valid UTF-8", domain.ErrValidationFailed)
		}
		if strings.TrimSpace(sample) == "" {
			return fmt.Errorf("%w: file contains no text", domain.ErrValidationFailed)
		}
	}
	return nil
}

// QAFormat verifies question answering records carry question and
// answer fields.
type QAFormat struct{}

// NewQAFormat creates the check.
func NewQAFormat() *QAFormat { return &QAFormat{} }

// Name returns the check name.
func (c *QAFormat) Name() string { return "qa_format" }

// Run looks for question and answer fields in structured files.
func (c *QAFormat) Run(ctx context.Context, dir string) error {
	return requireFields(ctx, dir, [][]string{
		{"question"},
		{"answer", "answers"},
	})
}

// ClassificationFormat verifies classification records carry a label.
type ClassificationFormat struct{}

// NewClassificationFormat creates the check.
func NewClassificationFormat() *ClassificationFormat { return &ClassificationFormat{} }

// Name returns the check name.
func (c *ClassificationFormat) Name() string { return "classification_format" }

// Run looks for a label or category field in structured files.
func (c *ClassificationFormat) Run(ctx context.Context, dir string) error {
	return requireFields(ctx, dir, [][]string{
		{"label", "labels", "category", "class"},
	})
}

// SentimentFormat verifies sentiment records carry a sentiment label.
type SentimentFormat struct{}

// NewSentimentFormat creates the check.
func NewSentimentFormat() *SentimentFormat { return &SentimentFormat{} }

// Name returns the check name.
func (c *SentimentFormat) Name() string { return "sentiment_format" }

// Run looks for a sentiment field in structured files.
func (c *SentimentFormat) Run(ctx context.Context, dir string) error {
	return requireFields(ctx, dir, [][]string{
		{"sentiment", "label", "labels", "polarity"},
	})
}

// sampleFiles reads the head of up to sampleFileLimit text files.
func sampleFiles(ctx context.Context, dir string) ([]string, error) {
	paths, err := findTextFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no text files found in %s", domain.ErrValidationFailed, dir)
	}

	samples := make([]string, 0, len(paths))
	for _, path := range paths {
		sample, err := readHead(path, sampleByteLimit)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func findTextFiles(ctx context.Context, dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Base(path) == "metadata.json" {
			return nil
		}
		if textExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
			if len(paths) >= sampleFileLimit {
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// readHead reads at most limit bytes, truncated to a rune boundary.
func readHead(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil {
		return "", err
	}
	for len(buf) > 0 && !utf8.Valid(buf) {
		buf = buf[:len(buf)-1]
	}
	return string(buf), nil
}

// requireFields checks that every field group is satisfied by at least
// one key found in the dataset's structured files. A group is satisfied
// when any of its aliases appears.
func requireFields(ctx context.Context, dir string, groups [][]string) error {
	keys, err := collectFieldNames(ctx, dir)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no structured records found in %s", domain.ErrValidationFailed, dir)
	}

	for _, group := range groups {
		if !anyKeyMatches(keys, group) {
			return fmt.Errorf("%w: missing field %s", domain.ErrValidationFailed, strings.Join(group, "|"))
		}
	}
	return nil
}

func anyKeyMatches(keys map[string]bool, aliases []string) bool {
	for key := range keys {
		for _, alias := range aliases {
			if key == alias || strings.Contains(key, alias) {
				return true
			}
		}
	}
	return false
}

// collectFieldNames gathers lowercased field names from sampled JSON,
// JSONL and CSV files.
func collectFieldNames(ctx context.Context, dir string) (map[string]bool, error) {
	paths, err := findTextFiles(ctx, dir)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool)
	for _, path := range paths {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".jsonl":
			if err := jsonFieldNames(path, keys); err != nil {
				return nil, fmt.Errorf("inspecting %s: %w", path, err)
			}
		case ".csv", ".tsv":
			if err := csvFieldNames(path, keys); err != nil {
				return nil, fmt.Errorf("inspecting %s: %w", path, err)
			}
		}
	}
	return keys, nil
}

// jsonFieldNames decodes the first record of a JSON or JSONL file.
// Handles a top-level object, a top-level array of objects, and
// newline-delimited objects.
func jsonFieldNames(path string, keys map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, sampleByteLimit), sampleByteLimit)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err == nil {
			addKeys(record, keys)
			return nil
		}

		// Not one object per line. Re-read the whole head as a single
		// value, which may be an object or an array of objects.
		head, err := readHead(path, sampleByteLimit)
		if err != nil {
			return err
		}
		dec := json.NewDecoder(strings.NewReader(head))
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		switch v := value.(type) {
		case map[string]any:
			addKeys(v, keys)
		case []any:
			for _, item := range v {
				if record, ok := item.(map[string]any); ok {
					addKeys(record, keys)
					break
				}
			}
		}
		return nil
	}
	return scanner.Err()
}

// addKeys records lowercased keys, descending one level into nested
// objects so wrapped records ("data": {...}) are still visible.
func addKeys(record map[string]any, keys map[string]bool) {
	for k, v := range record {
		keys[strings.ToLower(k)] = true
		if nested, ok := v.(map[string]any); ok {
			for nk := range nested {
				keys[strings.ToLower(nk)] = true
			}
		}
	}
}

// csvFieldNames records the header row of a CSV or TSV file.
func csvFieldNames(path string, keys map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil
	}
	for _, field := range header {
		keys[strings.ToLower(strings.TrimSpace(field))] = true
	}
	return nil
}
