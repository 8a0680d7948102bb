package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/allan-project/allan-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ManifestStore = (*Store)(nil)

// Store is the SQLite-backed manifest of download sessions and
// preprocessing runs.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.allan/data/manifest.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".allan", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "manifest.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveDownload stores or updates a download session.
func (s *Store) SaveDownload(ctx context.Context, session domain.DownloadSession) error {
	if session.ID == "" || session.Dataset == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads
			(id, dataset, source, kind, bytes, files, checksum, state, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bytes = excluded.bytes,
			files = excluded.files,
			checksum = excluded.checksum,
			state = excluded.state,
			error = excluded.error,
			finished_at = excluded.finished_at
	`, session.ID, session.Dataset, session.Source, string(session.Kind),
		session.Bytes, session.Files, session.Checksum,
		string(session.State), session.Error, session.StartedAt, session.FinishedAt)

	if err != nil {
		return fmt.Errorf("saving download session: %w", err)
	}
	return nil
}

// LatestDownload returns the most recent session for a dataset.
func (s *Store) LatestDownload(ctx context.Context, dataset string) (*domain.DownloadSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dataset, source, kind, bytes, files, checksum, state, error, started_at, finished_at
		FROM downloads WHERE dataset = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT 1
	`, dataset)

	session, err := scanDownload(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// ListDownloads returns all sessions for a dataset, newest first.
func (s *Store) ListDownloads(ctx context.Context, dataset string) ([]domain.DownloadSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset, source, kind, bytes, files, checksum, state, error, started_at, finished_at
		FROM downloads WHERE dataset = ?
		ORDER BY finished_at DESC, id DESC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	var sessions []domain.DownloadSession //nolint:prealloc // size unknown from query
	for rows.Next() {
		session, err := scanDownload(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating downloads: %w", err)
	}

	return sessions, nil
}

// SavePreprocessRun stores or updates a preprocessing run.
func (s *Store) SavePreprocessRun(ctx context.Context, run domain.PreprocessRun) error {
	if run.ID == "" || run.Dataset == "" {
		return domain.ErrInvalidInput
	}

	stepsJSON, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preprocess_runs
			(id, dataset, steps, state, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			steps = excluded.steps,
			state = excluded.state,
			error = excluded.error,
			finished_at = excluded.finished_at
	`, run.ID, run.Dataset, string(stepsJSON),
		string(run.State), run.Error, run.StartedAt, run.FinishedAt)

	if err != nil {
		return fmt.Errorf("saving preprocess run: %w", err)
	}
	return nil
}

// LatestPreprocessRun returns the most recent run for a dataset.
func (s *Store) LatestPreprocessRun(ctx context.Context, dataset string) (*domain.PreprocessRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dataset, steps, state, error, started_at, finished_at
		FROM preprocess_runs WHERE dataset = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT 1
	`, dataset)

	var run domain.PreprocessRun
	var stepsJSON, state string
	if err := row.Scan(&run.ID, &run.Dataset, &stepsJSON, &state,
		&run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning preprocess run: %w", err)
	}
	run.State = domain.SessionState(state)

	if err := json.Unmarshal([]byte(stepsJSON), &run.Steps); err != nil {
		return nil, fmt.Errorf("unmarshalling steps: %w", err)
	}

	return &run, nil
}

// scanDownload scans a download session via the given scan function,
// which lets it serve both *sql.Row and *sql.Rows.
func scanDownload(scan func(...any) error) (*domain.DownloadSession, error) {
	var session domain.DownloadSession
	var kind, state string
	if err := scan(&session.ID, &session.Dataset, &session.Source, &kind,
		&session.Bytes, &session.Files, &session.Checksum, &state,
		&session.Error, &session.StartedAt, &session.FinishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning download session: %w", err)
	}
	session.Kind = domain.SourceKind(kind)
	session.State = domain.SessionState(state)
	return &session, nil
}
