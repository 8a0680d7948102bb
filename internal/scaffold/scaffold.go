// Package scaffold creates the fixed project directory tree.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/logger"
)

// ProjectFile is the marker written at the project root.
const ProjectFile = "project.toml"

// projectConfig is the content of project.toml.
type projectConfig struct {
	Project struct {
		Name      string    `toml:"name"`
		CreatedAt time.Time `toml:"created_at"`
	} `toml:"project"`
	Layout struct {
		Datasets string `toml:"datasets"`
		Models   string `toml:"models"`
		Configs  string `toml:"configs"`
		Logs     string `toml:"logs"`
		Results  string `toml:"results"`
	} `toml:"layout"`
}

// folder pairs a directory with the README description written into it.
type folder struct {
	path        string
	description string
}

// folders lists every directory the scaffold creates, with descriptions.
func folders(l domain.Layout) []folder {
	return []folder{
		{l.DatasetsDir(), "All datasets used for training."},
		{l.RawDir(), "Unmodified downloaded datasets, one directory per dataset."},
		{l.ProcessedDir(), "Preprocessed datasets ready for training."},
		{l.CachedDir(), "Hub datasets cached for reuse, one directory per dataset."},
		{l.TempDir(), "In-flight downloads and extraction staging. Safe to clean."},
		{l.ModelsDir(), "Model checkpoints and final trained models."},
		{l.ConfigsDir(), "Training and data processing configuration."},
		{l.LogsDir(), "Training logs and monitor session reports."},
		{l.ResultsDir(), "Metrics, predictions and evaluation output."},
	}
}

// Create builds the project tree under the layout root. Existing
// directories are left alone, so Create is safe to run repeatedly.
// Returns the number of directories created.
func Create(l domain.Layout) (int, error) {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return 0, fmt.Errorf("creating project root: %w", err)
	}

	created := 0
	for _, f := range folders(l) {
		madeNew, err := createFolder(f)
		if err != nil {
			return created, err
		}
		if madeNew {
			created++
		}
	}

	if err := writeProjectFile(l); err != nil {
		return created, err
	}
	if err := writeGitignore(l); err != nil {
		return created, err
	}

	logger.Info("project tree ready at %s (%d new directories)", l.Root, created)
	return created, nil
}

// createFolder makes one directory and drops a README into it unless
// one already exists.
func createFolder(f folder) (bool, error) {
	_, statErr := os.Stat(f.path)
	existed := statErr == nil

	if err := os.MkdirAll(f.path, 0o755); err != nil {
		return false, fmt.Errorf("creating %s: %w", f.path, err)
	}

	readme := filepath.Join(f.path, "README.md")
	if _, err := os.Stat(readme); os.IsNotExist(err) {
		content := fmt.Sprintf("# %s\n\n%s\n", filepath.Base(f.path), f.description)
		if err := os.WriteFile(readme, []byte(content), 0o644); err != nil {
			return false, fmt.Errorf("writing %s: %w", readme, err)
		}
	}

	return !existed, nil
}

// writeProjectFile writes project.toml, skipping when it already exists
// so a re-run keeps the original creation time.
func writeProjectFile(l domain.Layout) error {
	path := filepath.Join(l.Root, ProjectFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var cfg projectConfig
	cfg.Project.Name = filepath.Base(l.Root)
	cfg.Project.CreatedAt = time.Now().UTC()
	cfg.Layout.Datasets = "datasets"
	cfg.Layout.Models = "models"
	cfg.Layout.Configs = "configs"
	cfg.Layout.Logs = "logs"
	cfg.Layout.Results = "results"

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ProjectFile, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ProjectFile, err)
	}
	return nil
}

// writeGitignore keeps bulk data out of version control when the
// project root is a repository.
func writeGitignore(l domain.Layout) error {
	path := filepath.Join(l.Root, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	content := `datasets/raw/
datasets/processed/
datasets/cached/
datasets/temp/
models/
logs/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
