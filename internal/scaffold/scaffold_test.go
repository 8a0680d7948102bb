package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

func TestCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myproject")
	l := domain.NewLayout(root)

	created, err := Create(l)
	require.NoError(t, err)
	assert.Equal(t, 9, created)

	for _, dir := range []string{
		l.DatasetsDir(), l.RawDir(), l.ProcessedDir(), l.CachedDir(),
		l.TempDir(), l.ModelsDir(), l.ConfigsDir(), l.LogsDir(), l.ResultsDir(),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
		assert.FileExists(t, filepath.Join(dir, "README.md"), dir)
	}

	assert.FileExists(t, filepath.Join(root, ProjectFile))
	assert.FileExists(t, filepath.Join(root, ".gitignore"))
}

func TestCreate_Idempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myproject")
	l := domain.NewLayout(root)

	_, err := Create(l)
	require.NoError(t, err)

	// A custom README survives a re-run.
	readme := filepath.Join(l.RawDir(), "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("my notes\n"), 0o644))

	projectFile := filepath.Join(root, ProjectFile)
	original, err := os.ReadFile(projectFile)
	require.NoError(t, err)

	created, err := Create(l)
	require.NoError(t, err)
	assert.Zero(t, created)

	kept, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "my notes\n", string(kept))

	// project.toml keeps its original creation record.
	after, err := os.ReadFile(projectFile)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestCreate_PartialTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myproject")
	l := domain.NewLayout(root)

	require.NoError(t, os.MkdirAll(l.DatasetsDir(), 0o755))
	require.NoError(t, os.MkdirAll(l.LogsDir(), 0o755))

	created, err := Create(l)
	require.NoError(t, err)
	assert.Equal(t, 7, created)
}
