package domain

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"modimporter.dev/pkg/modimporter/internal/adapter"
	m "modimporter.dev/pkg/modimporter/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func memFS(t *testing.T, files map[m.Path]string) adapter.ContentFSAdapter {
	t.Helper()

	fs := adapter.NewContentFSAdapter(afero.NewMemMapFs())
	for path, content := range files {
		require.NoError(t, fs.WriteFile(path, []byte(content)))
	}

	return fs
}

func read(t *testing.T, fs adapter.ContentFSAdapter, path m.Path) string {
	t.Helper()

	data, err := fs.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}
