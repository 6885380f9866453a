package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

func TestYAMLReportStore_RoundTrip(t *testing.T) {
	fs := NewContentFSAdapter(afero.NewMemMapFs())
	store := NewYAMLReportStore(fs)

	report := m.RunReport{
		Started: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Mods:    2,
		Cleaned: []m.CleanResult{
			{Target: "Scripts/RoomManager.lua", Action: m.Restored},
			{Target: "Game/New.sjson", Action: m.Deleted},
		},
		Targets: []m.TargetResult{
			{
				Target:     "Scripts/RoomManager.lua",
				Mode:       m.ModeImportLine,
				Directives: 2,
				Sources:    []m.Path{"Mods/a/a.lua", "Mods/b/b.lua"},
				Status:     m.Patched,
			},
			{
				Target:     "Win/Maps/Obstacles.map_text",
				Mode:       m.ModeBinaryMerge,
				Directives: 1,
				Sources:    []m.Path{"Mods/a/patch.json"},
				Status:     m.RolledBack,
				Err:        errors.New("boom"),
			},
		},
	}

	require.NoError(t, store.SaveReport("Backup/last-run.yaml", report))

	loaded, err := store.LoadReport("Backup/last-run.yaml")
	require.NoError(t, err)

	assert.True(t, report.Started.Equal(loaded.Started))
	assert.Equal(t, report.Mods, loaded.Mods)
	assert.Equal(t, report.Cleaned, loaded.Cleaned)
	require.Len(t, loaded.Targets, 2)
	assert.Equal(t, report.Targets[0], loaded.Targets[0])
	assert.Equal(t, m.RolledBack, loaded.Targets[1].Status)
	assert.EqualError(t, loaded.Targets[1].Err, "boom")
	assert.Len(t, loaded.Failed(), 1)
}

func TestYAMLReportStore_Errors(t *testing.T) {
	fs := NewContentFSAdapter(afero.NewMemMapFs())
	store := NewYAMLReportStore(fs)

	_, err := store.LoadReport("missing.yaml")
	assert.True(t, IsNotExist(err))

	require.NoError(t, fs.WriteFile("bad.yaml", []byte("targets:\n  - mode: nope\n")))
	_, err = store.LoadReport("bad.yaml")
	assert.ErrorContains(t, err, "unknown mode")
}
