package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

const marked = "\n-- MODIFIED by Mod Importer @ 2024-03-01 12:00:00.000000 "

func TestBackupStore_Acquire(t *testing.T) {
	t.Run("snapshots an existing target", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{"Scripts/A.lua": "pristine"})
		store := NewBackupStore(fs, "Backup")

		require.NoError(t, store.Acquire("Scripts/A.lua"))
		assert.Equal(t, "pristine", read(t, fs, "Backup/Scripts/A.lua"))
	})

	t.Run("writes a tombstone for a missing target", func(t *testing.T) {
		fs := memFS(t, nil)
		store := NewBackupStore(fs, "Backup")

		require.NoError(t, store.Acquire("Game/New.sjson"))
		assert.Equal(t, "Game", read(t, fs, "Backup/Game/New.sjson.del"))
		assert.False(t, fs.Exists("Game"))
	})

	t.Run("tombstone of a target in an existing directory is empty", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{"Game/Units.sjson": "Hp = 1"})
		store := NewBackupStore(fs, "Backup")

		require.NoError(t, store.Acquire("Game/New.sjson"))
		assert.Empty(t, read(t, fs, "Backup/Game/New.sjson.del"))
	})

	t.Run("keeps an existing snapshot of a marked target", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{
			"Scripts/A.lua":        "patched" + marked,
			"Backup/Scripts/A.lua": "pristine",
		})
		store := NewBackupStore(fs, "Backup")

		require.NoError(t, store.Acquire("Scripts/A.lua"))
		assert.Equal(t, "pristine", read(t, fs, "Scripts/A.lua"))
		assert.Equal(t, "pristine", read(t, fs, "Backup/Scripts/A.lua"))
	})

	t.Run("replaces the snapshot of a hand-edited target", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{
			"Scripts/A.lua":        "hand edited",
			"Backup/Scripts/A.lua": "stale",
		})
		store := NewBackupStore(fs, "Backup")

		require.NoError(t, store.Acquire("Scripts/A.lua"))
		assert.Equal(t, "hand edited", read(t, fs, "Backup/Scripts/A.lua"))
	})
}

func TestBackupStore_Rollback(t *testing.T) {
	t.Run("restores the snapshot", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{"A.xml": "<a/>"})
		store := NewBackupStore(fs, "Backup")
		require.NoError(t, store.Acquire("A.xml"))
		require.NoError(t, fs.WriteFile("A.xml", []byte("broken")))

		require.NoError(t, store.Rollback("A.xml"))
		assert.Equal(t, "<a/>", read(t, fs, "A.xml"))
	})

	t.Run("removes a created target", func(t *testing.T) {
		fs := memFS(t, nil)
		store := NewBackupStore(fs, "Backup")
		require.NoError(t, store.Acquire("A.xml"))
		require.NoError(t, fs.WriteFile("A.xml", []byte("<a/>")))

		require.NoError(t, store.Rollback("A.xml"))
		assert.False(t, fs.Exists("A.xml"))
	})

	t.Run("removes directories added for a created target", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{"Maps/Old.xml": "<a/>"})
		store := NewBackupStore(fs, "Backup")
		require.NoError(t, store.Acquire("Maps/Extra/Deep/New.xml"))
		require.NoError(t, fs.WriteFile("Maps/Extra/Deep/New.xml", []byte("<a/>")))

		require.NoError(t, store.Rollback("Maps/Extra/Deep/New.xml"))
		assert.False(t, fs.Exists("Maps/Extra"))
		assert.True(t, fs.Exists("Maps/Old.xml"))
	})

	t.Run("keeps added directories that gained other files", func(t *testing.T) {
		fs := memFS(t, nil)
		store := NewBackupStore(fs, "Backup")
		require.NoError(t, store.Acquire("Maps/Extra/New.xml"))
		require.NoError(t, fs.WriteFile("Maps/Extra/New.xml", []byte("<a/>")))
		require.NoError(t, fs.WriteFile("Maps/Other.xml", []byte("<b/>")))

		require.NoError(t, store.Rollback("Maps/Extra/New.xml"))
		assert.False(t, fs.Exists("Maps/Extra"))
		assert.True(t, fs.Exists("Maps/Other.xml"))
	})

	t.Run("missing snapshot is an integrity error", func(t *testing.T) {
		fs := memFS(t, map[m.Path]string{"A.xml": "<a/>"})
		store := NewBackupStore(fs, "Backup")

		err := store.Rollback("A.xml")

		var integrity *BackupIntegrityError
		require.True(t, errors.As(err, &integrity))
		assert.Equal(t, m.Path("Backup/A.xml"), integrity.Backup)
	})
}

func TestBackupStore_Cleanup(t *testing.T) {
	fs := memFS(t, map[m.Path]string{
		"Scripts/A.lua":             "patched" + marked,
		"Backup/Scripts/A.lua":      "pristine",
		"Scripts/B.lua":             "hand edited",
		"Backup/Scripts/B.lua":      "stale",
		"Game/New.sjson":            "created",
		"Backup/Game/New.sjson.del": "",
		"Backup/Gone/C.xml":         "orphan",
	})
	store := NewBackupStore(fs, "Backup")

	results, err := store.Cleanup()
	require.NoError(t, err)

	assert.ElementsMatch(t, []m.CleanResult{
		{Target: "Game/New.sjson", Action: m.Deleted},
		{Target: "Gone/C.xml", Action: m.Kept},
		{Target: "Scripts/A.lua", Action: m.Restored},
		{Target: "Scripts/B.lua", Action: m.Discarded},
	}, results)

	assert.Equal(t, "pristine", read(t, fs, "Scripts/A.lua"))
	assert.Equal(t, "hand edited", read(t, fs, "Scripts/B.lua"))
	assert.False(t, fs.Exists("Game/New.sjson"))
	assert.False(t, fs.Exists("Backup/Game"))
	assert.False(t, fs.Exists("Backup/Scripts"))
	assert.True(t, fs.Exists("Backup/Gone/C.xml"))
}

func TestBackupStore_CleanupRemovesCreatedDirectories(t *testing.T) {
	fs := memFS(t, map[m.Path]string{"Game/Units.sjson": "Hp = 1"})
	store := NewBackupStore(fs, "Backup")

	require.NoError(t, store.Acquire("Game/Mod/Data/New.sjson"))
	require.NoError(t, fs.WriteFile("Game/Mod/Data/New.sjson", []byte("created")))

	results, err := store.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, []m.CleanResult{{Target: "Game/Mod/Data/New.sjson", Action: m.Deleted}}, results)

	assert.False(t, fs.Exists("Game/Mod"))
	assert.True(t, fs.Exists("Game/Units.sjson"))
	assert.False(t, fs.Exists("Backup"))
}

func TestBackupStore_CleanupWithoutStore(t *testing.T) {
	store := NewBackupStore(memFS(t, nil), "Backup")

	results, err := store.Cleanup()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBackupStore_Entries(t *testing.T) {
	fs := memFS(t, map[m.Path]string{
		"Backup/Scripts/A.lua":    "pristine",
		"Backup/Game/N.sjson.del": "",
	})

	entries, err := NewBackupStore(fs, "Backup").Entries()
	require.NoError(t, err)
	assert.Equal(t, []BackupEntry{
		{Target: "Game/N.sjson", Backup: "Backup/Game/N.sjson.del", Tombstone: true},
		{Target: "Scripts/A.lua", Backup: "Backup/Scripts/A.lua"},
	}, entries)
}
