package directive

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// memFS is a flat map of files; directories are implied by prefixes.
type memFS map[m.Path]string

func (f memFS) ReadFile(path m.Path) ([]byte, error) {
	data, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}

	return []byte(data), nil
}

func (f memFS) IsDir(path m.Path) bool {
	for p := range f {
		if strings.HasPrefix(string(p), string(path)+"/") {
			return true
		}
	}

	return false
}

func (f memFS) ReadDir(path m.Path) ([]m.Path, error) {
	seen := map[m.Path]bool{}

	for p := range f {
		rest, ok := strings.CutPrefix(string(p), string(path)+"/")
		if !ok {
			continue
		}

		first, _, _ := strings.Cut(rest, "/")
		seen[path.Join(first)] = true
	}

	out := make([]m.Path, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out, nil
}

func newTestParser(files memFS) *Parser {
	return NewParser(files, Options{
		DefaultTo:       []m.Path{"Scripts/RoomManager.lua"},
		DefaultPriority: 100,
		BackupDir:       "Backup",
	})
}

type brief struct {
	Mode     m.Mode
	Source   m.Path
	Target   m.Path
	Priority int
}

func briefs(ds []m.Directive) []brief {
	out := make([]brief, 0, len(ds))
	for _, d := range ds {
		out = append(out, brief{Mode: d.Mode, Source: d.Source(), Target: d.Target, Priority: d.Priority})
	}

	return out
}

func TestParser_Basics(t *testing.T) {
	files := memFS{
		"Mods/A/modfile.txt": strings.Join([]string{
			"Import main.lua",
			"Priority 20",
			"To Game/Units.sjson Game/Other.sjson",
			"SJSON units.sjson",
			"Load Priority",
			"To",
			"Top Import first.lua",
			"Priority nope",
			"XML gui.xml; CSV table.csv; Map room.json; Replace whole.lua",
		}, "\n"),
	}

	ds, err := newTestParser(files).ParseFile("Mods/A/modfile.txt")
	require.NoError(t, err)

	rm := m.Path("Scripts/RoomManager.lua")
	assert.Equal(t, []brief{
		{m.ModeImportLine, "Mods/A/main.lua", rm, 100},
		{m.ModeFlatMerge, "Mods/A/units.sjson", "Game/Units.sjson", 20},
		{m.ModeFlatMerge, "Mods/A/units.sjson", "Game/Other.sjson", 20},
		{m.ModeImportLineTop, "Mods/A/first.lua", rm, -100},
		{m.ModeTreeMerge, "Mods/A/gui.xml", rm, 100},
		{m.ModeGridMerge, "Mods/A/table.csv", rm, 100},
		{m.ModeBinaryMerge, "Mods/A/room.json", rm, 100},
		{m.ModeReplaceWhole, "Mods/A/whole.lua", rm, 100},
	}, briefs(ds))

	assert.True(t, ds[3].Prepend)
	assert.Equal(t, m.Origin{File: "Mods/A/modfile.txt", Line: 7}, ds[3].Origin)

	for i := 1; i < len(ds); i++ {
		assert.Greater(t, ds[i].Seq, ds[i-1].Seq)
	}
}

func TestParser_PriorityBounds(t *testing.T) {
	files := memFS{
		"Mods/A/modfile.txt": strings.Join([]string{
			"Priority 99999999999",
			"Import big.lua",
			"Priority -2147483648",
			"Top Import low.lua",
			"Priority 2147483647",
			"Import high.lua",
		}, "\n"),
	}

	ds, err := newTestParser(files).ParseFile("Mods/A/modfile.txt")
	require.NoError(t, err)

	rm := m.Path("Scripts/RoomManager.lua")
	assert.Equal(t, []brief{
		{m.ModeImportLine, "Mods/A/big.lua", rm, 100},
		{m.ModeImportLineTop, "Mods/A/low.lua", rm, 2147483648},
		{m.ModeImportLine, "Mods/A/high.lua", rm, 2147483647},
	}, briefs(ds))
}

func TestParser_SyntaxError(t *testing.T) {
	files := memFS{"Mods/A/modfile.txt": "Import a.lua\n\nFrobnicate x\n"}

	_, err := newTestParser(files).ParseFile("Mods/A/modfile.txt")

	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
	assert.Equal(t, m.Path("Mods/A/modfile.txt"), syn.File)
	assert.Equal(t, 3, syn.Line)
	assert.Equal(t, "Frobnicate x", syn.Text)

	_, err = newTestParser(memFS{"Mods/A/modfile.txt": "Import"}).ParseFile("Mods/A/modfile.txt")
	require.ErrorAs(t, err, &syn)
}

func TestParser_MultipleSourcesAndDirectories(t *testing.T) {
	files := memFS{
		"Mods/A/modfile.txt":     "Import a.lua b.lua\nSJSON Data",
		"Mods/A/Data/one.sjson":  "",
		"Mods/A/Data/two.sjson":  "",
		"Mods/A/Data/Nested/x.y": "",
	}

	ds, err := newTestParser(files).ParseFile("Mods/A/modfile.txt")
	require.NoError(t, err)

	rm := m.Path("Scripts/RoomManager.lua")
	assert.Equal(t, []brief{
		{m.ModeImportLine, "Mods/A/a.lua", rm, 100},
		{m.ModeImportLine, "Mods/A/b.lua", rm, 100},
		{m.ModeFlatMerge, "Mods/A/Data/one.sjson", rm, 100},
		{m.ModeFlatMerge, "Mods/A/Data/two.sjson", rm, 100},
	}, briefs(ds))
}

func TestParser_Include(t *testing.T) {
	files := memFS{
		"Mods/A/modfile.txt":      "Priority 5\nInclude extra.txt Parts\nImport after.lua",
		"Mods/A/extra.txt":        "Import extra.lua",
		"Mods/A/Parts/1.txt":      "To Other.lua\nImport part1.lua",
		"Mods/A/Parts/2.txt":      "Include ../modfile.txt",
		"Mods/A/Parts/Sub/no.txt": "Import never.lua",
	}

	ds, err := newTestParser(files).ParseFile("Mods/A/modfile.txt")
	require.NoError(t, err)

	rm := m.Path("Scripts/RoomManager.lua")
	assert.Equal(t, []brief{
		{m.ModeImportLine, "Mods/A/extra.lua", rm, 100},
		{m.ModeImportLine, "Mods/A/Parts/part1.lua", "Other.lua", 100},
		{m.ModeImportLine, "Mods/A/after.lua", rm, 5},
	}, briefs(ds))
}

func TestParser_Confinement(t *testing.T) {
	files := memFS{
		"Mods/A/modfile.txt": strings.Join([]string{
			"To ../outside.lua Backup/Scripts/RoomManager.lua Scripts/Ok.lua",
			"Import a.lua ../../../../escape.lua",
		}, "\n"),
	}

	ds, err := newTestParser(files).ParseFile("Mods/A/modfile.txt")
	require.NoError(t, err)

	assert.Equal(t, []brief{
		{m.ModeImportLine, "Mods/A/a.lua", "Scripts/Ok.lua", 100},
	}, briefs(ds))
}

func TestParser_MissingScript(t *testing.T) {
	ds, err := newTestParser(memFS{}).ParseFile("Mods/Empty/modfile.txt")
	require.NoError(t, err)
	assert.Empty(t, ds)
}
