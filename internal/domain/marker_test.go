package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

func TestProvenanceMarker(t *testing.T) {
	stamp := "MODIFIED by Mod Importer @ 2024-03-01 12:00:00.000000"

	tests := []struct {
		name   string
		mode   m.Mode
		target m.Path
		want   string
	}{
		{"import", m.ModeImportLine, "Scripts/RoomManager.lua", "\n-- " + stamp + " "},
		{"top import", m.ModeImportLineTop, "Scripts/RoomManager.lua", "\n-- " + stamp + " "},
		{"xml", m.ModeTreeMerge, "Game/Text/en/HelpText.en.xml", "\n<!-- " + stamp + " -->"},
		{"sjson", m.ModeFlatMerge, "Game/Weapons/PlayerWeapons.sjson", "\n/* " + stamp + " */"},
		{"csv", m.ModeGridMerge, "Game/Data.csv", "\n" + stamp},
		{"map", m.ModeBinaryMerge, "Maps/A.thing_bin", stamp},
		{"replace picks by extension", m.ModeReplaceWhole, "Game/X.sjson", "\n/* " + stamp + " */"},
		{"replace of unknown format", m.ModeReplaceWhole, "Audio/x.bank", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(provenanceMarker(tt.mode, tt.target, fixedNow)))
		})
	}
}

func TestIsEdited(t *testing.T) {
	marked := "x\n-- MODIFIED by Mod Importer @ 2024-03-01 "

	assert.True(t, isEdited("a.lua", []byte(marked)))
	assert.False(t, isEdited("a.lua", []byte("x\n")))
	assert.False(t, isEdited("a.XML", []byte("<a/>")))
	assert.True(t, isEdited("a.bin", []byte("anything")))
}
