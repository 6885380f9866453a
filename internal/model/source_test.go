package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Path
	}{
		{name: "backslashes", raw: `Mods\A\modfile.txt`, want: "Mods/A/modfile.txt"},
		{name: "dot prefix", raw: "./Scripts/RoomManager.lua", want: "Scripts/RoomManager.lua"},
		{name: "parent segments", raw: "Mods/A/../B/x.lua", want: "Mods/B/x.lua"},
		{name: "empty", raw: "", want: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.raw))
		})
	}
}

func TestPath_Parts(t *testing.T) {
	p := Path("Game/Obstacles/Fx.SJSON")

	assert.Equal(t, Path("Game/Obstacles"), p.Dir())
	assert.Equal(t, "Fx.SJSON", p.Base())
	assert.Equal(t, ".sjson", p.Ext())
	assert.Equal(t, Path("Mods/A/units.sjson"), Path("Mods").Join("A", "units.sjson"))
	assert.Equal(t, Path("x.lua"), Path(".").Join("x.lua"))
	assert.Equal(t, "Game/Obstacles/Fx.SJSON", p.String())
}

func TestPath_WithinAndEscapes(t *testing.T) {
	tests := []struct {
		name    string
		path    Path
		root    Path
		within  bool
		escapes bool
	}{
		{name: "below root", path: "Mods/A/x.lua", root: "Mods", within: true},
		{name: "root itself", path: "Mods", root: "Mods", within: true},
		{name: "sibling prefix", path: "ModsOld/x.lua", root: "Mods", within: false},
		{name: "content root", path: "Scripts/x.lua", root: ".", within: true},
		{name: "parent", path: "../x.lua", root: ".", within: false, escapes: true},
		{name: "absolute", path: "/etc/passwd", root: "", within: false, escapes: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.within, tt.path.Within(tt.root))
			assert.Equal(t, tt.escapes, tt.path.Escapes())
		})
	}
}
