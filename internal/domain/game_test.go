package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

func TestResolveGame(t *testing.T) {
	tests := []struct {
		name       string
		root       string
		configured string
		want       string
	}{
		{name: "configured wins", root: "/steam/Hades/Content", configured: "Pyre", want: "Pyre"},
		{name: "parent directory", root: "/steam/pyre/Content", want: "Pyre"},
		{name: "platform alias", root: "/switch/romfs/Content", want: "Hades"},
		{name: "configured alias", root: "/anywhere", configured: "Resources", want: "Hades"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveGame(filepath.FromSlash(tt.root), tt.configured))
		})
	}
}

func TestDefaultTargets(t *testing.T) {
	targets, err := DefaultTargets("Pyre")
	require.NoError(t, err)
	assert.Equal(t, []m.Path{"Scripts/Campaign.lua", "Scripts/MPScripts.lua"}, targets)

	_, err = DefaultTargets("Bastion")
	assert.ErrorContains(t, err, "Hades, Pyre, Transistor")
}
