package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// defaultTargets lists the script that receives plain imports per game.
var defaultTargets = map[string][]m.Path{
	"Hades":      {"Scripts/RoomManager.lua"},
	"Pyre":       {"Scripts/Campaign.lua", "Scripts/MPScripts.lua"},
	"Transistor": {"Scripts/AllCampaignScripts.txt"},
}

// gameAliases maps platform-specific install directory names to a game.
var gameAliases = map[string]string{
	"Resources": "Hades",
	"Content":   "Hades",
	"romfs":     "Hades",
}

// Games returns the supported game names.
func Games() []string {
	return []string{"Hades", "Pyre", "Transistor"}
}

// ResolveGame returns the configured game, or infers it from the name of
// the directory containing the content root.
func ResolveGame(root, configured string) string {
	game := configured
	if game == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}

		game = capitalize(filepath.Base(filepath.Dir(abs)))
	}

	if alias, ok := gameAliases[game]; ok {
		return alias
	}

	return game
}

// DefaultTargets returns the import destinations of a game.
func DefaultTargets(game string) ([]m.Path, error) {
	targets, ok := defaultTargets[game]
	if !ok {
		return nil, fmt.Errorf("unknown game %q, expected one of %s", game, strings.Join(Games(), ", "))
	}

	return targets, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}
