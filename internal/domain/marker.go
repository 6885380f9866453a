package domain

import (
	"bytes"
	"time"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

const (
	markerWord  = "MODIFIED"
	markerTag   = " by Mod Importer @ "
	stampLayout = "2006-01-02 15:04:05.000000"
)

type markerStyle struct {
	prefix  string
	suffix  string
	newline bool
}

var (
	luaMarker   = markerStyle{prefix: "-- ", suffix: " ", newline: true}
	xmlMarker   = markerStyle{prefix: "<!-- ", suffix: " -->", newline: true}
	sjsonMarker = markerStyle{prefix: "/* ", suffix: " */", newline: true}
	csvMarker   = markerStyle{newline: true}
	mapMarker   = markerStyle{}
)

var styleByMode = map[m.Mode]markerStyle{
	m.ModeImportLine:    luaMarker,
	m.ModeImportLineTop: luaMarker,
	m.ModeTreeMerge:     xmlMarker,
	m.ModeFlatMerge:     sjsonMarker,
	m.ModeGridMerge:     csvMarker,
	m.ModeBinaryMerge:   mapMarker,
}

var styleByExt = map[string]markerStyle{
	".lua":   luaMarker,
	".txt":   luaMarker,
	".xml":   xmlMarker,
	".sjson": sjsonMarker,
	".csv":   csvMarker,
}

// scannedExts are the text formats whose marker can be found again.
var scannedExts = map[string]bool{
	".lua": true, ".xml": true, ".sjson": true, ".csv": true, ".txt": true,
}

// provenanceMarker returns the bytes appended to target after its chain
// applied. The first directive of the chain picks the style; a whole-file
// replacement falls back to the target extension and unknown extensions
// get no marker.
func provenanceMarker(mode m.Mode, target m.Path, now time.Time) []byte {
	style, ok := styleByMode[mode]
	if !ok {
		if style, ok = styleByExt[target.Ext()]; !ok {
			return nil
		}
	}

	var b bytes.Buffer

	if style.newline {
		b.WriteByte('\n')
	}

	b.WriteString(style.prefix)
	b.WriteString(markerWord + markerTag + now.Format(stampLayout))
	b.WriteString(style.suffix)

	return b.Bytes()
}

// isEdited reports whether content still carries a provenance marker.
// Formats that cannot be scanned always count as edited by the tool.
func isEdited(target m.Path, content []byte) bool {
	if !scannedExts[target.Ext()] {
		return true
	}

	return bytes.Contains(content, []byte(markerWord+markerTag))
}
