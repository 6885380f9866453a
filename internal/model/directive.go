package model

import "fmt"

// Mode selects how a directive mutates its target.
type Mode int

const (
	// ModeReplaceWhole copies the source over the target.
	ModeReplaceWhole Mode = iota
	// ModeImportLine appends an Import statement to a script target.
	ModeImportLine
	// ModeImportLineTop inserts an Import statement as the first line.
	ModeImportLineTop
	// ModeTreeMerge merges a markup tree (XML) patch.
	ModeTreeMerge
	// ModeFlatMerge merges an SJSON patch.
	ModeFlatMerge
	// ModeGridMerge applies a CSV cursor-script patch.
	ModeGridMerge
	// ModeBinaryMerge accumulates a binary record patch.
	ModeBinaryMerge
)

var modeNames = map[Mode]string{
	ModeReplaceWhole:  "replace",
	ModeImportLine:    "import",
	ModeImportLineTop: "topimport",
	ModeTreeMerge:     "xml",
	ModeFlatMerge:     "sjson",
	ModeGridMerge:     "csv",
	ModeBinaryMerge:   "map",
}

func (md Mode) String() string {
	if name, ok := modeNames[md]; ok {
		return name
	}

	return fmt.Sprintf("mode(%d)", int(md))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for md, name := range modeNames {
		if name == s {
			return md, nil
		}
	}

	return 0, fmt.Errorf("unknown mode %q", s)
}

// Origin locates the script statement that produced a directive.
type Origin struct {
	File Path
	Line int
}

func (o Origin) String() string {
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

// Directive is one requested edit of a target file. It is immutable
// once produced by the parser.
type Directive struct {
	Mode     Mode
	Sources  []Path
	Target   Path
	Priority int
	Prepend  bool
	Origin   Origin
	// Seq is the discovery index within the run.
	Seq int
}

// Source returns the primary source path.
func (d Directive) Source() Path {
	if len(d.Sources) == 0 {
		return ""
	}

	return d.Sources[0]
}

func (d Directive) String() string {
	return fmt.Sprintf("%s %v -> %s (priority %d, %s)", d.Mode, d.Sources, d.Target, d.Priority, d.Origin)
}

// Chain is the ordered list of directives for one target.
type Chain struct {
	Target     Path
	Directives []Directive
}
