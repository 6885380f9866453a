package directive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// SyntaxError reports a statement that matches no keyword. It aborts the
// whole run.
type SyntaxError struct {
	File m.Path
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("improper command in %s line %d: %s", e.File, e.Line, e.Text)
}

// FS is the read-only view of the content root the parser needs.
type FS interface {
	ReadFile(path m.Path) ([]byte, error)
	ReadDir(path m.Path) ([]m.Path, error)
	IsDir(path m.Path) bool
}

type keyword int

const (
	kwTo keyword = iota
	kwPriority
	kwInclude
	kwDirective
)

type alias struct {
	words []string
	kind  keyword
	mode  m.Mode
}

// aliases is matched in order, so multi-word forms come first.
var aliases = []alias{
	{words: []string{"Load", "Priority"}, kind: kwPriority},
	{words: []string{"Top", "Import"}, kind: kwDirective, mode: m.ModeImportLineTop},
	{words: []string{"TopImport"}, kind: kwDirective, mode: m.ModeImportLineTop},
	{words: []string{"Priority"}, kind: kwPriority},
	{words: []string{"To"}, kind: kwTo},
	{words: []string{"Include"}, kind: kwInclude},
	{words: []string{"Replace"}, kind: kwDirective, mode: m.ModeReplaceWhole},
	{words: []string{"Import"}, kind: kwDirective, mode: m.ModeImportLine},
	{words: []string{"XML"}, kind: kwDirective, mode: m.ModeTreeMerge},
	{words: []string{"SJSON"}, kind: kwDirective, mode: m.ModeFlatMerge},
	{words: []string{"CSV"}, kind: kwDirective, mode: m.ModeGridMerge},
	{words: []string{"Map"}, kind: kwDirective, mode: m.ModeBinaryMerge},
}

// sourceArity is the number of parallel source lists each directive
// consumes. Every current mode reads a single source.
const sourceArity = 1

func match(tokens []string) (alias, []string, bool) {
	for _, a := range aliases {
		if len(tokens) >= len(a.words) && slices.Equal(tokens[:len(a.words)], a.words) {
			return a, tokens[len(a.words):], true
		}
	}

	return alias{}, nil, false
}

// Options configures a Parser.
type Options struct {
	// DefaultTo is the destination list in effect at the top of a script
	// and after an empty To.
	DefaultTo []m.Path
	// DefaultPriority applies before any Priority statement.
	DefaultPriority int
	// BackupDir is excluded from valid destinations and sources.
	BackupDir m.Path
}

// Parser turns scripts into directives. A Parser is not safe for
// concurrent use.
type Parser struct {
	fs   FS
	opts Options
	seq  int
	open []m.Path
}

// NewParser returns a parser reading through fsys.
func NewParser(fsys FS, opts Options) *Parser {
	return &Parser{fs: fsys, opts: opts}
}

// Confined reports whether p may be read or written by a directive: it
// must stay inside the content root and outside the backup store.
func (p *Parser) Confined(path m.Path) bool {
	if path.Escapes() {
		return false
	}

	return p.opts.BackupDir == "" || !path.Within(p.opts.BackupDir)
}

type scope struct {
	file     m.Path
	dir      m.Path
	to       []m.Path
	priority int
}

// ParseFile reads one script and the scripts it includes. A missing script
// yields no directives.
func (p *Parser) ParseFile(file m.Path) ([]m.Directive, error) {
	if !p.Confined(file) {
		slog.Warn("Skipping script outside the content root", "file", file)
		return nil, nil
	}

	if slices.Contains(p.open, file) {
		slog.Warn("Skipping recursive include", "file", file)
		return nil, nil
	}

	data, err := p.fs.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No script found", "file", file)
		return nil, nil
	}

	if err != nil {
		slog.Error("Failed to read script", "file", file, "error", err)
		return nil, fmt.Errorf("failed to read script %s: %w", file, err)
	}

	p.open = append(p.open, file)
	defer func() { p.open = p.open[:len(p.open)-1] }()

	sc := &scope{
		file:     file,
		dir:      file.Dir(),
		to:       p.opts.DefaultTo,
		priority: p.opts.DefaultPriority,
	}

	var out []m.Directive

	for _, stmt := range Lex(string(data)) {
		ds, err := p.statement(sc, stmt)
		if err != nil {
			return nil, err
		}

		out = append(out, ds...)
	}

	return out, nil
}

func (p *Parser) statement(sc *scope, stmt Statement) ([]m.Directive, error) {
	tokens := Tokenize(stmt.Text)
	if len(tokens) == 0 {
		return nil, nil
	}

	kw, args, ok := match(tokens)
	if !ok {
		err := &SyntaxError{File: sc.file, Line: stmt.Line, Text: stmt.Text}
		slog.Error("Improper command", "file", sc.file, "line", stmt.Line, "text", stmt.Text)

		return nil, err
	}

	switch kw.kind {
	case kwTo:
		sc.to = nil
		for _, a := range args {
			sc.to = append(sc.to, m.NormalizePath(a))
		}

		if len(sc.to) == 0 {
			sc.to = p.opts.DefaultTo
		}
	case kwPriority:
		if len(args) == 0 {
			sc.priority = p.opts.DefaultPriority
			break
		}

		// Priorities are 32-bit so negating a top import cannot overflow.
		n, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			slog.Warn("Ignoring invalid priority", "file", sc.file, "line", stmt.Line, "value", args[0], "error", err)
			break
		}

		sc.priority = int(n)
	case kwInclude:
		return p.include(sc, stmt, args)
	case kwDirective:
		if len(args) == 0 {
			slog.Error("Directive without sources", "file", sc.file, "line", stmt.Line, "text", stmt.Text)
			return nil, &SyntaxError{File: sc.file, Line: stmt.Line, Text: stmt.Text}
		}

		return p.emit(sc, stmt, kw.mode, args), nil
	}

	return nil, nil
}

func (p *Parser) include(sc *scope, stmt Statement, args []string) ([]m.Directive, error) {
	if len(args) == 0 {
		return nil, &SyntaxError{File: sc.file, Line: stmt.Line, Text: stmt.Text}
	}

	var out []m.Directive

	for _, a := range args {
		target := sc.dir.Join(m.NormalizePath(a).String())

		files := []m.Path{target}

		if p.fs.IsDir(target) {
			entries, err := p.fs.ReadDir(target)
			if err != nil {
				slog.Error("Failed to list include directory", "dir", target, "error", err)
				return nil, fmt.Errorf("failed to list %s: %w", target, err)
			}

			files = entries
		}

		for _, f := range files {
			if p.fs.IsDir(f) {
				continue
			}

			ds, err := p.ParseFile(f)
			if err != nil {
				return nil, err
			}

			out = append(out, ds...)
		}
	}

	return out, nil
}

// emit produces one directive per destination and per resolved source
// tuple. Arguments are consumed in groups of sourceArity; a directory
// source expands to its entries and the expanded lists are zipped,
// truncating to the shortest.
func (p *Parser) emit(sc *scope, stmt Statement, mode m.Mode, args []string) []m.Directive {
	var out []m.Directive

	n := sourceArity
	priority := sc.priority
	prepend := mode == m.ModeImportLineTop

	if prepend {
		priority = -priority
	}

	for _, dest := range sc.to {
		if !p.Confined(dest) {
			slog.Warn("Skipping destination outside the content root", "file", sc.file, "line", stmt.Line, "target", dest)
			continue
		}

		for start := 0; start+n <= len(args); start += n {
			for _, sources := range p.fanOut(sc, args[start:start+n]) {
				p.seq++

				out = append(out, m.Directive{
					Mode:     mode,
					Sources:  sources,
					Target:   dest,
					Priority: priority,
					Prepend:  prepend,
					Origin:   m.Origin{File: sc.file, Line: stmt.Line},
					Seq:      p.seq,
				})
			}
		}
	}

	return out
}

func (p *Parser) fanOut(sc *scope, group []string) [][]m.Path {
	var (
		lists  [][]m.Path
		single []bool
		count  = -1
	)

	for _, a := range group {
		src := sc.dir.Join(m.NormalizePath(a).String())

		if p.fs.IsDir(src) {
			entries, err := p.fs.ReadDir(src)
			if err != nil {
				slog.Warn("Failed to list source directory", "dir", src, "error", err)
				continue
			}

			var files []m.Path

			for _, e := range entries {
				if p.Confined(e) && !p.fs.IsDir(e) {
					files = append(files, e)
				}
			}

			lists = append(lists, files)
			single = append(single, false)

			if count < 0 || len(files) < count {
				count = len(files)
			}

			continue
		}

		if !p.Confined(src) {
			slog.Warn("Skipping source outside the content root", "file", sc.file, "source", src)
			continue
		}

		lists = append(lists, []m.Path{src})
		single = append(single, true)
	}

	if len(lists) == 0 {
		return nil
	}

	if count < 0 {
		count = 1
	}

	out := make([][]m.Path, 0, count)

	for j := range count {
		tuple := make([]m.Path, len(lists))
		for i, l := range lists {
			if single[i] {
				tuple[i] = l[0]
			} else {
				tuple[i] = l[j]
			}
		}

		out = append(out, tuple)
	}

	return out
}
