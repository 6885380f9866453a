// Package sjson reads and writes SJSON, the relaxed JSON dialect used by the
// game's data files: the root object has no braces, keys are bare or
// quoted, `=` or `:` separates key and value, commas are optional and both
// comment styles of C are allowed.
package sjson

import (
	"fmt"
	"strings"

	"modimporter.dev/pkg/modimporter/internal/mergenode"
)

// SyntaxError reports malformed SJSON input.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sjson: line %d col %d: %s", e.Line, e.Col, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokPunct
	tokString
	tokLiteral
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	peek *token
}

func newLexer(src string) *lexer {
	src = strings.TrimPrefix(src, "\ufeff")
	return &lexer{src: []rune(src), line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) at(off int) rune {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}

	return 0
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r
}

func (l *lexer) skipSpace() error {
	for l.pos < len(l.src) {
		r := l.at(0)

		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.at(1) == '/':
			for l.pos < len(l.src) && l.at(0) != '\n' {
				l.advance()
			}
		case r == '/' && l.at(1) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()

			for {
				if l.pos >= len(l.src) {
					return l.errorf(line, col, "unterminated block comment")
				}

				if l.at(0) == '*' && l.at(1) == '/' {
					l.advance()
					l.advance()

					break
				}

				l.advance()
			}
		default:
			return nil
		}
	}

	return nil
}

func isPunct(r rune) bool {
	return strings.ContainsRune("{}[]=:,", r)
}

func (l *lexer) next() (token, error) {
	if l.peek != nil {
		t := *l.peek
		l.peek = nil

		return t, nil
	}

	if err := l.skipSpace(); err != nil {
		return token{}, err
	}

	line, col := l.line, l.col

	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	r := l.at(0)

	switch {
	case isPunct(r):
		l.advance()
		return token{kind: tokPunct, text: string(r), line: line, col: col}, nil
	case r == '"' && l.at(1) == '"' && l.at(2) == '"':
		return l.tripleString(line, col)
	case r == '"':
		return l.quotedString(line, col)
	default:
		var b strings.Builder

		for l.pos < len(l.src) {
			c := l.at(0)
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' || isPunct(c) || c == '"' ||
				(c == '/' && (l.at(1) == '/' || l.at(1) == '*')) {
				break
			}

			b.WriteRune(l.advance())
		}

		return token{kind: tokLiteral, text: b.String(), line: line, col: col}, nil
	}
}

func (l *lexer) tripleString(line, col int) (token, error) {
	for range 3 {
		l.advance()
	}

	var b strings.Builder

	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf(line, col, "unterminated string")
		}

		if l.at(0) == '"' && l.at(1) == '"' && l.at(2) == '"' {
			for range 3 {
				l.advance()
			}

			return token{kind: tokString, text: b.String(), line: line, col: col}, nil
		}

		b.WriteRune(l.advance())
	}
}

func (l *lexer) quotedString(line, col int) (token, error) {
	l.advance()

	var b strings.Builder

	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf(line, col, "unterminated string")
		}

		r := l.advance()

		switch r {
		case '"':
			return token{kind: tokString, text: b.String(), line: line, col: col}, nil
		case '\\':
			if l.pos >= len(l.src) {
				return token{}, l.errorf(line, col, "unterminated string")
			}

			esc := l.advance()

			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '"', '\\', '/':
				b.WriteRune(esc)
			default:
				b.WriteRune('\\')
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (l *lexer) unread(t token) {
	l.peek = &t
}

// Parse reads a whole document. The root is always a mapping.
func Parse(src string) (*mergenode.Mapping, error) {
	l := newLexer(src)

	t, err := l.next()
	if err != nil {
		return nil, err
	}

	if t.kind == tokPunct && t.text == "{" {
		root, err := l.object("}")
		if err != nil {
			return nil, err
		}

		if end, err := l.next(); err != nil {
			return nil, err
		} else if end.kind != tokEOF {
			return nil, l.errorf(end.line, end.col, "unexpected %q after root object", end.text)
		}

		return root, nil
	}

	l.unread(t)

	return l.object("")
}

// object reads entries up to the closing punctuation, or EOF when close is
// empty.
func (l *lexer) object(closer string) (*mergenode.Mapping, error) {
	m := mergenode.NewMapping()

	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}

		switch {
		case t.kind == tokEOF:
			if closer != "" {
				return nil, l.errorf(t.line, t.col, "missing %q", closer)
			}

			return m, nil
		case t.kind == tokPunct && t.text == closer:
			return m, nil
		case t.kind == tokPunct && t.text == ",":
			continue
		case t.kind == tokPunct:
			return nil, l.errorf(t.line, t.col, "unexpected %q, want key", t.text)
		}

		sep, err := l.next()
		if err != nil {
			return nil, err
		}

		if sep.kind != tokPunct || (sep.text != "=" && sep.text != ":") {
			return nil, l.errorf(sep.line, sep.col, "want '=' after key %q", t.text)
		}

		v, err := l.value()
		if err != nil {
			return nil, err
		}

		m.Set(t.text, v)
	}
}

func (l *lexer) array() (*mergenode.Sequence, error) {
	s := mergenode.NewSequence()

	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}

		switch {
		case t.kind == tokEOF:
			return nil, l.errorf(t.line, t.col, "missing ']'")
		case t.kind == tokPunct && t.text == "]":
			return s, nil
		case t.kind == tokPunct && t.text == ",":
			continue
		}

		l.unread(t)

		v, err := l.value()
		if err != nil {
			return nil, err
		}

		s.Items = append(s.Items, v)
	}
}

func (l *lexer) value() (mergenode.Node, error) {
	t, err := l.next()
	if err != nil {
		return nil, err
	}

	switch t.kind {
	case tokString:
		return mergenode.Str(t.text), nil
	case tokLiteral:
		return mergenode.Lit(t.text), nil
	case tokPunct:
		switch t.text {
		case "{":
			return l.object("}")
		case "[":
			return l.array()
		}
	case tokEOF:
		return nil, l.errorf(t.line, t.col, "unexpected end of input, want value")
	}

	return nil, l.errorf(t.line, t.col, "unexpected %q, want value", t.text)
}
