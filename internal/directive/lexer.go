// Package directive reads mod scripts: a lexer that splits raw text into
// statements, a tokenizer, and a parser that turns statements into patch
// directives.
package directive

import "strings"

const (
	lineComment  = "::"
	blockOpen    = "-:"
	blockClose   = ":-"
	statementSep = ';'
	quoteChar    = '"'
	argDelimiter = ','
)

// Statement is one logical line of a script.
type Statement struct {
	Text string
	// Line is the 1-based physical line the statement starts on.
	Line int
}

type lexState int

const (
	stateNormal lexState = iota
	stateInQuote
	stateInBlockComment
	stateInBlockCommentInQuote
)

// Lex splits a script into statements. Every physical line break ends a
// statement, even inside a block comment. Quoted text keeps its quotes and
// is exempt from comment and separator handling; quotes never span physical
// lines. Empty statements are dropped.
func Lex(body string) []Statement {
	body = strings.TrimPrefix(body, "\ufeff")

	var (
		out     []Statement
		cur     strings.Builder
		state   = stateNormal
		line    = 1
		start   = 1
		blank   = true
		skipEOL bool
	)

	put := func(c byte) {
		if blank && c != ' ' && c != '\t' {
			blank = false
			start = line
		}

		cur.WriteByte(c)
	}

	flush := func() {
		if !blank {
			out = append(out, Statement{Text: strings.TrimSpace(cur.String()), Line: start})
		}

		cur.Reset()

		blank = true
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		next := byte(0)

		if i+1 < len(body) {
			next = body[i+1]
		}

		if c == '\n' {
			switch state {
			case stateNormal, stateInQuote:
				line++
				state = stateNormal
				skipEOL = false

				flush()
			case stateInBlockComment, stateInBlockCommentInQuote:
				line++
				state = stateInBlockComment

				flush()
			}

			continue
		}

		if skipEOL {
			continue
		}

		switch state {
		case stateNormal:
			switch {
			case c == quoteChar:
				state = stateInQuote

				put(c)
			case c == lineComment[0] && next == lineComment[1]:
				skipEOL = true
			case c == blockOpen[0] && next == blockOpen[1]:
				state = stateInBlockComment
				i++
			case c == statementSep:
				flush()
			case c == '\r':
			default:
				put(c)
			}
		case stateInQuote:
			if c == quoteChar {
				state = stateNormal
			}

			put(c)
		case stateInBlockComment:
			switch {
			case c == quoteChar:
				state = stateInBlockCommentInQuote
			case c == blockClose[0] && next == blockClose[1]:
				state = stateNormal
				i++
			}
		case stateInBlockCommentInQuote:
			if c == quoteChar {
				state = stateInBlockComment
			}
		}
	}

	flush()

	return out
}

// Tokenize splits a statement into tokens. A quoted group is one token with
// the quotes removed; elsewhere whitespace and commas separate tokens.
func Tokenize(stmt string) []string {
	var tokens []string

	for i, group := range strings.Split(strings.TrimSpace(stmt), string(quoteChar)) {
		if i%2 == 1 {
			if group != "" {
				tokens = append(tokens, group)
			}

			continue
		}

		fields := strings.FieldsFunc(group, func(r rune) bool {
			return r == argDelimiter || r == ' ' || r == '\t'
		})
		tokens = append(tokens, fields...)
	}

	return tokens
}
