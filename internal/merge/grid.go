package merge

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

type gridMode int

const (
	gridOverwrite gridMode = iota
	gridAppend
	gridReplace
)

// cursorRow parses a `<R` / `C>` marker row.
func cursorRow(row []string) (int, int, bool) {
	if len(row) != 2 || !strings.HasPrefix(row[0], "<") || !strings.HasSuffix(row[1], ">") {
		return 0, 0, false
	}

	r, err := strconv.Atoi(strings.TrimSpace(row[0][1:]))
	if err != nil || r < 0 {
		return 0, 0, false
	}

	c, err := strconv.Atoi(strings.TrimSpace(row[1][:len(row[1])-1]))
	if err != nil || c < 0 {
		return 0, 0, false
	}

	return r, c, true
}

// Grid applies a row-script patch to base. The cursor starts at (0, 0).
// Marker rows (`<R`,`C>`, `_append`, `_replace`) only change state; the
// grid grows with empty cells when the cursor moves past its edge.
func Grid(base, patch [][]string) [][]string {
	var (
		row, col int
		mode     gridMode
	)

	for _, p := range patch {
		if r, c, ok := cursorRow(p); ok {
			row, col, mode = r, c, gridOverwrite
			continue
		}

		if len(p) == 1 && p[0] == KeyAppend {
			mode = gridAppend
			continue
		}

		if len(p) == 1 && p[0] == KeyReplace {
			mode = gridReplace
			continue
		}

		switch mode {
		case gridAppend:
			base = append(base, append([]string(nil), p...))
			continue
		case gridReplace:
			base = growRows(base, row+1)
			base[row] = append([]string(nil), p...)
		case gridOverwrite:
			base = growRows(base, row+1)

			for off, cell := range p {
				switch cell {
				case "":
				case KeyDelete:
					base[row] = setCell(base[row], col+off, "")
				default:
					base[row] = setCell(base[row], col+off, cell)
				}
			}
		}

		row++
	}

	return base
}

func growRows(g [][]string, n int) [][]string {
	for len(g) < n {
		g = append(g, []string{})
	}

	return g
}

func setCell(r []string, i int, v string) []string {
	for len(r) <= i {
		r = append(r, "")
	}

	r[i] = v

	return r
}

// ReadGrid decodes comma-separated rows. Rows may differ in length and a
// leading byte-order mark is dropped.
func ReadGrid(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	return rows, nil
}

// WriteGrid encodes rows with minimal quoting and CRLF line endings.
func WriteGrid(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}

	return buf.Bytes(), nil
}

// GridFile merges an encoded patch into encoded base content. A nil base
// means the target does not exist yet.
func GridFile(base, patch []byte) ([]byte, error) {
	prows, err := ReadGrid(patch)
	if err != nil {
		return nil, err
	}

	var brows [][]string

	if base != nil {
		if brows, err = ReadGrid(base); err != nil {
			return nil, err
		}
	}

	return WriteGrid(Grid(brows, prows))
}
