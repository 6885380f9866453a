package sjson

import (
	"strings"

	"modimporter.dev/pkg/modimporter/internal/mergenode"
)

const indentUnit = "  "

// Format renders root canonically: one entry per line, two-space indent,
// no commas. Absent nodes are skipped.
func Format(root *mergenode.Mapping) string {
	var b strings.Builder

	for _, e := range root.Entries() {
		if mergenode.IsAbsent(e.Value) {
			continue
		}

		writeEntry(&b, e, 0)
	}

	return b.String()
}

func writeEntry(b *strings.Builder, e mergenode.Entry, depth int) {
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteString(formatKey(e.Key))
	b.WriteString(" = ")
	writeValue(b, e.Value, depth)
	b.WriteByte('\n')
}

func writeValue(b *strings.Builder, n mergenode.Node, depth int) {
	pad := strings.Repeat(indentUnit, depth)

	switch v := n.(type) {
	case mergenode.Scalar:
		if v.Quoted {
			b.WriteString(quote(v.Text))
		} else {
			b.WriteString(v.Text)
		}
	case *mergenode.Mapping:
		if v.Len() == 0 {
			b.WriteString("{}")
			return
		}

		b.WriteString("{\n")

		for _, e := range v.Entries() {
			if mergenode.IsAbsent(e.Value) {
				continue
			}

			writeEntry(b, e, depth+1)
		}

		b.WriteString(pad + "}")
	case *mergenode.Sequence:
		if v.Len() == 0 {
			b.WriteString("[]")
			return
		}

		b.WriteString("[\n")

		for _, item := range v.Items {
			if mergenode.IsAbsent(item) {
				continue
			}

			b.WriteString(pad + indentUnit)
			writeValue(b, item, depth+1)
			b.WriteByte('\n')
		}

		b.WriteString(pad + "]")
	}
}

func formatKey(k string) string {
	if k == "" {
		return `""`
	}

	for _, r := range k {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return quote(k)
		}
	}

	return k
}

func quote(s string) string {
	if strings.Contains(s, "\n") && !strings.Contains(s, `"""`) {
		return `"""` + s + `"""`
	}

	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

	return `"` + r.Replace(s) + `"`
}
