// Package merge implements the structural mergers: markup trees, flat
// key/value records and cell grids. Each merger mutates the base document
// and returns it, and each has a byte-level entry point used when patching
// files.
package merge

import (
	"fmt"

	"modimporter.dev/pkg/modimporter/internal/xmltree"
)

// Reserved words of the patch vocabularies.
const (
	KeyAppend   = "_append"
	KeyReplace  = "_replace"
	KeyDelete   = "_delete"
	KeySearch   = "_search"
	KeySequence = "_sequence"
)

func truthy(v string) bool {
	switch v {
	case "0", "false", "False":
		return false
	default:
		return true
	}
}

func markerSet(e *xmltree.Element, name string) bool {
	v, ok := e.Get(name)
	return ok && truthy(v)
}

// Tree merges patch into base. Children are paired positionally within
// groups of the same tag; a patch child without a partner is appended.
// The root elements are merged regardless of their tags.
func Tree(base, patch *xmltree.Document) *xmltree.Document {
	if patch == nil || patch.Root == nil {
		return base
	}

	if base == nil || base.Root == nil {
		out := &xmltree.Document{Root: materializeElement(patch.Root)}
		if out.Root == nil {
			return base
		}

		if base != nil {
			out.Declaration = base.Declaration
		}

		if out.Declaration == "" {
			out.Declaration = patch.Declaration
		}

		return out
	}

	mergeAttrs(base.Root, patch.Root)
	mergeChildren(base.Root, patch.Root)

	return base
}

func mergeChildren(dst, src *xmltree.Element) {
	for _, tag := range src.ChildTags() {
		// Partners are fixed before any deletion so indices stay stable.
		partners := dst.ChildrenNamed(tag)

		for i, pc := range src.ChildrenNamed(tag) {
			if i >= len(partners) {
				if added := materializeElement(pc); added != nil {
					dst.Children = append(dst.Children, added)
				}

				continue
			}

			bc := partners[i]

			switch {
			case markerSet(pc, KeyDelete):
				dst.Remove(bc)
			case markerSet(pc, KeyReplace):
				replaceElement(bc, pc)
			default:
				mergeElement(bc, pc)
			}
		}
	}
}

// replaceElement swaps the attributes and text of dst for those of src.
// The children of dst are kept and the children of src are ignored.
func replaceElement(dst, src *xmltree.Element) {
	repl := src.Clone()
	repl.Del(KeyReplace)
	repl.Del(KeyDelete)

	dst.Attrs = repl.Attrs
	dst.Text = repl.Text
	dst.Tail = repl.Tail
}

func mergeElement(dst, src *xmltree.Element) {
	if !blankText(src.Text) {
		dst.Text = src.Text
	}

	if !blankText(src.Tail) {
		dst.Tail = src.Tail
	}

	mergeAttrs(dst, src)
	mergeChildren(dst, src)
}

func mergeAttrs(dst, src *xmltree.Element) {
	for _, a := range src.Attrs {
		if a.Name == KeyDelete || a.Name == KeyReplace {
			continue
		}

		dst.Set(a.Name, a.Value)
	}
}

// materializeElement turns a patch element into plain content for a place
// with no base partner: deleted elements vanish, markers are stripped.
func materializeElement(e *xmltree.Element) *xmltree.Element {
	if markerSet(e, KeyDelete) {
		return nil
	}

	out := e.Clone()
	out.Del(KeyReplace)
	out.Del(KeyDelete)
	out.Children = out.Children[:0]

	for _, c := range e.Children {
		if mc := materializeElement(c); mc != nil {
			out.Children = append(out.Children, mc)
		}
	}

	return out
}

func blankText(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}

	return true
}

// TreeFile merges an encoded patch into encoded base content. A nil base
// means the target does not exist yet.
func TreeFile(base, patch []byte) ([]byte, error) {
	pdoc, err := xmltree.Parse(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xml patch: %w", err)
	}

	var bdoc *xmltree.Document

	if base != nil {
		if bdoc, err = xmltree.Parse(base); err != nil {
			return nil, fmt.Errorf("failed to parse xml target: %w", err)
		}
	}

	out := Tree(bdoc, pdoc)
	if out == nil {
		return []byte{}, nil
	}

	return xmltree.Write(out), nil
}
