package merge

import (
	"fmt"
	"strconv"

	"modimporter.dev/pkg/modimporter/internal/mergenode"
	"modimporter.dev/pkg/modimporter/internal/sjson"
)

// Flat merges patch into base and prunes Absent nodes from the result.
// A nil base is treated as an empty document.
func Flat(base, patch *mergenode.Mapping) *mergenode.Mapping {
	if base == nil {
		base = mergenode.NewMapping()
	}

	if patch == nil {
		return base
	}

	out, ok := mergenode.Prune(flat(base, patch)).(*mergenode.Mapping)
	if !ok {
		// the root was deleted or replaced by a non-mapping
		return mergenode.NewMapping()
	}

	return out
}

func isWord(n mergenode.Node, word string) bool {
	s, ok := n.(mergenode.Scalar)
	return ok && s.Text == word
}

func scalarTruthy(n mergenode.Node) bool {
	s, ok := n.(mergenode.Scalar)
	if !ok {
		return n != nil
	}

	switch s.Text {
	case "", "null":
		return false
	default:
		return truthy(s.Text)
	}
}

func leading(s *mergenode.Sequence, word string) bool {
	return s.Len() > 0 && isWord(s.Items[0], word)
}

// sparse turns a `_sequence` mapping into a sequence with Absent gaps.
// Keys that are not non-negative integers are ignored.
func sparse(m *mergenode.Mapping) *mergenode.Sequence {
	out := mergenode.NewSequence()

	for _, e := range m.Entries() {
		idx, err := strconv.Atoi(e.Key)
		if err != nil || idx < 0 {
			continue
		}

		for len(out.Items) <= idx {
			out.Items = append(out.Items, mergenode.Absent{})
		}

		out.Items[idx] = e.Value
	}

	return out
}

func isSequenceMapping(n mergenode.Node) (*mergenode.Mapping, bool) {
	m, ok := n.(*mergenode.Mapping)
	if !ok {
		return nil, false
	}

	v, ok := m.Get(KeySequence)

	return m, ok && scalarTruthy(v)
}

func flat(base, patch mergenode.Node) mergenode.Node {
	if patch == nil {
		return base
	}

	if _, ok := patch.(mergenode.Absent); ok {
		return base
	}

	if isWord(patch, KeyDelete) {
		return mergenode.Absent{}
	}

	if m, ok := isSequenceMapping(patch); ok {
		patch = sparse(m)
	}

	switch p := patch.(type) {
	case *mergenode.Sequence:
		return flatSequence(base, p)
	case *mergenode.Mapping:
		return flatMapping(base, p)
	default:
		return patch
	}
}

func flatSequence(base mergenode.Node, p *mergenode.Sequence) mergenode.Node {
	b, ok := base.(*mergenode.Sequence)

	switch {
	case leading(p, KeySearch):
		if !ok || p.Len() < 2 {
			return base
		}

		search(b, p.Items[1])

		return b
	case !ok:
		return materialize(p)
	case leading(p, KeyAppend):
		for _, item := range p.Items[1:] {
			if v := materialize(item); !mergenode.IsAbsent(v) {
				b.Items = append(b.Items, v)
			}
		}

		return b
	case leading(p, KeyReplace):
		return materialize(p)
	}

	for i, item := range p.Items {
		if i < len(b.Items) {
			b.Items[i] = flat(b.Items[i], item)
			continue
		}

		b.Items = append(b.Items, flat(mergenode.Absent{}, item))
	}

	return b
}

func flatMapping(base mergenode.Node, p *mergenode.Mapping) mergenode.Node {
	b, ok := base.(*mergenode.Mapping)

	if pairs, found := p.Get(KeySearch); found {
		if ok {
			search(b, pairs)
			return b
		}

		return base
	}

	if !ok {
		return materialize(p)
	}

	if v, found := p.Get(KeyReplace); found && scalarTruthy(v) {
		return materialize(p)
	}

	for _, e := range p.Entries() {
		cur, found := b.Get(e.Key)
		if !found {
			cur = mergenode.Absent{}
		}

		b.Set(e.Key, flat(cur, e.Value))
	}

	return b
}

// search rewrites every element of base that matches a pattern. pairs is a
// sequence alternating pattern and patch; a trailing pattern is ignored.
func search(base mergenode.Node, pairs mergenode.Node) {
	list, ok := pairs.(*mergenode.Sequence)
	if !ok {
		return
	}

	for i := 0; i+1 < len(list.Items); i += 2 {
		pattern, patch := list.Items[i], list.Items[i+1]

		switch b := base.(type) {
		case *mergenode.Sequence:
			for j, item := range b.Items {
				if mergenode.Match(item, pattern) {
					b.Items[j] = flat(item, patch)
				}
			}
		case *mergenode.Mapping:
			for _, e := range b.Entries() {
				if mergenode.Match(e.Value, pattern) {
					b.Set(e.Key, flat(e.Value, patch))
				}
			}
		}
	}
}

// materialize converts a patch node into plain content for a position
// where it does not merge with anything: markers are stripped, `_delete`
// becomes Absent and `_sequence` mappings become sequences.
func materialize(n mergenode.Node) mergenode.Node {
	if isWord(n, KeyDelete) {
		return mergenode.Absent{}
	}

	if m, ok := isSequenceMapping(n); ok {
		n = sparse(m)
	}

	switch v := n.(type) {
	case *mergenode.Sequence:
		items := v.Items

		switch {
		case leading(v, KeySearch):
			return mergenode.Absent{}
		case leading(v, KeyAppend), leading(v, KeyReplace):
			items = items[1:]
		}

		out := mergenode.NewSequence()
		for _, item := range items {
			out.Items = append(out.Items, materialize(item))
		}

		return out
	case *mergenode.Mapping:
		if v.Has(KeySearch) {
			return mergenode.Absent{}
		}

		out := mergenode.NewMapping()

		for _, e := range v.Entries() {
			if e.Key == KeyReplace {
				continue
			}

			out.Set(e.Key, materialize(e.Value))
		}

		return out
	default:
		return n
	}
}

// FlatFile merges an encoded SJSON patch into encoded base content. A nil
// base means the target does not exist yet.
func FlatFile(base, patch []byte) ([]byte, error) {
	pdoc, err := sjson.Parse(string(patch))
	if err != nil {
		return nil, fmt.Errorf("failed to parse sjson patch: %w", err)
	}

	var bdoc *mergenode.Mapping

	if base != nil {
		if bdoc, err = sjson.Parse(string(base)); err != nil {
			return nil, fmt.Errorf("failed to parse sjson target: %w", err)
		}
	}

	return []byte(sjson.Format(Flat(bdoc, pdoc))), nil
}
