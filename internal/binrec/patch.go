package binrec

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	keyAppend  = "_append"
	keyDelete  = "_delete"
	keyReplace = "_replace"
)

// ErrBadPatch reports a patch document that is not an object of the
// _append, _delete and _replace sections.
var ErrBadPatch = errors.New("malformed binary patch document")

// PendingPatch accumulates the binary patch documents aimed at one target so
// the file is decoded and encoded once no matter how many mods touch it.
type PendingPatch struct {
	Append  []Record
	Delete  []int32
	Replace map[int32]Record

	replaceOrder []int32
}

// NewPendingPatch returns an empty accumulator.
func NewPendingPatch() *PendingPatch {
	return &PendingPatch{Replace: map[int32]Record{}}
}

// Empty reports whether nothing has been accumulated.
func (p *PendingPatch) Empty() bool {
	return len(p.Append) == 0 && len(p.Delete) == 0 && len(p.Replace) == 0
}

// AddAppend queues full records for appending.
func (p *PendingPatch) AddAppend(records ...Record) {
	for _, rec := range records {
		p.Append = append(p.Append, rec.Clone())
	}
}

// AddDelete queues ids for deletion, ignoring ids already queued.
func (p *PendingPatch) AddDelete(ids ...int32) {
	for _, id := range ids {
		if !slices.Contains(p.Delete, id) {
			p.Delete = append(p.Delete, id)
		}
	}
}

// AddReplace queues field overrides for id. Later overrides of the same
// field win.
func (p *PendingPatch) AddReplace(id int32, fields Record) {
	if p.Replace == nil {
		p.Replace = map[int32]Record{}
	}

	cur, ok := p.Replace[id]
	if !ok {
		cur = Record{}
		p.Replace[id] = cur
		p.replaceOrder = append(p.replaceOrder, id)
	}

	for k, v := range fields {
		cur[k] = cloneValue(v)
	}
}

// Merge folds other into p, as if other's documents had been added after
// p's.
func (p *PendingPatch) Merge(other *PendingPatch) {
	if other == nil {
		return
	}

	p.AddAppend(other.Append...)
	p.AddDelete(other.Delete...)

	for _, id := range other.replaceIDs() {
		p.AddReplace(id, other.Replace[id])
	}
}

func (p *PendingPatch) replaceIDs() []int32 {
	if len(p.replaceOrder) == len(p.Replace) {
		return p.replaceOrder
	}

	ids := make([]int32, 0, len(p.Replace))
	for id := range p.Replace {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Apply runs the accumulated operations against records in the order
// append, delete, replace. Each deleted id removes its first match. A
// replace naming an id that is not present is logged and skipped.
func (p *PendingPatch) Apply(schema Schema, records []Record) []Record {
	out := make([]Record, 0, len(records)+len(p.Append))
	for _, rec := range records {
		out = append(out, rec.Clone())
	}

	for _, rec := range p.Append {
		out = append(out, rec.Clone())
	}

	for _, id := range p.Delete {
		if i := findRecord(schema, out, id); i >= 0 {
			out = slices.Delete(out, i, i+1)
		}
	}

	for _, id := range p.replaceIDs() {
		i := findRecord(schema, out, id)
		if i < 0 {
			slog.Warn("Cannot find record to replace", "schema", schema.Name, "id", id)
			continue
		}

		for k, v := range p.Replace[id] {
			out[i][k] = cloneValue(v)
		}
	}

	return out
}

func findRecord(schema Schema, records []Record, id int32) int {
	for i, rec := range records {
		if got, ok := rec.ID(schema); ok && got == id {
			return i
		}
	}

	return -1
}

// ParsePatch decodes one patch document (JSON or YAML) into a fresh
// accumulator. Field values are converted to the schema's types up front so
// a bad document fails before the target is touched.
func ParsePatch(schema Schema, data []byte) (*PendingPatch, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPatch, err)
	}

	patch := NewPendingPatch()

	if raw, ok := doc[keyAppend]; ok {
		items, err := toList(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadPatch, keyAppend, err)
		}

		for i, item := range items {
			rec, err := schema.recordFrom(item, true)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %w", ErrBadPatch, keyAppend, i, err)
			}

			patch.AddAppend(rec)
		}
	}

	if raw, ok := doc[keyDelete]; ok {
		items, err := toList(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadPatch, keyDelete, err)
		}

		for i, item := range items {
			id, err := toInt32(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %w", ErrBadPatch, keyDelete, i, err)
			}

			patch.AddDelete(id)
		}
	}

	if raw, ok := doc[keyReplace]; ok {
		items, err := toList(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBadPatch, keyReplace, err)
		}

		for i, item := range items {
			rec, err := schema.recordFrom(item, false)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %w", ErrBadPatch, keyReplace, i, err)
			}

			id, ok := rec.ID(schema)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d]: missing %s", ErrBadPatch, keyReplace, i, schema.IDField)
			}

			delete(rec, schema.IDField)
			patch.AddReplace(id, rec)
		}
	}

	return patch, nil
}

func (s Schema) recordFrom(raw any, withDefaults bool) (Record, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("want record object, got %T", raw)
	}

	rec := Record{}
	if withDefaults {
		rec = s.NewRecord()
	}

	for k, v := range obj {
		val, err := s.Coerce(k, v)
		if err != nil {
			return nil, err
		}

		rec[k] = val
	}

	return rec, nil
}
