package binrec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wI2L/jsondiff"
	"gopkg.in/yaml.v3"
)

// RecordsJSON renders records as a JSON array with each record's fields in
// schema order.
func (s Schema) RecordsJSON(records []Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('[')

	for i, rec := range records {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteByte('{')

		n := 0

		for _, f := range s.Fields {
			v, ok := rec[f.Name]
			if !ok {
				continue
			}

			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("record %d field %s: %w", i, f.Name, err)
			}

			if n > 0 {
				buf.WriteByte(',')
			}

			key, _ := json.Marshal(f.Name)
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
			n++
		}

		buf.WriteByte('}')
	}

	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// FormatJSON is RecordsJSON with two-space indentation.
func (s Schema) FormatJSON(records []Record) ([]byte, error) {
	raw, err := s.RecordsJSON(records)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}

// FormatYAML renders records as a YAML sequence in schema field order.
func (s Schema) FormatYAML(records []Record) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode}

	for i, rec := range records {
		item := &yaml.Node{Kind: yaml.MappingNode}

		for _, f := range s.Fields {
			v, ok := rec[f.Name]
			if !ok {
				continue
			}

			val := &yaml.Node{}
			if err := val.Encode(v); err != nil {
				return nil, fmt.Errorf("record %d field %s: %w", i, f.Name, err)
			}

			item.Content = append(item.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: f.Name}, val)
		}

		root.Content = append(root.Content, item)
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(root); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Diff returns the RFC 6902 operations turning before into after.
func (s Schema) Diff(before, after []Record) (jsondiff.Patch, error) {
	src, err := s.RecordsJSON(before)
	if err != nil {
		return nil, err
	}

	dst, err := s.RecordsJSON(after)
	if err != nil {
		return nil, err
	}

	return jsondiff.CompareJSON(src, dst)
}
