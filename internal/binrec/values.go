package binrec

import (
	"encoding/json"
	"fmt"
)

// Record is one decoded record, keyed by field name. Field order is given
// by the schema that decoded it.
type Record map[string]any

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}

	return out
}

// ID returns the integer Id field.
func (r Record) ID(s Schema) (int32, bool) {
	v, ok := r[s.IDField].(int32)
	return v, ok
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return (*string)(nil)
		}

		s := *t

		return &s
	case []int32:
		return append([]int32(nil), t...)
	case []Point:
		return append([]Point(nil), t...)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Color is an 8-bit RGBA color.
type Color struct {
	R uint8 `json:"R" yaml:"R"`
	G uint8 `json:"G" yaml:"G"`
	B uint8 `json:"B" yaml:"B"`
	A uint8 `json:"A" yaml:"A"`
}

// Point is a 2-D coordinate.
type Point struct {
	X float32 `json:"X" yaml:"X"`
	Y float32 `json:"Y" yaml:"Y"`
}

// TriBool is a boolean that may be undefined.
type TriBool uint8

const (
	// Undefined is neither true nor false.
	Undefined TriBool = iota
	// True is set.
	True
	// False is unset.
	False
)

// TriOf converts a Go bool.
func TriOf(b bool) TriBool {
	if b {
		return True
	}

	return False
}

func (t TriBool) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "null"
	}
}

func (t TriBool) value() any {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return nil
	}
}

// MarshalJSON renders undefined as null.
func (t TriBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.value())
}

// MarshalYAML renders undefined as null.
func (t TriBool) MarshalYAML() (any, error) {
	return t.value(), nil
}

// StringPtr returns a pointer to s, for nullable string fields.
func StringPtr(s string) *string {
	return &s
}

func typeMismatch(f Field, v any) error {
	return fmt.Errorf("field %s (%s): unexpected value type %T", f.Name, f.Kind, v)
}
