package binrec

import (
	"fmt"
	"math"
)

// NewRecord returns a record holding the schema defaults.
func (s Schema) NewRecord() Record {
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		rec[f.Name] = zeroValue(f)
	}

	return rec
}

func zeroValue(f Field) any {
	if f.Default != nil {
		return cloneValue(f.Default)
	}

	switch f.Kind {
	case KindBool:
		return false
	case KindInt32:
		return int32(0)
	case KindFloat:
		return float32(0)
	case KindColor:
		return Color{}
	case KindNullString:
		return (*string)(nil)
	case KindTriBool:
		return Undefined
	case KindDataType:
		return DefaultLayout.DataTypes[0]
	case KindInt32List:
		return []int32{}
	case KindPoint:
		return Point{}
	case KindPointList:
		return []Point{}
	case KindGroupNames:
		return []string{}
	default:
		return nil
	}
}

// Coerce converts a loosely typed document value (as produced by a YAML or
// JSON decoder) into the Go type the codec expects for field name.
func (s Schema) Coerce(name string, raw any) (any, error) {
	f, ok := s.Field(name)
	if !ok {
		return nil, fmt.Errorf("unknown field %q in %s record", name, s.Name)
	}

	v, err := coerceKind(f, raw)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}

	return v, nil
}

//nolint:cyclop // one case per wire kind
func coerceKind(f Field, raw any) (any, error) {
	switch f.Kind {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", raw)
		}

		return b, nil
	case KindInt32:
		return toInt32(raw)
	case KindFloat:
		return toFloat32(raw)
	case KindColor:
		return toColor(raw)
	case KindNullString:
		if raw == nil {
			return (*string)(nil), nil
		}

		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want string or null, got %T", raw)
		}

		return &str, nil
	case KindTriBool:
		if raw == nil {
			return Undefined, nil
		}

		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool or null, got %T", raw)
		}

		return TriOf(b), nil
	case KindDataType:
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want data type name, got %T", raw)
		}

		if indexOf(DefaultLayout.DataTypes, name) < 0 {
			return nil, fmt.Errorf("unknown data type %q", name)
		}

		return name, nil
	case KindInt32List:
		items, err := toList(raw)
		if err != nil {
			return nil, err
		}

		out := make([]int32, 0, len(items))

		for _, item := range items {
			n, err := toInt32(item)
			if err != nil {
				return nil, err
			}

			out = append(out, n)
		}

		return out, nil
	case KindPoint:
		return toPoint(raw)
	case KindPointList:
		items, err := toList(raw)
		if err != nil {
			return nil, err
		}

		out := make([]Point, 0, len(items))

		for _, item := range items {
			p, err := toPoint(item)
			if err != nil {
				return nil, err
			}

			out = append(out, p)
		}

		return out, nil
	case KindGroupNames:
		items, err := toList(raw)
		if err != nil {
			return nil, err
		}

		out := make([]string, 0, len(items))

		for _, item := range items {
			switch str := item.(type) {
			case nil:
				out = append(out, "")
			case string:
				out = append(out, str)
			default:
				return nil, fmt.Errorf("want group name string, got %T", item)
			}
		}

		return out, nil
	default:
		return nil, fmt.Errorf("unknown field kind %d", f.Kind)
	}
}

func toList(raw any) ([]any, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want list, got %T", raw)
	}

	return items, nil
}

func toInt64(raw any) (int64, error) {
	switch n := raw.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", n)
		}

		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("want integer, got %v", n)
		}

		return int64(n), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", raw)
	}
}

func toInt32(raw any) (int32, error) {
	n, err := toInt64(raw)
	if err != nil {
		return 0, err
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("integer %d out of 32-bit range", n)
	}

	return int32(n), nil
}

func toFloat32(raw any) (float32, error) {
	switch n := raw.(type) {
	case float64:
		return float32(n), nil
	case float32:
		return n, nil
	default:
		i, err := toInt64(raw)
		if err != nil {
			return 0, fmt.Errorf("want number, got %T", raw)
		}

		return float32(i), nil
	}
}

func toByte(raw any) (uint8, error) {
	n, err := toInt64(raw)
	if err != nil {
		return 0, err
	}

	if n < 0 || n > math.MaxUint8 {
		return 0, fmt.Errorf("color channel %d out of range", n)
	}

	return uint8(n), nil
}

func toColor(raw any) (Color, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Color{}, fmt.Errorf("want color object, got %T", raw)
	}

	var (
		col Color
		err error
	)

	channels := map[string]*uint8{"R": &col.R, "G": &col.G, "B": &col.B, "A": &col.A}
	for key, dst := range channels {
		v, ok := obj[key]
		if !ok {
			continue
		}

		if *dst, err = toByte(v); err != nil {
			return Color{}, fmt.Errorf("channel %s: %w", key, err)
		}
	}

	return col, nil
}

func toPoint(raw any) (Point, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Point{}, fmt.Errorf("want point object, got %T", raw)
	}

	var (
		p   Point
		err error
	)

	if v, ok := obj["X"]; ok {
		if p.X, err = toFloat32(v); err != nil {
			return Point{}, fmt.Errorf("X: %w", err)
		}
	}

	if v, ok := obj["Y"]; ok {
		if p.Y, err = toFloat32(v); err != nil {
			return Point{}, fmt.Errorf("Y: %w", err)
		}
	}

	return p, nil
}
