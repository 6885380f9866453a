package binrec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// CodecError reports a header mismatch, a truncated stream or a value that
// cannot be represented.
type CodecError struct {
	Offset int
	Record int
	Field  string
	Reason string
	Err    error
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("binrec: offset %d: %s", e.Offset, e.Reason)
	}

	return fmt.Sprintf("binrec: record %d field %s at offset %d: %s", e.Record, e.Field, e.Offset, e.Reason)
}

// ErrTruncated is wrapped by CodecError when the stream ends mid-field.
var ErrTruncated = errors.New("unexpected end of stream")

// Codec converts between bytes and records for one schema.
type Codec struct {
	Schema Schema
	Layout Layout
}

// NewCodec returns a codec using DefaultLayout.
func NewCodec(schema Schema) *Codec {
	return &Codec{Schema: schema, Layout: DefaultLayout}
}

type reader struct {
	buf    []byte
	off    int
	record int
	field  string
}

func (r *reader) fail(reason string) *CodecError {
	return &CodecError{Offset: r.off, Record: r.record, Field: r.field, Reason: reason}
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		err := r.fail(ErrTruncated.Error())
		err.Err = ErrTruncated

		return nil, err
	}

	b := r.buf[r.off : r.off+n]
	r.off += n

	return b, nil
}

func (r *reader) u32(order binary.ByteOrder) (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return order.Uint32(b), nil
}

func (r *reader) float() (float32, error) {
	v, err := r.u32(binary.LittleEndian)
	return math.Float32frombits(v), err
}

func (r *reader) boolean() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}

	return b[0] != 0, nil
}

func (r *reader) count() (int, error) {
	v, err := r.u32(binary.LittleEndian)
	if err != nil {
		return 0, err
	}

	n := int(int32(v))
	if n < 0 {
		return 0, r.fail(fmt.Sprintf("negative count %d", n))
	}

	return n, nil
}

func (c *Codec) str(r *reader) (string, error) {
	n, err := r.u32(c.Layout.StringLength)
	if err != nil {
		return "", err
	}

	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}

	for _, ch := range b {
		if ch > 0x7f {
			return "", r.fail(fmt.Sprintf("non-ASCII byte 0x%02x in string", ch))
		}
	}

	return string(b), nil
}

// Decode parses a whole file. Bytes after the last record are ignored.
func (c *Codec) Decode(data []byte) ([]Record, error) {
	r := &reader{buf: data, record: -1}

	magic, err := r.take(4)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(magic, c.Schema.Magic[:]) {
		return nil, r.fail(fmt.Sprintf("bad magic %q, want %q", magic, c.Schema.Magic[:]))
	}

	version, err := r.u32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	if version != c.Schema.Version {
		return nil, r.fail(fmt.Sprintf("unsupported schema version %d, want %d", version, c.Schema.Version))
	}

	count, err := r.u32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, min(int(count), len(data)/4))

	for i := 0; i < int(count); i++ {
		r.record = i
		rec := make(Record, len(c.Schema.Fields))

		for _, f := range c.Schema.Fields {
			r.field = f.Name

			v, err := c.decodeField(r, f)
			if err != nil {
				return nil, err
			}

			rec[f.Name] = v
		}

		r.field = ""
		records = append(records, rec)
	}

	return records, nil
}

//nolint:cyclop // one case per wire kind
func (c *Codec) decodeField(r *reader, f Field) (any, error) {
	switch f.Kind {
	case KindBool:
		return r.boolean()
	case KindInt32:
		v, err := r.u32(binary.LittleEndian)
		return int32(v), err
	case KindFloat:
		return r.float()
	case KindColor:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}

		return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
	case KindNullString:
		present, err := r.boolean()
		if err != nil || !present {
			return (*string)(nil), err
		}

		s, err := c.str(r)

		return &s, err
	case KindTriBool:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}

		switch b[0] {
		case c.Layout.TriTrue:
			return True, nil
		case c.Layout.TriFalse:
			return False, nil
		default:
			return Undefined, nil
		}
	case KindDataType:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}

		if int(b[0]) >= len(c.Layout.DataTypes) {
			return nil, r.fail(fmt.Sprintf("data type index %d out of range", b[0]))
		}

		return c.Layout.DataTypes[b[0]], nil
	case KindInt32List:
		n, err := r.count()
		if err != nil {
			return nil, err
		}

		out := make([]int32, 0, min(n, len(r.buf)/4))

		for range n {
			v, err := r.u32(binary.LittleEndian)
			if err != nil {
				return nil, err
			}

			out = append(out, int32(v))
		}

		return out, nil
	case KindPoint:
		return c.point(r)
	case KindPointList:
		n, err := r.count()
		if err != nil {
			return nil, err
		}

		out := make([]Point, 0, min(n, len(r.buf)/8))

		for range n {
			p, err := c.point(r)
			if err != nil {
				return nil, err
			}

			out = append(out, p)
		}

		return out, nil
	case KindGroupNames:
		return c.groupNames(r)
	default:
		return nil, r.fail(fmt.Sprintf("unknown field kind %d", f.Kind))
	}
}

func (c *Codec) point(r *reader) (Point, error) {
	x, err := r.float()
	if err != nil {
		return Point{}, err
	}

	y, err := r.float()

	return Point{X: x, Y: y}, err
}

func (c *Codec) groupNames(r *reader) ([]string, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, min(n, len(r.buf)/5))

	for range n {
		// unused float preceding each entry
		if _, err := r.take(4); err != nil {
			return nil, err
		}

		flag, err := r.boolean()
		if err != nil {
			return nil, err
		}

		if flag == c.Layout.GroupNameFlagInverted {
			out = append(out, "")
			continue
		}

		s, err := c.str(r)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}

type writer struct {
	buf    bytes.Buffer
	record int
	field  string
}

func (w *writer) fail(reason string) error {
	return &CodecError{Offset: w.buf.Len(), Record: w.record, Field: w.field, Reason: reason}
}

func (w *writer) u32(order binary.ByteOrder, v uint32) {
	var b [4]byte

	order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) boolean(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}

	w.buf.WriteByte(0)
}

// float writes the all-zero pattern for any value equal to zero, so a
// negative zero produced by arithmetic never leaks a sign bit.
func (w *writer) float(v float32) {
	if v == 0 {
		w.u32(binary.LittleEndian, 0)
		return
	}

	w.u32(binary.LittleEndian, math.Float32bits(v))
}

func (c *Codec) writeStr(w *writer, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return w.fail(fmt.Sprintf("non-ASCII byte 0x%02x in string %q", s[i], s))
		}
	}

	w.u32(c.Layout.StringLength, uint32(len(s)))
	w.buf.WriteString(s)

	return nil
}

// Encode writes the header and records in schema field order.
func (c *Codec) Encode(records []Record) ([]byte, error) {
	w := &writer{record: -1}

	w.buf.Write(c.Schema.Magic[:])
	w.u32(binary.LittleEndian, c.Schema.Version)
	w.u32(binary.LittleEndian, uint32(len(records)))

	for i, rec := range records {
		w.record = i

		for _, f := range c.Schema.Fields {
			w.field = f.Name

			v, ok := rec[f.Name]
			if !ok {
				return nil, w.fail("missing field")
			}

			if err := c.encodeField(w, f, v); err != nil {
				return nil, err
			}
		}
	}

	return w.buf.Bytes(), nil
}

//nolint:cyclop,gocognit // one case per wire kind
func (c *Codec) encodeField(w *writer, f Field, v any) error {
	mismatch := func() error { return w.fail(typeMismatch(f, v).Error()) }

	switch f.Kind {
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return mismatch()
		}

		w.boolean(b)
	case KindInt32:
		n, ok := v.(int32)
		if !ok {
			return mismatch()
		}

		w.u32(binary.LittleEndian, uint32(n))
	case KindFloat:
		x, ok := v.(float32)
		if !ok {
			return mismatch()
		}

		w.float(x)
	case KindColor:
		col, ok := v.(Color)
		if !ok {
			return mismatch()
		}

		w.buf.Write([]byte{col.R, col.G, col.B, col.A})
	case KindNullString:
		s, ok := v.(*string)
		if !ok {
			return mismatch()
		}

		w.boolean(s != nil)

		if s != nil {
			return c.writeStr(w, *s)
		}
	case KindTriBool:
		t, ok := v.(TriBool)
		if !ok {
			return mismatch()
		}

		b := c.Layout.TriUndefinedByte

		switch t {
		case True:
			b = c.Layout.TriTrue
		case False:
			b = c.Layout.TriFalse
		case Undefined:
		}

		w.buf.Write([]byte{b, 0, 0, 0})
	case KindDataType:
		name, ok := v.(string)
		if !ok {
			return mismatch()
		}

		idx := indexOf(c.Layout.DataTypes, name)
		if idx < 0 {
			return w.fail(fmt.Sprintf("unknown data type %q", name))
		}

		w.buf.Write([]byte{byte(idx), 0, 0, 0})
	case KindInt32List:
		list, ok := v.([]int32)
		if !ok {
			return mismatch()
		}

		w.u32(binary.LittleEndian, uint32(len(list)))

		for _, n := range list {
			w.u32(binary.LittleEndian, uint32(n))
		}
	case KindPoint:
		p, ok := v.(Point)
		if !ok {
			return mismatch()
		}

		w.float(p.X)
		w.float(p.Y)
	case KindPointList:
		list, ok := v.([]Point)
		if !ok {
			return mismatch()
		}

		w.u32(binary.LittleEndian, uint32(len(list)))

		for _, p := range list {
			w.float(p.X)
			w.float(p.Y)
		}
	case KindGroupNames:
		list, ok := v.([]string)
		if !ok {
			return mismatch()
		}

		w.u32(binary.LittleEndian, uint32(len(list)))

		for _, s := range list {
			w.u32(binary.LittleEndian, 0)

			if s == "" {
				w.boolean(c.Layout.GroupNameFlagInverted)
				continue
			}

			w.boolean(!c.Layout.GroupNameFlagInverted)

			if err := c.writeStr(w, s); err != nil {
				return err
			}
		}
	default:
		return w.fail(fmt.Sprintf("unknown field kind %d", f.Kind))
	}

	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}

	return -1
}
