package binrec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tinySchema = Schema{
	Name:    "tiny",
	Magic:   [4]byte{'T', 'S', 'T', '1'},
	Version: 1,
	IDField: "Id",
	Fields: []Field{
		{Name: "Id", Kind: KindInt32},
		{Name: "Name", Kind: KindNullString},
		{Name: "Groups", Kind: KindGroupNames},
	},
}

func tinyFile() []byte {
	return []byte{
		'T', 'S', 'T', '1',
		1, 0, 0, 0, // version
		1, 0, 0, 0, // count
		7, 0, 0, 0, // Id
		1, 0, 0, 0, 3, 'F', 'o', 'o', // Name, big-endian length
		2, 0, 0, 0, // Groups count
		0, 0, 0, 0, 1, // unused float, inverted flag: empty
		0, 0, 0, 0, 0, 0, 0, 0, 1, 'A', // unused float, flag, "A"
	}
}

func obstacle(id int32, name string) Record {
	rec := ObstacleSchema.NewRecord()
	rec["Id"] = id
	rec["Name"] = StringPtr(name)

	return rec
}

func TestCodec_DecodeLayout(t *testing.T) {
	codec := NewCodec(tinySchema)

	records, err := codec.Decode(tinyFile())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int32(7), rec["Id"])
	assert.Equal(t, StringPtr("Foo"), rec["Name"])
	assert.Equal(t, []string{"", "A"}, rec["Groups"])

	out, err := codec.Encode(records)
	require.NoError(t, err)
	assert.Equal(t, tinyFile(), out)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(ObstacleSchema)

	full := obstacle(42, "Brazier")
	full["Comments"] = StringPtr("")
	full["AttachedIDs"] = []int32{1, -2, 3}
	full["Points"] = []Point{{X: 1.5, Y: -2}, {X: 0, Y: 3}}
	full["GroupNames"] = []string{"Lights", "", "Props"}
	full["Color"] = Color{R: 255, G: 128, B: 1, A: 200}
	full["CreatesShadows"] = True
	full["StopsLight"] = False
	full["DataType"] = "Component"
	full["Location"] = Point{X: 100.25, Y: -8}

	tests := []struct {
		name    string
		records []Record
	}{
		{name: "no records", records: []Record{}},
		{name: "defaults", records: []Record{ObstacleSchema.NewRecord()}},
		{name: "populated", records: []Record{full, obstacle(43, "Pillar")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.Encode(tt.records)
			require.NoError(t, err)

			first, err := codec.Decode(data)
			require.NoError(t, err)
			require.Equal(t, tt.records, first)

			again, err := codec.Encode(first)
			require.NoError(t, err)
			assert.Equal(t, data, again)

			second, err := codec.Decode(again)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestCodec_HeaderErrors(t *testing.T) {
	codec := NewCodec(tinySchema)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		reason string
	}{
		{
			name:   "bad magic",
			mutate: func(b []byte) []byte { b[0] = 'X'; return b },
			reason: "bad magic",
		},
		{
			name:   "bad version",
			mutate: func(b []byte) []byte { b[4] = 9; return b },
			reason: "unsupported schema version 9",
		},
		{
			name:   "short header",
			mutate: func(b []byte) []byte { return b[:6] },
			reason: ErrTruncated.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.mutate(tinyFile()))
			require.Error(t, err)

			var codecErr *CodecError
			require.ErrorAs(t, err, &codecErr)
			assert.Contains(t, codecErr.Reason, tt.reason)
		})
	}
}

func TestCodec_Truncated(t *testing.T) {
	codec := NewCodec(ObstacleSchema)

	data, err := codec.Encode([]Record{obstacle(1, "Foo")})
	require.NoError(t, err)

	_, err = codec.Decode(data[:len(data)-1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))

	var codecErr *CodecError
	require.ErrorAs(t, err, &codecErr)
	assert.Equal(t, 0, codecErr.Record)
	assert.Equal(t, "UseBoundsForSortArea", codecErr.Field)
}

func TestCodec_TrailingBytesIgnored(t *testing.T) {
	codec := NewCodec(tinySchema)

	data := append(tinyFile(), []byte("MODIFIED by Mod Importer @ 2024")...)

	records, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCodec_NegativeZeroNormalized(t *testing.T) {
	codec := NewCodec(ObstacleSchema)

	pos := obstacle(1, "Foo")
	neg := obstacle(1, "Foo")
	neg["Angle"] = float32(math.Copysign(0, -1))

	a, err := codec.Encode([]Record{pos})
	require.NoError(t, err)

	b, err := codec.Encode([]Record{neg})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCodec_EncodeErrors(t *testing.T) {
	codec := NewCodec(ObstacleSchema)

	tests := []struct {
		name   string
		mutate func(Record)
		reason string
	}{
		{name: "missing field", mutate: func(r Record) { delete(r, "Hue") }, reason: "missing field"},
		{name: "wrong type", mutate: func(r Record) { r["Id"] = "one" }, reason: "unexpected value type string"},
		{name: "non ascii", mutate: func(r Record) { r["Name"] = StringPtr("café") }, reason: "non-ASCII"},
		{name: "unknown data type", mutate: func(r Record) { r["DataType"] = "Boat" }, reason: "unknown data type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := obstacle(1, "Foo")
			tt.mutate(rec)

			_, err := codec.Encode([]Record{rec})

			var codecErr *CodecError
			require.ErrorAs(t, err, &codecErr)
			assert.Contains(t, codecErr.Reason, tt.reason)
		})
	}
}

func TestCodec_LayoutTables(t *testing.T) {
	schema := Schema{
		Name:    "tri",
		Magic:   [4]byte{'T', 'R', 'I', '1'},
		Version: 2,
		Fields: []Field{
			{Name: "Flag", Kind: KindTriBool},
			{Name: "Type", Kind: KindDataType},
		},
	}
	codec := NewCodec(schema)

	data, err := codec.Encode([]Record{
		{"Flag": True, "Type": "Text"},
		{"Flag": False, "Type": "Component"},
		{"Flag": Undefined, "Type": "Unit"},
	})
	require.NoError(t, err)

	body := data[12:]
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, body[0:8])
	assert.Equal(t, []byte{2, 0, 0, 0, 9, 0, 0, 0}, body[8:16])
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, body[16:24])
}

func TestCodec_GroupNameFlagSense(t *testing.T) {
	records := []Record{{"Id": int32(7), "Name": StringPtr("Foo"), "Groups": []string{"A"}}}

	inverted, err := NewCodec(tinySchema).Encode(records)
	require.NoError(t, err)

	plain := NewCodec(tinySchema)
	plain.Layout.GroupNameFlagInverted = false

	direct, err := plain.Encode(records)
	require.NoError(t, err)

	// header 12, Id 4, Name 8, group count 4, unused float 4
	const flagOffset = 32
	assert.Equal(t, byte(0), inverted[flagOffset])
	assert.Equal(t, byte(1), direct[flagOffset])

	decoded, err := plain.Decode(direct)
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}
