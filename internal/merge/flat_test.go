package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modimporter.dev/pkg/modimporter/internal/mergenode"
	"modimporter.dev/pkg/modimporter/internal/sjson"
)

func flatString(t *testing.T, base, patch string) string {
	t.Helper()

	b, err := sjson.Parse(base)
	require.NoError(t, err)

	p, err := sjson.Parse(patch)
	require.NoError(t, err)

	return sjson.Format(Flat(b, p))
}

func TestFlat(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		patch string
		want  string
	}{
		{
			name:  "scalar overwrite and new key",
			base:  `A = 1 B = "x"`,
			patch: `A = 2 C = true`,
			want:  "A = 2\nB = \"x\"\nC = true\n",
		},
		{
			name:  "delete prunes key but keeps emptied container",
			base:  `A = { X = 1 } B = 2`,
			patch: `A = { X = "_delete" } B = "_delete"`,
			want:  "A = {}\n",
		},
		{
			name:  "append to sequence",
			base:  `L = [1, 2]`,
			patch: `L = ["_append", 3, 4]`,
			want:  "L = [\n  1\n  2\n  3\n  4\n]\n",
		},
		{
			name:  "replace sequence",
			base:  `L = [1, 2]`,
			patch: `L = ["_replace", 9]`,
			want:  "L = [\n  9\n]\n",
		},
		{
			name:  "positional sequence merge",
			base:  `L = [{ A = 1 }, { A = 2 }]`,
			patch: `L = [{ B = 1 }]`,
			want:  "L = [\n  {\n    A = 1\n    B = 1\n  }\n  {\n    A = 2\n  }\n]\n",
		},
		{
			name:  "sparse sequence patches one index",
			base:  `L = [0, 1, 2, 3]`,
			patch: `L = { _sequence = true, 2 = "two" }`,
			want:  "L = [\n  0\n  1\n  \"two\"\n  3\n]\n",
		},
		{
			name:  "sparse sequence on missing key drops gaps",
			base:  ``,
			patch: `L = { _sequence = true, 2 = "two" }`,
			want:  "L = [\n  \"two\"\n]\n",
		},
		{
			name:  "replace mapping wholesale",
			base:  `M = { A = 1, B = 2 }`,
			patch: `M = { _replace = true, C = 3 }`,
			want:  "M = {\n  C = 3\n}\n",
		},
		{
			name:  "kind mismatch patch wins",
			base:  `M = { A = 1 }`,
			patch: `M = [1]`,
			want:  "M = [\n  1\n]\n",
		},
		{
			name:  "search in sequence",
			base:  `U = [{ Name = "Zeus", P = 1 }, { Name = "Hera", P = 1 }, { Name = "Zeus", P = 5 }]`,
			patch: `U = ["_search", [{ Name = "Zeus" }, { P = 9 }]]`,
			want: "U = [\n  {\n    Name = \"Zeus\"\n    P = 9\n  }\n  {\n    Name = \"Hera\"\n    P = 1\n  }\n" +
				"  {\n    Name = \"Zeus\"\n    P = 9\n  }\n]\n",
		},
		{
			name:  "search in mapping values",
			base:  `U = { a = { Kind = "x", V = 1 }, b = { Kind = "y", V = 1 } }`,
			patch: `U = { _search = [{ Kind = "y" }, { V = "_delete" }] }`,
			want:  "U = {\n  a = {\n    Kind = \"x\"\n    V = 1\n  }\n  b = {\n    Kind = \"y\"\n  }\n}\n",
		},
		{
			name:  "search on missing key is a no-op",
			base:  `A = 1`,
			patch: `U = ["_search", [{ K = 1 }, { K = 2 }]]`,
			want:  "A = 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flatString(t, tt.base, tt.patch))
		})
	}
}

func TestFlat_DeleteThenAppend(t *testing.T) {
	first := flatString(t, `K = [1, 2] Other = 1`, `K = "_delete"`)
	require.Equal(t, "Other = 1\n", first)

	second := flatString(t, first, `K = ["_append", "x"]`)
	assert.Equal(t, "Other = 1\nK = [\n  \"x\"\n]\n", second)
}

func TestFlat_NilInputs(t *testing.T) {
	patch := mergenode.NewMapping(mergenode.Entry{Key: "A", Value: mergenode.Lit("1")})

	out := Flat(nil, patch)
	assert.Equal(t, []string{"A"}, out.Keys())

	base := mergenode.NewMapping(mergenode.Entry{Key: "B", Value: mergenode.Lit("2")})
	assert.Same(t, base, Flat(base, nil))
}

func TestFlatFile(t *testing.T) {
	out, err := FlatFile([]byte("A = 1\n"), []byte("B = 2\n"))
	require.NoError(t, err)
	assert.Equal(t, "A = 1\nB = 2\n", string(out))

	_, err = FlatFile([]byte("A = 1\n"), []byte("B = \n"))
	assert.Error(t, err)
}
