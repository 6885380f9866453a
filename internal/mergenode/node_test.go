package mergenode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_SetKeepsOrder(t *testing.T) {
	m := NewMapping(
		Entry{Key: "b", Value: Lit("1")},
		Entry{Key: "a", Value: Lit("2")},
		Entry{Key: "b", Value: Lit("3")},
	)

	assert.Equal(t, []string{"b", "a"}, m.Keys())

	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, Lit("3"), v)

	m.Delete("b")
	assert.Equal(t, []string{"a"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestPrune(t *testing.T) {
	doc := NewMapping(
		Entry{Key: "keep", Value: Str("x")},
		Entry{Key: "drop", Value: Absent{}},
		Entry{Key: "list", Value: NewSequence(Absent{}, Lit("1"), Absent{}, NewMapping(Entry{Key: "gone", Value: Absent{}}))},
	)

	got := Prune(doc)

	want := NewMapping(
		Entry{Key: "keep", Value: Str("x")},
		Entry{Key: "list", Value: NewSequence(Lit("1"), NewMapping())},
	)
	assert.True(t, Equal(want, got))
	assert.Nil(t, Prune(Absent{}))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Node
		want bool
	}{
		{name: "same scalar", a: Str("a"), b: Str("a"), want: true},
		{name: "quoted differs from bare", a: Str("1"), b: Lit("1"), want: false},
		{name: "mapping order matters", a: NewMapping(Entry{"a", Lit("1")}, Entry{"b", Lit("2")}), b: NewMapping(Entry{"b", Lit("2")}, Entry{"a", Lit("1")}), want: false},
		{name: "sequence", a: NewSequence(Lit("1")), b: NewSequence(Lit("1")), want: true},
		{name: "kind mismatch", a: NewSequence(), b: NewMapping(), want: false},
		{name: "absent and nil", a: Absent{}, b: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestMatch(t *testing.T) {
	data := NewMapping(
		Entry{Key: "Name", Value: Str("Zeus")},
		Entry{Key: "Stats", Value: NewMapping(Entry{Key: "Power", Value: Lit("3")}, Entry{Key: "Rank", Value: Lit("1")})},
		Entry{Key: "Tags", Value: NewSequence(Str("god"), Str("sky"))},
	)

	tests := []struct {
		name    string
		pattern Node
		want    bool
	}{
		{name: "field equals", pattern: NewMapping(Entry{"Name", Str("Zeus")}), want: true},
		{name: "field differs", pattern: NewMapping(Entry{"Name", Str("Hera")}), want: false},
		{name: "nested partial", pattern: NewMapping(Entry{"Stats", NewMapping(Entry{"Power", Lit("3")})}), want: true},
		{name: "missing key", pattern: NewMapping(Entry{"Weapon", Str("Bolt")}), want: false},
		{name: "sequence prefix", pattern: NewMapping(Entry{"Tags", NewSequence(Str("god"))}), want: true},
		{name: "scalar against mapping", pattern: Str("Zeus"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(data, tt.pattern))
		})
	}
}

func TestClone(t *testing.T) {
	orig := NewMapping(Entry{Key: "list", Value: NewSequence(Lit("1"))})
	cp := Clone(orig).(*Mapping)

	v, _ := cp.Get("list")
	v.(*Sequence).Items = append(v.(*Sequence).Items, Lit("2"))

	ov, _ := orig.Get("list")
	assert.Equal(t, 1, ov.(*Sequence).Len())
}
