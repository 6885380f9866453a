package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

func sources(chain m.Chain) []m.Path {
	var out []m.Path
	for _, d := range chain.Directives {
		out = append(out, d.Source())
	}

	return out
}

func TestRegistry_Chains(t *testing.T) {
	tests := []struct {
		name       string
		directives []m.Directive
		want       []m.Path
	}{
		{
			name: "higher priority applies later regardless of discovery order",
			directives: []m.Directive{
				{Target: "a.xml", Sources: []m.Path{"p20"}, Priority: 20},
				{Target: "a.xml", Sources: []m.Path{"p10"}, Priority: 10},
			},
			want: []m.Path{"p10", "p20"},
		},
		{
			name: "equal priorities keep discovery order",
			directives: []m.Directive{
				{Target: "a.xml", Sources: []m.Path{"first"}, Priority: 100},
				{Target: "a.xml", Sources: []m.Path{"second"}, Priority: 100},
				{Target: "a.xml", Sources: []m.Path{"third"}, Priority: 100},
			},
			want: []m.Path{"first", "second", "third"},
		},
		{
			name: "top imports go to the front with negated priority",
			directives: []m.Directive{
				{Target: "a.xml", Sources: []m.Path{"plain"}, Priority: 100},
				{Target: "a.xml", Sources: []m.Path{"top1"}, Priority: -100, Prepend: true},
				{Target: "a.xml", Sources: []m.Path{"top2"}, Priority: -100, Prepend: true},
			},
			want: []m.Path{"top2", "top1", "plain"},
		},
		{
			name: "extreme priorities order without overflow",
			directives: []m.Directive{
				{Target: "a.xml", Sources: []m.Path{"max"}, Priority: math.MaxInt},
				{Target: "a.xml", Sources: []m.Path{"min"}, Priority: math.MinInt},
				{Target: "a.xml", Sources: []m.Path{"zero"}, Priority: 0},
			},
			want: []m.Path{"min", "zero", "max"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Add(tt.directives...)

			chains := r.Chains()
			require.Len(t, chains, 1)
			assert.Equal(t, tt.want, sources(chains[0]))
		})
	}
}

func TestRegistry_TargetsInFirstSeenOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(
		m.Directive{Target: "b.lua", Sources: []m.Path{"1"}},
		m.Directive{Target: "a.lua", Sources: []m.Path{"2"}},
		m.Directive{Target: "b.lua", Sources: []m.Path{"3"}},
	)

	chains := r.Chains()
	require.Len(t, chains, 2)
	assert.Equal(t, m.Path("b.lua"), chains[0].Target)
	assert.Equal(t, m.Path("a.lua"), chains[1].Target)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, r.Directives())
}
