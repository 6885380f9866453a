package domain

import (
	"cmp"
	"log/slog"
	"slices"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// Registry collects the directives of one run keyed by target. It belongs
// to a single run and is not safe for concurrent use.
type Registry struct {
	order  []m.Path
	chains map[m.Path][]m.Directive
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[m.Path][]m.Directive)}
}

// Add records directives in discovery order. Prepend directives go to the
// front of their target's list.
func (r *Registry) Add(directives ...m.Directive) {
	for _, d := range directives {
		list, ok := r.chains[d.Target]
		if !ok {
			r.order = append(r.order, d.Target)
		}

		if d.Prepend {
			list = append([]m.Directive{d}, list...)
		} else {
			list = append(list, d)
		}

		r.chains[d.Target] = list
	}
}

// Len returns the number of targets.
func (r *Registry) Len() int {
	return len(r.order)
}

// Directives returns the number of directives across all targets.
func (r *Registry) Directives() int {
	total := 0
	for _, list := range r.chains {
		total += len(list)
	}

	return total
}

// Chains returns one chain per target in first-seen order. Each chain is
// sorted by ascending priority; equal priorities keep their order.
func (r *Registry) Chains() []m.Chain {
	chains := make([]m.Chain, 0, len(r.order))

	for _, target := range r.order {
		list := slices.Clone(r.chains[target])
		slices.SortStableFunc(list, func(a, b m.Directive) int {
			return cmp.Compare(a.Priority, b.Priority)
		})

		slog.Debug("Sorted chain", "target", target, "directives", list)

		chains = append(chains, m.Chain{Target: target, Directives: list})
	}

	return chains
}
