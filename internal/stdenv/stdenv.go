// Package stdenv implements the primitive library of the initial
// environment.
//
// The manifest decides which names exist, their arity, their cost and the
// grant they require. This package supplies the Go implementations and
// refuses to build an environment unless the two agree exactly: a manifest
// primitive without an implementation, or an implementation the manifest
// does not declare, is a build error rather than a silently missing
// binding.
//
// Primitives never perform I/O and never consult anything outside their
// arguments and the value.Context of the running evaluation.
package stdenv

import (
	"fmt"
	"sort"

	"github.com/roach88/smarm/internal/manifest"
	"github.com/roach88/smarm/internal/value"
)

// Grant names declared by shipped manifests.
const (
	GrantVectorMutation = "vector-mutation"
)

// implementations returns every primitive implementation by name.
func implementations() map[string]value.PrimitiveFunc {
	all := make(map[string]value.PrimitiveFunc)
	for _, group := range []map[string]value.PrimitiveFunc{
		numberPrimitives,
		corePrimitives,
		listPrimitives,
		textPrimitives,
		bytesPrimitives,
		vectorPrimitives,
		cellPrimitives,
	} {
		for name, fn := range group {
			if _, dup := all[name]; dup {
				panic("stdenv: primitive " + name + " implemented twice")
			}
			all[name] = fn
		}
	}
	return all
}

// Names returns the names of all implemented primitives in sorted order.
func Names() []string {
	impls := implementations()
	names := make([]string, 0, len(impls))
	for name := range impls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns the root frame for m with the given grants.
//
// Primitives that require a grant are bound only when the grant is listed.
// Bindings appear in manifest order. Build fails when an implementation is
// missing or undeclared, or when a grant is unknown to m.
func Build(m *manifest.Manifest, grants []string) (*value.Env, error) {
	granted := make(map[string]bool, len(grants))
	for _, g := range grants {
		if !m.HasGrant(g) {
			return nil, fmt.Errorf("unknown grant %q for %s", g, m.Version)
		}
		granted[g] = true
	}

	impls := implementations()
	declared := make(map[string]bool, len(m.Primitives))
	names := make([]value.Symbol, 0, len(m.Primitives))
	vals := make([]value.Value, 0, len(m.Primitives))
	for _, p := range m.Primitives {
		declared[p.Name] = true
		fn, ok := impls[p.Name]
		if !ok {
			return nil, fmt.Errorf("%s declares primitive %q with no implementation", m.Version, p.Name)
		}
		if p.Grant != "" && !granted[p.Grant] {
			continue
		}
		cost, err := CostFunc(p.Cost)
		if err != nil {
			return nil, fmt.Errorf("primitive %q: %w", p.Name, err)
		}
		prim := value.NewPrimitive(p.Name, value.Arity{Min: p.Min, Max: p.Max}, cost, fn)
		names = append(names, value.Symbol(p.Name))
		vals = append(vals, prim)
	}

	for _, name := range Names() {
		if !declared[name] {
			return nil, fmt.Errorf("primitive %q is not declared by %s", name, m.Version)
		}
	}
	return value.NewEnv(names, vals), nil
}
