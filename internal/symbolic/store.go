// Package symbolic implements the finite map Path -> SymbolicValue with
// lattice operations (C3, spec §3.3 "Symbolic store" / §3.4 invariants).
package symbolic

import (
	"sort"

	"mir-checker/internal/expr"
	"mir-checker/internal/path"
)

// Store is a finite map from Path to Expression, compared and combined
// structurally. The zero value is an empty store.
type Store struct {
	paths  map[string]path.Path
	values map[string]*expr.Expression
}

// New returns an empty store.
func New() *Store {
	return &Store{paths: map[string]path.Path{}, values: map[string]*expr.Expression{}}
}

// Get returns the value bound to p, if any.
func (s *Store) Get(p path.Path) (*expr.Expression, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[p.Hash()]
	return v, ok
}

// Lookup implements path.Env for refine_paths.
func (s *Store) Lookup(p path.Path) (path.EnvEntry, bool) {
	v, ok := s.Get(p)
	if !ok {
		return nil, false
	}
	return v, true
}

// Set binds p to v. Binding to nil is equivalent to Remove (I6: Bottom
// rvalues remove the path from the store — callers pass the Bottom
// expression explicitly when that's the intended semantics; Set itself
// only special-cases Go nil for ergonomic call sites).
func (s *Store) Set(p path.Path, v *expr.Expression) {
	if s.paths == nil {
		s.paths = map[string]path.Path{}
		s.values = map[string]*expr.Expression{}
	}
	if v == nil {
		s.Remove(p)
		return
	}
	h := p.Hash()
	s.paths[h] = p
	s.values[h] = v
}

// Remove drops p's binding.
func (s *Store) Remove(p path.Path) {
	if s.paths == nil {
		return
	}
	h := p.Hash()
	delete(s.paths, h)
	delete(s.values, h)
}

// Has reports whether p has any binding.
func (s *Store) Has(p path.Path) bool {
	_, ok := s.Get(p)
	return ok
}

// Clone returns a deep-enough copy: the map is copied, Expression nodes are
// immutable and shared.
func (s *Store) Clone() *Store {
	out := New()
	if s == nil {
		return out
	}
	for h, p := range s.paths {
		out.paths[h] = p
		out.values[h] = s.values[h]
	}
	return out
}

// Keys returns a stable, sorted slice of the store's paths (for
// deterministic iteration in the fixpoint iterator and dumps).
func (s *Store) Keys() []path.Path {
	if s == nil {
		return nil
	}
	hashes := make([]string, 0, len(s.paths))
	for h := range s.paths {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	out := make([]path.Path, len(hashes))
	for i, h := range hashes {
		out[i] = s.paths[h]
	}
	return out
}

// DependsOn reports whether any value currently bound in the store, other
// than root's own binding, transitively mentions root (used by dead-variable
// cleanup, spec §4.3: "no symbolic value in the store depends (transitively)
// on the path for local").
func (s *Store) DependsOn(root path.Path) bool {
	if s == nil {
		return false
	}
	rootHash := root.Hash()
	for h, v := range s.values {
		if h == rootHash {
			continue
		}
		if mentionsPath(v, root, 0) {
			return true
		}
	}
	return false
}

func mentionsPath(e *expr.Expression, root path.Path, depth int) bool {
	if e == nil || depth > 64 {
		return false
	}
	if p, ok := e.AsVariablePath(); ok && pathMentions(p, root) {
		return true
	}
	switch {
	case e.Kind == expr.KNumerical || e.Kind == expr.KReference || e.Kind == expr.KDrop:
		return pathMentions(e.Path, root)
	}
	return mentionsPath(e.Operand, root, depth+1) ||
		mentionsPath(e.Left, root, depth+1) ||
		mentionsPath(e.Right, root, depth+1)
}

func pathMentions(p, root path.Path) bool {
	cur := p
	for {
		if cur.Equal(root) {
			return true
		}
		if cur.Kind != path.KindQualified {
			return false
		}
		cur = *cur.Qualifier
	}
}

// Join computes the pointwise join of two stores: a path present in only
// one operand joins against Bottom (i.e. is kept as-is, since x⊔⊥=x),
// matching spec §8 P2's "x ⊔ ⊥ = x" for the symbolic half.
func Join(a, b *Store) *Store {
	out := New()
	seen := map[string]bool{}
	for _, h := range unionHashes(a, b) {
		seen[h] = true
		av, aok := a.values[h]
		bv, bok := b.values[h]
		switch {
		case aok && bok:
			out.values[h] = expr.Join(av, bv)
			out.paths[h] = a.paths[h]
		case aok:
			out.values[h] = av
			out.paths[h] = a.paths[h]
		case bok:
			out.values[h] = bv
			out.paths[h] = b.paths[h]
		}
	}
	return out
}

// Meet computes the meet of two stores. Per spec §9's documented open
// question, this implementation replicates the source's asymmetry: the
// symbolic half of meet keeps the right operand's map verbatim rather than
// intersecting values pointwise (see DESIGN.md, C3).
func Meet(_, b *Store) *Store {
	return b.Clone()
}

// Widen applies the join operator on the symbolic half: the source project
// has no separate symbolic widening, since divergence is bounded entirely
// by the numerical lattice's widening and by MaxExpressionSize collapsing
// runaway Join chains.
func Widen(a, b *Store) *Store {
	return Join(a, b)
}

// Narrow is meet, mirroring the numerical lattice's fallback behavior for
// domains without genuine narrowing (spec §4.4).
func Narrow(a, b *Store) *Store {
	return Meet(a, b)
}

func unionHashes(a, b *Store) []string {
	set := map[string]bool{}
	for h := range a.values {
		set[h] = true
	}
	for h := range b.values {
		set[h] = true
	}
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Leq reports a ≤ b by checking every path bound in a is bound to an equal
// (or join-absorbed) value in b. This is a conservative structural check
// used only for diagnostics/tests; fixpoint termination relies on the
// numerical lattice's Leq (spec §4.1 uses the hybrid domain's leq, which
// delegates to the numerical side per §3.4).
func Leq(a, b *Store) bool {
	for h, av := range a.values {
		bv, ok := b.values[h]
		if !ok {
			return false
		}
		if !av.Equal(bv) && !expr.Join(av, bv).Equal(bv) {
			return false
		}
	}
	return true
}
