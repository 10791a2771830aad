// Package wto builds a Weak Topological Order over a function's control-flow
// graph (C6, spec §3.4/§4.1): a nesting of basic blocks into straight-line
// runs and strongly-connected loop components, each loop with a distinguished
// head where the fixpoint iterator applies widening. Grounded on the
// iterative reaching-definitions/live-variables builders in
// other_examples/77767e38_godoctor-godoctor__extras-cfg-df.go.go, which walks
// a *block graph the same shape as mir.Function's Blocks/Predecessors and
// drives a change-until-fixpoint loop — the WTO here replaces that flat
// worklist with Bourdoncle's hierarchical decomposition so widening can be
// targeted at loop heads instead of every block.
package wto

import "mir-checker/internal/mir"

// Element is one entry of a WTO: either a single block (a "vertex") or a
// nested component rooted at a loop head.
type Element struct {
	Vertex      mir.BlockID
	IsComponent bool
	Head        mir.BlockID
	Body        []Element
}

// WTO is the top-level decomposition of a function's reachable blocks.
type WTO struct {
	Elements []Element
}

// Heads returns the set of block IDs that are loop heads anywhere in the
// WTO (including nested components), for quick widening-point membership
// tests by the fixpoint iterator.
func (w *WTO) Heads() map[mir.BlockID]bool {
	out := map[mir.BlockID]bool{}
	var walk func(els []Element)
	walk = func(els []Element) {
		for _, e := range els {
			if e.IsComponent {
				out[e.Head] = true
				walk(e.Body)
			}
		}
	}
	walk(w.Elements)
	return out
}

// Successors is supplied by the caller to abstract over how a block's
// outgoing edges are obtained (mir.Block's terminator shape).
type Successors func(mir.BlockID) []mir.BlockID

// Build runs Bourdoncle's hierarchical decomposition algorithm starting
// from entry, returning the WTO of the reachable subgraph.
func Build(entry mir.BlockID, succs Successors) *WTO {
	b := &builder{
		succs: succs,
		dfn:   map[mir.BlockID]int{},
		stack: nil,
	}
	var partition []Element
	b.visit(entry, &partition)
	return &WTO{Elements: partition}
}

type builder struct {
	succs Successors
	dfn   map[mir.BlockID]int
	num   int
	stack []mir.BlockID
}

// visit implements Bourdoncle's `visit` procedure: a DFS that assigns
// depth-first numbers and, on return, either closes a component (if the
// vertex is the head of a cycle) or appends a plain vertex to partition.
func (b *builder) visit(v mir.BlockID, partition *[]Element) int {
	b.stack = append(b.stack, v)
	b.num++
	head := b.num
	b.dfn[v] = head
	loop := false

	for _, w := range b.succs(v) {
		var min int
		if b.dfn[w] == 0 {
			min = b.visit(w, partition)
		} else {
			min = b.dfn[w]
		}
		if min <= head {
			head = min
			loop = true
		}
	}

	if head == b.dfn[v] {
		b.dfn[v] = maxDFN
		w := b.pop()
		if loop {
			for w != v {
				b.dfn[w] = 0
				w = b.pop()
			}
			prepend(partition, b.component(v))
		} else {
			prepend(partition, Element{Vertex: v})
		}
	}
	return head
}

// prepend inserts e at the front of *partition. DFS closes vertices in
// reverse topological order, so building the partition by prepending (rather
// than appending) restores forward order without a second pass.
func prepend(partition *[]Element, e Element) {
	*partition = append(*partition, Element{})
	copy((*partition)[1:], (*partition)[:len(*partition)-1])
	(*partition)[0] = e
}

const maxDFN = int(^uint(0) >> 1)

func (b *builder) pop() mir.BlockID {
	n := len(b.stack) - 1
	v := b.stack[n]
	b.stack = b.stack[:n]
	return v
}

// component builds the nested WTO for the loop headed by head: every
// successor of head that isn't already numbered is visited and becomes part
// of the loop body, exactly mirroring the outer partition-building loop but
// scoped to this head.
func (b *builder) component(head mir.BlockID) Element {
	var body []Element
	for _, w := range b.succs(head) {
		if b.dfn[w] == 0 {
			b.visit(w, &body)
		}
	}
	return Element{IsComponent: true, Head: head, Body: body}
}
