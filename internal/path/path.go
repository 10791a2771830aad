// Package path implements the Path model (C2): canonical, structurally
// hashed descriptions of abstract memory locations. Paths are the keys of
// both halves of the hybrid abstract domain (internal/domain).
package path

import (
	"fmt"
	"strings"
)

// Kind tags which Path variant a value holds.
type Kind int

const (
	KindLocal Kind = iota
	KindParameter
	KindResult
	KindStatic
	KindPromotedConstant
	KindHeapBlock
	KindAlias
	KindQualified
)

// SelectorKind tags which Selector variant a qualification uses.
type SelectorKind int

const (
	SelDeref SelectorKind = iota
	SelDiscriminant
	SelField
	SelIndex
	SelSlice
	SelConstantIndex
)

// Selector qualifies a Path rooted in another Path (spec §3.1).
type Selector struct {
	Kind SelectorKind

	Field int // SelField

	Index *Path // SelIndex: the value used as the index (itself a path value, §3.1 Alias wraps non-storable values)

	Count int // SelSlice

	// SelConstantIndex
	Offset    int
	MinLength int
	FromEnd   bool
}

func (s Selector) String() string {
	switch s.Kind {
	case SelDeref:
		return "*"
	case SelDiscriminant:
		return ".discriminant"
	case SelField:
		return fmt.Sprintf(".%d", s.Field)
	case SelIndex:
		if s.Index != nil {
			return fmt.Sprintf("[%s]", s.Index)
		}
		return "[?]"
	case SelSlice:
		return fmt.Sprintf("[:%d]", s.Count)
	case SelConstantIndex:
		if s.FromEnd {
			return fmt.Sprintf("[-%d (min %d)]", s.Offset, s.MinLength)
		}
		return fmt.Sprintf("[%d (min %d)]", s.Offset, s.MinLength)
	default:
		return "?"
	}
}

func (s Selector) equal(o Selector) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SelField:
		return s.Field == o.Field
	case SelIndex:
		if (s.Index == nil) != (o.Index == nil) {
			return false
		}
		if s.Index == nil {
			return true
		}
		return s.Index.Equal(*o.Index)
	case SelSlice:
		return s.Count == o.Count
	case SelConstantIndex:
		return s.Offset == o.Offset && s.MinLength == o.MinLength && s.FromEnd == o.FromEnd
	default:
		return true
	}
}

// ExprValue is the minimal view path needs of a symbolic value to support
// Alias(value) paths and HeapBlock(value) paths without importing the expr
// package (which itself may want to import path for Numerical(path) /
// Variable{path} / Reference(path) — path stays the leaf dependency).
// Implementations live in internal/expr.
type ExprValue interface {
	// Key returns a value that participates in Path equality/hash: two
	// ExprValues with equal keys represent the same wrapped value.
	Key() string
	String() string
}

// Path is a canonical description of an abstract memory location (spec §3.1).
// Exactly one of the Kind-specific fields is meaningful at a time.
type Path struct {
	Kind Kind

	Local  int // KindLocal / KindParameter, plus a caller-assigned offset baked in directly
	Offset int // biasing offset recorded separately so refine_parameters can detect/undo it

	DefID string // KindStatic
	Key   string // KindStatic
	Type  string // KindStatic: display type name

	Promoted int // KindPromotedConstant

	HeapToken ExprValue // KindHeapBlock: the symbolic heap token identifying the allocation
	Alias     ExprValue // KindAlias

	Qualifier *Path    // KindQualified
	Selector  Selector // KindQualified
}

// Local builds a Local(n, offset) path.
func Local(n, offset int) Path { return Path{Kind: KindLocal, Local: n, Offset: offset} }

// Parameter builds a Parameter(n, offset) path (1-based).
func Parameter(n, offset int) Path { return Path{Kind: KindParameter, Local: n, Offset: offset} }

// Result builds the Result path (ordinal 0).
func Result() Path { return Path{Kind: KindResult} }

// Static builds a Static(def_id, key, type) path.
func Static(defID, key, typ string) Path {
	return Path{Kind: KindStatic, DefID: defID, Key: key, Type: typ}
}

// PromotedConstant builds a PromotedConstant(ordinal) path.
func PromotedConstant(ordinal int) Path { return Path{Kind: KindPromotedConstant, Promoted: ordinal} }

// HeapBlock builds a HeapBlock(value) path.
func HeapBlock(token ExprValue) Path { return Path{Kind: KindHeapBlock, HeapToken: token} }

// Alias builds an Alias(value) path.
func Alias(v ExprValue) Path { return Path{Kind: KindAlias, Alias: v} }

// Qualified builds a Qualified{qualifier, selector} path (length = 1 + qualifier length, I2).
func Qualified(q Path, s Selector) Path {
	qq := q
	return Path{Kind: KindQualified, Qualifier: &qq, Selector: s}
}

// IsBottomAlias reports whether this is Alias(Bottom) — idempotent under
// qualification per I3: qualifying it again returns itself.
func (p Path) IsBottomAlias() bool {
	return p.Kind == KindAlias && p.Alias != nil && p.Alias.Key() == "⊥"
}

// Len returns the path's length: 1 for a root, 1 + qualifier length for a
// qualified path (I2).
func (p Path) Len() int {
	if p.Kind != KindQualified {
		return 1
	}
	return 1 + p.Qualifier.Len()
}

// EndsInDeref reports whether the outermost selector is a Deref — used by
// refine_paths (§4.2) to distinguish a plain rename from a deref alias.
func (p Path) EndsInDeref() bool {
	return p.Kind == KindQualified && p.Selector.Kind == SelDeref
}

// WithSelector appends a selector, building Qualified{qualifier: p, selector: s},
// except when p.IsBottomAlias() (I3: idempotent).
func (p Path) WithSelector(s Selector) Path {
	if p.IsBottomAlias() {
		return p
	}
	return Qualified(p, s)
}

// NewLength builds the path of q's length field (spec §4.3 Len(p)); the
// original analyzer represents an array's length as its field 1.
func NewLength(q Path) Path { return q.WithSelector(Selector{Kind: SelField, Field: 1}) }

// NewDiscriminant builds the path of q's enum discriminant.
func NewDiscriminant(q Path) Path { return q.WithSelector(Selector{Kind: SelDiscriminant}) }

// NewConstantIndex builds the path of q's element at a literal offset.
func NewConstantIndex(q Path, offset, minLength int, fromEnd bool) Path {
	return q.WithSelector(Selector{Kind: SelConstantIndex, Offset: offset, MinLength: minLength, FromEnd: fromEnd})
}

// NewSlice builds the path of q's first count elements, written as one unit
// (spec §4.3 Repeat(op, n): place.slice(n) = op).
func NewSlice(q Path, count int) Path {
	return q.WithSelector(Selector{Kind: SelSlice, Count: count})
}

// Root returns the non-qualified path this one is ultimately rooted in.
func (p Path) Root() Path {
	cur := p
	for cur.Kind == KindQualified {
		cur = *cur.Qualifier
	}
	return cur
}

// Equal compares two paths structurally (I1).
func (p Path) Equal(o Path) bool {
	if p.Kind != o.Kind {
		return false
	}
	switch p.Kind {
	case KindLocal, KindParameter:
		return p.Local == o.Local && p.Offset == o.Offset
	case KindResult:
		return true
	case KindStatic:
		return p.DefID == o.DefID && p.Key == o.Key
	case KindPromotedConstant:
		return p.Promoted == o.Promoted
	case KindHeapBlock:
		if (p.HeapToken == nil) != (o.HeapToken == nil) {
			return false
		}
		if p.HeapToken == nil {
			return true
		}
		return p.HeapToken.Key() == o.HeapToken.Key()
	case KindAlias:
		if (p.Alias == nil) != (o.Alias == nil) {
			return false
		}
		if p.Alias == nil {
			return true
		}
		return p.Alias.Key() == o.Alias.Key()
	case KindQualified:
		return p.Qualifier.Equal(*o.Qualifier) && p.Selector.equal(o.Selector)
	default:
		return false
	}
}

// Hash returns a stable structural hash key, suitable for use as a map key
// (Go structs containing *Path/interface fields aren't comparable, so
// Path is stored in maps keyed by this string rather than by Path itself).
func (p Path) Hash() string {
	var b strings.Builder
	p.writeHash(&b)
	return b.String()
}

func (p Path) writeHash(b *strings.Builder) {
	switch p.Kind {
	case KindLocal:
		fmt.Fprintf(b, "L%d+%d", p.Local, p.Offset)
	case KindParameter:
		fmt.Fprintf(b, "P%d+%d", p.Local, p.Offset)
	case KindResult:
		b.WriteString("R")
	case KindStatic:
		fmt.Fprintf(b, "S(%s,%s)", p.DefID, p.Key)
	case KindPromotedConstant:
		fmt.Fprintf(b, "C%d", p.Promoted)
	case KindHeapBlock:
		b.WriteString("H(")
		if p.HeapToken != nil {
			b.WriteString(p.HeapToken.Key())
		}
		b.WriteString(")")
	case KindAlias:
		b.WriteString("A(")
		if p.Alias != nil {
			b.WriteString(p.Alias.Key())
		}
		b.WriteString(")")
	case KindQualified:
		p.Qualifier.writeHash(b)
		b.WriteString(p.Selector.String())
	}
}

// String renders a Path for diagnostics/debugging.
func (p Path) String() string {
	switch p.Kind {
	case KindLocal:
		if p.Offset != 0 {
			return fmt.Sprintf("_local%d@%d", p.Local, p.Offset)
		}
		return fmt.Sprintf("_%d", p.Local)
	case KindParameter:
		if p.Offset != 0 {
			return fmt.Sprintf("param%d@%d", p.Local, p.Offset)
		}
		return fmt.Sprintf("param%d", p.Local)
	case KindResult:
		return "_0"
	case KindStatic:
		return fmt.Sprintf("static(%s::%s)", p.DefID, p.Key)
	case KindPromotedConstant:
		return fmt.Sprintf("promoted[%d]", p.Promoted)
	case KindHeapBlock:
		if p.HeapToken != nil {
			return fmt.Sprintf("heap(%s)", p.HeapToken.String())
		}
		return "heap(?)"
	case KindAlias:
		if p.Alias != nil {
			return fmt.Sprintf("alias(%s)", p.Alias.String())
		}
		return "alias(?)"
	case KindQualified:
		return p.Qualifier.String() + p.Selector.String()
	default:
		return "<invalid path>"
	}
}
