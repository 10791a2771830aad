package expr

import (
	"fmt"

	"mir-checker/internal/path"
)

// MaxExpressionSize bounds the complexity of a SymbolicValue's DAG (spec
// §3.2 MAX_EXPRESSION_SIZE). Constructors that would exceed it collapse to
// an anonymous Variable{Alias(Top), inferred_type} instead.
const MaxExpressionSize = 1000

var nextAnonID int

func freshAnonKey() string {
	nextAnonID++
	return fmt.Sprintf("anon#%d", nextAnonID)
}

// Kind tags an Expression's variant (spec §3.2).
type Kind int

const (
	KTop Kind = iota
	KBottom
	KConstant
	KNumerical
	KVariable
	KReference
	KHeapBlock
	KDrop
	KWiden
	KJoin
	KCast
	KAnd
	KOr
	KNot
	KEq
	KNe
	KLt
	KLe
	KGt
	KGe
)

// Expression is the algebraic IR for symbolic values: an immutable node in
// a structurally-hashed DAG.
type Expression struct {
	Kind Kind

	ConstVal ConstantValue

	Path    path.Path
	VarType ExpressionType

	HeapID string

	Operand *Expression
	Left    *Expression
	Right   *Expression
	Target  ExpressionType

	size uint32
}

// Top is the universal Top expression.
func Top() *Expression { return &Expression{Kind: KTop, size: 1} }

// BottomExpr is the universal Bottom expression.
func BottomExpr() *Expression { return &Expression{Kind: KBottom, size: 1} }

// CompileTimeConstant wraps a ConstantValue.
func CompileTimeConstant(c ConstantValue) *Expression {
	return &Expression{Kind: KConstant, ConstVal: c, size: 1}
}

// Numerical builds Numerical(path): this path's value is tracked by the
// numerical lattice (C4), not stored symbolically.
func Numerical(p path.Path) *Expression {
	return &Expression{Kind: KNumerical, Path: p, size: 1}
}

// Variable builds Variable{path, type}.
func Variable(p path.Path, t ExpressionType) *Expression {
	return &Expression{Kind: KVariable, Path: p, VarType: t, size: 1}
}

// Reference builds Reference(path).
func Reference(p path.Path) *Expression {
	return &Expression{Kind: KReference, Path: p, size: 1}
}

// HeapBlock builds HeapBlock{id}: id is the allocation-site-derived token
// text (spec §3.6).
func HeapBlock(id string) *Expression {
	return &Expression{Kind: KHeapBlock, HeapID: id, size: 1}
}

// Drop builds Drop(path), marking a heap-rooted path as consumed.
func Drop(p path.Path) *Expression {
	return &Expression{Kind: KDrop, Path: p, size: 1}
}

// Widen builds Widen{path, operand}: a loop-head widened value.
func Widen(p path.Path, operand *Expression) *Expression {
	return &Expression{Kind: KWiden, Path: p, Operand: operand, size: saturatingAdd(1, sizeOf(operand))}
}

func sizeOf(e *Expression) uint32 {
	if e == nil {
		return 0
	}
	return e.size
}

func saturatingAdd(vals ...uint32) uint32 {
	var total uint32
	for _, v := range vals {
		if total+v < total { // overflow
			return ^uint32(0)
		}
		total += v
	}
	return total
}

func collapseIfOversize(size uint32, inferred ExpressionType) (*Expression, bool) {
	if size <= MaxExpressionSize {
		return nil, false
	}
	anon := path.Alias(anonToken{freshAnonKey()})
	return &Expression{Kind: KVariable, Path: anon, VarType: inferred, size: 1}, true
}

type anonToken struct{ key string }

func (a anonToken) Key() string    { return a.key }
func (a anonToken) String() string { return "⊤" }

// Join builds x ∨ y, applying the join laws of spec §3.2: x∨⊥=x, x∨⊤=⊤,
// widen(x)∨y=widen(x).
func Join(x, y *Expression) *Expression {
	if x == nil {
		return y
	}
	if y == nil {
		return x
	}
	if x.Kind == KBottom {
		return y
	}
	if y.Kind == KBottom {
		return x
	}
	if x.Kind == KTop || y.Kind == KTop {
		return Top()
	}
	if x.Kind == KWiden {
		return x
	}
	if x.Equal(y) {
		return x
	}
	size := saturatingAdd(1, sizeOf(x), sizeOf(y))
	if collapsed, ok := collapseIfOversize(size, inferType(x, y)); ok {
		return collapsed
	}
	return &Expression{Kind: KJoin, Left: x, Right: y, size: size}
}

func inferType(x, y *Expression) ExpressionType {
	if x.Kind == KVariable {
		return x.VarType
	}
	if y.Kind == KVariable {
		return y.VarType
	}
	return NonPrimitive
}

// Cast builds operand.cast(target), collapsing consecutive unsigned-widening
// casts (spec §3.2).
func Cast(operand *Expression, target ExpressionType) *Expression {
	if operand != nil && operand.Kind == KCast &&
		operand.Target.Kind == TUnsignedInt && target.Kind == TUnsignedInt &&
		operand.Target.Width <= target.Width {
		return Cast(operand.Operand, target)
	}
	size := saturatingAdd(1, sizeOf(operand))
	if collapsed, ok := collapseIfOversize(size, target); ok {
		return collapsed
	}
	return &Expression{Kind: KCast, Operand: operand, Target: target, size: size}
}

// And builds x ∧ y with absorption and complement laws.
func And(x, y *Expression) *Expression {
	if x.Equal(y) {
		return x
	}
	if isComplement(x, y) {
		return boolConst(false)
	}
	if x.Kind == KConstant && x.ConstVal.Kind == ConstInt {
		if x.ConstVal.Int.Sign() == 0 {
			return boolConst(false)
		}
		return y
	}
	if y.Kind == KConstant && y.ConstVal.Kind == ConstInt {
		if y.ConstVal.Int.Sign() == 0 {
			return boolConst(false)
		}
		return x
	}
	return binNode(KAnd, x, y)
}

// Or builds x ∨ y (logical) with absorption and complement laws.
func Or(x, y *Expression) *Expression {
	if x.Equal(y) {
		return x
	}
	if isComplement(x, y) {
		return boolConst(true)
	}
	return binNode(KOr, x, y)
}

// LogicalNot builds ¬x, pushing through comparisons and eliminating double
// negation (spec §3.2).
func LogicalNot(x *Expression) *Expression {
	if x == nil {
		return nil
	}
	switch x.Kind {
	case KNot:
		return x.Operand
	case KEq:
		return &Expression{Kind: KNe, Left: x.Left, Right: x.Right, size: saturatingAdd(1, sizeOf(x.Left), sizeOf(x.Right))}
	case KNe:
		return &Expression{Kind: KEq, Left: x.Left, Right: x.Right, size: saturatingAdd(1, sizeOf(x.Left), sizeOf(x.Right))}
	case KLt:
		return &Expression{Kind: KGe, Left: x.Left, Right: x.Right, size: saturatingAdd(1, sizeOf(x.Left), sizeOf(x.Right))}
	case KLe:
		return &Expression{Kind: KGt, Left: x.Left, Right: x.Right, size: saturatingAdd(1, sizeOf(x.Left), sizeOf(x.Right))}
	case KGt:
		return &Expression{Kind: KLe, Left: x.Left, Right: x.Right, size: saturatingAdd(1, sizeOf(x.Left), sizeOf(x.Right))}
	case KGe:
		return &Expression{Kind: KLt, Left: x.Left, Right: x.Right, size: saturatingAdd(1, sizeOf(x.Left), sizeOf(x.Right))}
	default:
		size := saturatingAdd(1, sizeOf(x))
		if collapsed, ok := collapseIfOversize(size, Bool); ok {
			return collapsed
		}
		return &Expression{Kind: KNot, Operand: x, size: size}
	}
}

// Equals builds x == y, reflexive for non-float variables, and collapsing
// x==true to x, !x==0 to x (spec §3.2).
func Equals(x, y *Expression) *Expression {
	if x.Equal(y) && x.Kind != KTop {
		return boolConst(true)
	}
	if y.Kind == KConstant && y.ConstVal.Kind == ConstInt && y.ConstVal.Int.Sign() != 0 && x.VarType.Kind == TBool && y.ConstVal.Int.Cmp(bigOne) == 0 {
		return x
	}
	if x.Kind == KNot && y.Kind == KConstant && y.ConstVal.Kind == ConstInt && y.ConstVal.Int.Sign() == 0 {
		return x.Operand
	}
	return comparisonNode(KEq, x, y)
}

func comparisonNode(k Kind, x, y *Expression) *Expression {
	size := saturatingAdd(1, sizeOf(x), sizeOf(y))
	if collapsed, ok := collapseIfOversize(size, Bool); ok {
		return collapsed
	}
	return &Expression{Kind: k, Left: x, Right: y, size: size}
}

func binNode(k Kind, x, y *Expression) *Expression {
	size := saturatingAdd(1, sizeOf(x), sizeOf(y))
	if collapsed, ok := collapseIfOversize(size, Bool); ok {
		return collapsed
	}
	return &Expression{Kind: k, Left: x, Right: y, size: size}
}

func isComplement(x, y *Expression) bool {
	if x.Kind == KNot && x.Operand.Equal(y) {
		return true
	}
	if y.Kind == KNot && y.Operand.Equal(x) {
		return true
	}
	return false
}

var bigOne = IntConst(1).Int

func boolConst(v bool) *Expression {
	if v {
		return CompileTimeConstant(IntConst(1))
	}
	return CompileTimeConstant(IntConst(0))
}

// Comparison builds a generic comparison node (Ne/Lt/Le/Gt/Ge) for callers
// that already know which relation they need (§4.3 BinaryOp dispatch).
func Comparison(k Kind, x, y *Expression) *Expression {
	return comparisonNode(k, x, y)
}

// Size returns the expression's tracked complexity measure.
func (e *Expression) Size() uint32 {
	if e == nil {
		return 0
	}
	return e.size
}

// Equal is structural equality, except that two Widen{path:p} values are
// equal iff their paths match regardless of operand (spec §9 design note).
func (e *Expression) Equal(o *Expression) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case KTop, KBottom:
		return true
	case KConstant:
		return e.ConstVal.Equal(o.ConstVal)
	case KNumerical, KReference, KDrop:
		return e.Path.Equal(o.Path)
	case KVariable:
		return e.Path.Equal(o.Path)
	case KHeapBlock:
		return e.HeapID == o.HeapID
	case KWiden:
		return e.Path.Equal(o.Path)
	case KCast:
		return e.Target == o.Target && e.Operand.Equal(o.Operand)
	case KNot:
		return e.Operand.Equal(o.Operand)
	case KJoin, KAnd, KOr, KEq, KNe, KLt, KLe, KGt, KGe:
		return e.Left.Equal(o.Left) && e.Right.Equal(o.Right)
	default:
		return false
	}
}

// AsVariablePath implements path.EnvEntry.
func (e *Expression) AsVariablePath() (path.Path, bool) {
	if e != nil && (e.Kind == KVariable || e.Kind == KWiden) {
		return e.Path, true
	}
	return path.Path{}, false
}

// AsHeapBlock implements path.EnvEntry: a HeapBlock expression is itself
// usable as a heap-block token for path construction.
func (e *Expression) AsHeapBlock() (path.ExprValue, bool) {
	if e != nil && e.Kind == KHeapBlock {
		return e, true
	}
	return nil, false
}

// AsCastOperand implements path.EnvEntry.
func (e *Expression) AsCastOperand() (path.EnvEntry, bool) {
	if e != nil && e.Kind == KCast {
		return e.Operand, true
	}
	return nil, false
}

// Key implements path.ExprValue, used when an Expression itself is wrapped
// by path.Alias or path.HeapBlock.
func (e *Expression) Key() string {
	if e == nil {
		return "⊥"
	}
	switch e.Kind {
	case KHeapBlock:
		return "heap:" + e.HeapID
	default:
		return e.String()
	}
}

// String renders the expression for diagnostics and SMT variable naming.
func (e *Expression) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KTop:
		return "⊤"
	case KBottom:
		return "⊥"
	case KConstant:
		return e.ConstVal.String()
	case KNumerical:
		return "num(" + e.Path.String() + ")"
	case KVariable:
		return "var(" + e.Path.String() + ")"
	case KReference:
		return "&" + e.Path.String()
	case KHeapBlock:
		return "heap#" + e.HeapID
	case KDrop:
		return "drop(" + e.Path.String() + ")"
	case KWiden:
		return "widen(" + e.Path.String() + ")"
	case KJoin:
		return "(" + e.Left.String() + " ⊔ " + e.Right.String() + ")"
	case KCast:
		return "(" + e.Operand.String() + " as " + e.Target.Name + ")"
	case KAnd:
		return "(" + e.Left.String() + " && " + e.Right.String() + ")"
	case KOr:
		return "(" + e.Left.String() + " || " + e.Right.String() + ")"
	case KNot:
		return "!" + e.Operand.String()
	case KEq:
		return "(" + e.Left.String() + " == " + e.Right.String() + ")"
	case KNe:
		return "(" + e.Left.String() + " != " + e.Right.String() + ")"
	case KLt:
		return "(" + e.Left.String() + " < " + e.Right.String() + ")"
	case KLe:
		return "(" + e.Left.String() + " <= " + e.Right.String() + ")"
	case KGt:
		return "(" + e.Left.String() + " > " + e.Right.String() + ")"
	case KGe:
		return "(" + e.Left.String() + " >= " + e.Right.String() + ")"
	default:
		return "?"
	}
}
