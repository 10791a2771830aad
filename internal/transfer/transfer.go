// Package transfer implements the statement and terminator transfer
// functions (C8, spec §4.3/§4.6/§4.7): how one MIR statement or terminator
// updates the hybrid abstract domain. Binary/unary arithmetic on operands
// that are tracked numerically stays in the numerical half; everything else
// — references, casts between non-numeric shapes, aggregates, discriminants
// — is recorded symbolically or, where the source project itself gives up
// precision, forgotten to Top.
package transfer

import (
	"fmt"
	"math/big"

	"mir-checker/internal/domain"
	"mir-checker/internal/expr"
	"mir-checker/internal/fixpoint"
	"mir-checker/internal/mir"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
	"mir-checker/internal/smt"
)

// CallHandler resolves a Call terminator (C9); kept as an interface so this
// package has no dependency on internal/interproc.
type CallHandler interface {
	Call(caller mir.FuncID, term *mir.CallTerm, pre *domain.AbstractDomain) *domain.AbstractDomain
}

// AssertObservation is what the assertion checker (C10) needs to classify
// one Assert terminator: the condition's symbolic value (spec §4.7 "the
// cached symbolic value v of cond's place"), its numerical bound as a cheap
// pre-filter (Top if the condition is tracked symbolically rather than
// numerically), and the numerical lattice snapshot to feed the SMT bridge
// (spec §4.7 step 1).
type AssertObservation struct {
	Fn        mir.FuncID
	Block     mir.BlockID
	Term      *mir.AssertTerm
	Bound     numerical.Interval
	Cond      *expr.Expression
	Numerical numerical.State

	// ExtraAtoms carries the pre-state's domain.AbstractDomain.Facts: linear
	// atoms proven true on entry to this block (an enclosing branch's
	// discriminant) that the numerical lattice snapshot above can't encode
	// on its own, for the checker to fold into the same solver query (spec
	// §4.1/§4.7).
	ExtraAtoms []numerical.LinearConstraint
}

// AssertSink receives one observation per Assert terminator evaluated.
type AssertSink interface {
	Observe(AssertObservation)
}

// AsmObservation is reported once per InlineAsm terminator reached (spec
// §3.7's "For each InlineAsm: one Assembly warning").
type AsmObservation struct {
	Fn    mir.FuncID
	Block mir.BlockID
	Span  mir.Span
}

// AsmSink receives one observation per InlineAsm terminator evaluated.
type AsmSink interface {
	ObserveAsm(AsmObservation)
}

// TaintObservation is what the taint tracker (C11) needs to check one
// Drop/Return site against the tainted-local set and the already-dropped
// heap-block set (spec §4.6).
type TaintObservation struct {
	Fn       mir.FuncID
	Block    mir.BlockID
	Span     mir.Span
	Place    path.Path        // the dropped place's root local, or the return place
	Value    *expr.Expression // whatever's currently bound there, for heap-block identification
	IsReturn bool
}

// TaintTracker is consulted on every copy/move assignment (to propagate
// taint across the copy) and notified on every Drop/Return terminator (to
// check the dropped/returned local's taint and any heap block it names),
// spec §4.6.
type TaintTracker interface {
	IsTainted(p path.Path) bool
	MarkTainted(p path.Path)
	ObserveDrop(obs TaintObservation)
}

// Interpreter holds everything the transfer functions need beyond the
// per-block state: which function is being analyzed (for AssertObservation
// bookkeeping), the call handler, and where to report assertion sites.
type Interpreter struct {
	Prog    *mir.Program
	FnID    mir.FuncID
	Calls   CallHandler
	Asserts AssertSink
	Taint   TaintTracker
	Asm     AsmSink

	// CleaningDelay gates dead-variable cleanup on StorageDead: 0 disables
	// it entirely, otherwise a local is only eligible for forgetting on a
	// block whose index is a multiple of CleaningDelay (spec §4.3's
	// dead-variable cleanup rule).
	CleaningDelay int
}

// Step runs one block's statements followed by its terminator, producing the
// post-state for each outgoing edge. Matches fixpoint.Transfer's signature.
func (it *Interpreter) Step(b *mir.Block, pre *domain.AbstractDomain) map[mir.BlockID]*domain.AbstractDomain {
	if pre.IsBottom() {
		return nil
	}
	cur := pre.Clone()
	for i, st := range b.Statements {
		it.execStmt(cur, b.ID, i, st)
	}
	return it.execTerm(cur, b.ID, b.Terminator)
}

func (it *Interpreter) execStmt(d *domain.AbstractDomain, blockID mir.BlockID, stmtIdx int, st mir.Statement) {
	switch s := st.(type) {
	case *mir.AssignStmt:
		it.execAssign(d, blockID, stmtIdx, s.Place, s.Rvalue)
	case *mir.StorageDeadStmt:
		it.execStorageDead(d, blockID, s.Local)
	}
}

func (it *Interpreter) execStorageDead(d *domain.AbstractDomain, blockID mir.BlockID, local int) {
	if it.CleaningDelay == 0 || int(blockID)%it.CleaningDelay != 0 {
		return
	}
	p := path.Local(local, 0)
	if !d.Symbolic.DependsOn(p) {
		d.Forget(p)
	}
}

// ToPath exposes the Place→Path translation to other packages (call
// transfer, C9, needs it to build argument and destination paths without
// re-implementing the projection walk).
func ToPath(p mir.Place) path.Path { return toPath(p) }

// BindOperand binds dst in d to whatever op evaluates to, in the same way an
// assignment statement's RHS would — the callee parameter initialization
// step of call transfer (spec §4.5 step 4) is exactly this operation.
func BindOperand(d *domain.AbstractDomain, dst path.Path, op mir.Operand) {
	(&Interpreter{}).assignFromOperand(d, dst, op)
}

// toPath translates a mir.Place into the Path model (spec §3.1/§4.2's
// translation boundary between the MIR's flat projections and the
// analyzer's canonical, structurally-hashed paths).
func toPath(p mir.Place) path.Path {
	var root path.Path
	switch p.Kind {
	case mir.PlaceLocal:
		root = path.Local(p.Local, 0)
	case mir.PlaceParameter:
		root = path.Parameter(p.Local, 0)
	case mir.PlaceResult:
		root = path.Result()
	case mir.PlaceStatic:
		root = path.Static(p.StaticName, p.StaticName, "")
	case mir.PlacePromoted:
		root = path.PromotedConstant(p.Promoted)
	}
	for _, proj := range p.Projection {
		switch proj.Kind {
		case mir.ProjDeref:
			root = root.WithSelector(path.Selector{Kind: path.SelDeref})
		case mir.ProjField:
			root = root.WithSelector(path.Selector{Kind: path.SelField, Field: proj.Field})
		case mir.ProjIndex:
			idx := toPath(proj.Index)
			root = root.WithSelector(path.Selector{Kind: path.SelIndex, Index: &idx})
		case mir.ProjConstantIndex:
			root = root.WithSelector(path.Selector{
				Kind: path.SelConstantIndex, Offset: proj.Offset,
				MinLength: proj.MinLength, FromEnd: proj.FromEnd,
			})
		case mir.ProjDiscriminant:
			root = root.WithSelector(path.Selector{Kind: path.SelDiscriminant})
		}
	}
	return root
}

// evaluated is an operand's reading: either a numerical.Operand (the value
// lives, or can be read, from the numerical half) or a symbolic Expression.
type evaluated struct {
	isNumeric bool
	num       numerical.Operand
	sym       *expr.Expression
}

func (it *Interpreter) evalOperand(d *domain.AbstractDomain, op mir.Operand) evaluated {
	if op.Kind == mir.OperandConstant {
		if op.Constant.IsInt {
			return evaluated{isNumeric: true, num: numerical.ConstOperand(big.NewInt(op.Constant.Int))}
		}
		if op.Constant.IsFunc {
			return evaluated{sym: expr.CompileTimeConstant(expr.FuncConst(op.Constant.FuncName))}
		}
		return evaluated{sym: expr.Top()}
	}
	p := toPath(op.Place)
	if d.IsNumericallyTracked(p) {
		return evaluated{isNumeric: true, num: numerical.DimOperand(domain.NumDim(p))}
	}
	v, ok := d.Get(p)
	if !ok {
		v = expr.Top()
	}
	return evaluated{sym: v}
}

func (it *Interpreter) execAssign(d *domain.AbstractDomain, blockID mir.BlockID, stmtIdx int, place mir.Place, rv mir.Rvalue) {
	dst := toPath(place)
	switch r := rv.(type) {
	case *mir.UseRvalue:
		it.assignFromOperand(d, dst, r.Operand)
		it.propagateTaint(dst, r.Operand)
	case *mir.RefRvalue:
		d.BindSymbolic(dst, expr.Reference(toPath(r.Place)))
	case *mir.AddressOfRvalue:
		d.BindSymbolic(dst, expr.Reference(toPath(r.Place)))
	case *mir.LenRvalue:
		// Len(p): the array's length lives at p.1 (spec §4.3), same field the
		// aggregate/repeat cases below populate.
		it.copyPath(d, dst, path.NewLength(toPath(r.Place)))
	case *mir.CastRvalue:
		it.execCast(d, dst, r.Operand, r.Target)
	case *mir.BinaryOpRvalue:
		it.execBinOp(d, dst, r.Op, r.Left, r.Right)
	case *mir.CheckedBinaryOpRvalue:
		it.execBinOp(d, dst, r.Op, r.Left, r.Right)
	case *mir.NullaryOpRvalue:
		it.execNullaryOp(d, dst, blockID, stmtIdx, r.Kind)
	case *mir.UnaryOpRvalue:
		it.execUnOp(d, dst, r.Op, r.Operand)
	case *mir.DiscriminantRvalue:
		it.copyPath(d, dst, path.NewDiscriminant(toPath(r.Place)))
	case *mir.AggregateRvalue:
		it.execAggregate(d, dst, r)
	case *mir.RepeatRvalue:
		it.execRepeat(d, dst, r)
	default:
		d.Forget(dst)
	}
}

// copyPath binds dst to whatever src currently holds, numerically or
// symbolically, or forgets dst if src carries nothing yet. Used by the Len
// and Discriminant transfers to read back a field this same interpreter
// populated elsewhere (spec §4.3).
func (it *Interpreter) copyPath(d *domain.AbstractDomain, dst, src path.Path) {
	if d.IsNumericallyTracked(src) {
		d.BindNumericalVar(dst, src)
		return
	}
	if v, ok := d.Get(src); ok {
		d.BindSymbolic(dst, v)
		return
	}
	d.Forget(dst)
}

// execAggregate builds an array literal's shape: its length field and one
// constant-indexed element binding per operand (spec §4.3 Aggregate(Array,
// ops)). Struct/tuple aggregates aren't given a field-by-field layout here
// and stay opaque, matching mir.AggregateKind's doc.
func (it *Interpreter) execAggregate(d *domain.AbstractDomain, dst path.Path, r *mir.AggregateRvalue) {
	if r.Kind != mir.AggregateArray {
		d.Forget(dst)
		return
	}
	d.BindNumericalInt(path.NewLength(dst), int64(len(r.Elements)))
	n := len(r.Elements)
	for i, op := range r.Elements {
		it.assignFromOperand(d, path.NewConstantIndex(dst, i, n, false), op)
	}
}

// execRepeat builds a [op; n] literal: length n, with every element written
// as the single slice place.slice(n) (spec §4.3 Repeat(op, n)).
func (it *Interpreter) execRepeat(d *domain.AbstractDomain, dst path.Path, r *mir.RepeatRvalue) {
	d.BindNumericalInt(path.NewLength(dst), int64(r.Count))
	it.assignFromOperand(d, path.NewSlice(dst, r.Count), r.Operand)
}

// propagateTaint carries a tainted source local's taint onto dst across a
// plain copy/move assignment (spec §4.6 "assigned from another tainted
// local").
func (it *Interpreter) propagateTaint(dst path.Path, op mir.Operand) {
	if it.Taint == nil || op.Kind == mir.OperandConstant {
		return
	}
	if it.Taint.IsTainted(toPath(op.Place)) {
		it.Taint.MarkTainted(dst)
	}
}

// boxBlockPath is the nested field Box's heap block is minted at: place.0.0
// (spec §4.3 NullaryOp(Box)'s `Path::new_field(Path::new_field(path, 0), 0)`).
func boxBlockPath(dst path.Path) path.Path {
	return dst.WithSelector(path.Selector{Kind: path.SelField, Field: 0}).
		WithSelector(path.Selector{Kind: path.SelField, Field: 0})
}

// execNullaryOp handles Box (heap allocation) and SizeOf.
func (it *Interpreter) execNullaryOp(d *domain.AbstractDomain, dst path.Path, blockID mir.BlockID, stmtIdx int, kind mir.NullaryOpKind) {
	if kind != mir.NullaryBox {
		d.Forget(dst) // SizeOf: no layout provider here, conservatively Top
		return
	}
	// The MIR location is itself injective per fixpoint run (spec §3.6): no
	// allocation counter needed, just name the site.
	site := fmt.Sprintf("fn%d:blk%d:stmt%d", it.FnID, blockID, stmtIdx)
	d.BindSymbolic(boxBlockPath(dst), expr.HeapBlock(site))
}

func (it *Interpreter) assignFromOperand(d *domain.AbstractDomain, dst path.Path, op mir.Operand) {
	ev := it.evalOperand(d, op)
	if ev.isNumeric {
		if ev.num.IsConst {
			d.BindNumericalInt(dst, ev.num.Const.Int64())
		} else {
			d.BindNumericalVar(dst, srcPathOf(op))
		}
		return
	}
	d.BindSymbolic(dst, ev.sym)
}

// srcPathOf recovers the Path an operand reads from, for the AssignVar
// fast path (only called when evalOperand already proved it's a plain
// numerically-tracked place, never a constant).
func srcPathOf(op mir.Operand) path.Path {
	return toPath(op.Place)
}

func (it *Interpreter) execCast(d *domain.AbstractDomain, dst path.Path, op mir.Operand, target mir.Type) {
	ev := it.evalOperand(d, op)
	if ev.isNumeric && (target.Kind == mir.KindSignedInt || target.Kind == mir.KindUnsignedInt) {
		if ev.num.IsConst {
			d.BindNumericalInt(dst, ev.num.Const.Int64())
		} else {
			d.BindNumericalVar(dst, srcPathOf(op))
		}
		return
	}
	if ev.sym != nil {
		d.BindSymbolic(dst, expr.Cast(ev.sym, toExprType(target)))
		return
	}
	d.Forget(dst)
}

func toExprType(t mir.Type) expr.ExpressionType {
	switch t.Kind {
	case mir.KindBool:
		return expr.Bool
	case mir.KindSignedInt:
		return expr.ExpressionType{Kind: expr.TSignedInt, Width: expr.IntWidth(t.Width), Name: t.Name}
	case mir.KindUnsignedInt:
		return expr.ExpressionType{Kind: expr.TUnsignedInt, Width: expr.IntWidth(t.Width), Name: t.Name}
	case mir.KindReference:
		return expr.ExpressionType{Kind: expr.TReference, Name: t.Name}
	default:
		return expr.NonPrimitive
	}
}

var arithByOp = map[mir.BinOp]numerical.ArithOp{
	mir.OpAdd: numerical.ArithAdd,
	mir.OpSub: numerical.ArithSub,
	mir.OpMul: numerical.ArithMul,
	mir.OpDiv: numerical.ArithDiv,
	mir.OpRem: numerical.ArithRem,
}

func (it *Interpreter) execBinOp(d *domain.AbstractDomain, dst path.Path, op mir.BinOp, left, right mir.Operand) {
	l, r := it.evalOperand(d, left), it.evalOperand(d, right)

	if op.IsComparison() {
		d.BindSymbolic(dst, expr.Comparison(comparisonKind(op), it.toSymbolic(l, left), it.toSymbolic(r, right)))
		return
	}
	if op.IsBitwise() {
		d.Forget(dst) // bitwise ops fall back to Top, spec §4.3
		return
	}
	if arith, ok := arithByOp[op]; ok && l.isNumeric && r.isNumeric {
		d.BindNumericalArith(dst, arith, l.num, r.num)
		return
	}
	d.Forget(dst)
}

// toSymbolic renders an already-evaluated operand as an Expression for use
// in a comparison/negation or as an AssertObservation's Cond. A
// numerically-tracked non-constant operand becomes a Variable keyed by the
// same path the numerical lattice itself dimensions on (domain.NumDim), so
// the SMT bridge's LatticeAtoms (built straight from the lattice) and the
// translated condition refer to the identical uninterpreted constant —
// without this, a comparison over a tracked variable would erase the
// variable's identity and the checker could never do better than Warning.
func (it *Interpreter) toSymbolic(e evaluated, op mir.Operand) *expr.Expression {
	if e.sym != nil {
		return e.sym
	}
	if e.isNumeric {
		if e.num.IsConst {
			return expr.CompileTimeConstant(expr.BigIntConst(e.num.Const))
		}
		return expr.Variable(toPath(op.Place), it.placeType(op.Place))
	}
	return expr.Top()
}

// placeType resolves a place's declared type for Variable's VarType,
// falling back to NonPrimitive when the function or local type can't be
// found rather than panicking (spec §7).
func (it *Interpreter) placeType(p mir.Place) expr.ExpressionType {
	if it.Prog == nil {
		return expr.NonPrimitive
	}
	fn, ok := it.Prog.ByID(it.FnID)
	if !ok {
		return expr.NonPrimitive
	}
	return toExprType(fn.LocalType(p.Local))
}

// refineWithCondition translates cond (or its negation, when truthy is
// false) and folds every atom it can prove into branch.Facts — used when a
// branch's discriminant or an assert's taken edge carries a condition the
// numerical lattice itself can't represent as an interval (spec §4.1's
// "exit condition ... translated into a linear constraint system and
// intersected with the numerical half"). Or/Unknown/BoolConst sub-formulas
// are left unrefined rather than guessed at.
func refineWithCondition(branch *domain.AbstractDomain, cond *expr.Expression, truthy bool) {
	f := smt.TranslateFormula(cond)
	addFactsFrom(branch, f, !truthy)
}

func addFactsFrom(branch *domain.AbstractDomain, f smt.Formula, negate bool) {
	switch v := f.(type) {
	case smt.Lit:
		c := v.Constraint
		if negate {
			c = negateRel(c)
		}
		branch.AddFact(c)
		// Also feed c straight into the numerical half. AddConstraints only
		// acts on single-dimension, unit-coefficient atoms (everything else,
		// including every RelNe this package ever builds, is a silent no-op),
		// so this is safe to always attempt — and for the atoms it does
		// accept (a loop guard's `t < 100` / `t >= 100`), it's the only way
		// the refinement survives a loop component's repeated rejoining of
		// its exit edge: Facts is dropped on every Join (by design, see
		// AbstractDomain.Facts), but the numerical lattice's own Join keeps
		// whatever floor/ceiling every deposit already agreed on.
		branch.AddConstraints(numerical.ConstraintSystem{}.And(c))
	case smt.And:
		for _, op := range v.Operands {
			addFactsFrom(branch, op, negate)
		}
	case smt.Not:
		addFactsFrom(branch, v.Operand, !negate)
	}
}

// negateRel flips c's comparator to its logical complement.
func negateRel(c numerical.LinearConstraint) numerical.LinearConstraint {
	switch c.Op {
	case numerical.RelLe:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelGt}
	case numerical.RelLt:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelGe}
	case numerical.RelGe:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelLt}
	case numerical.RelGt:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelLe}
	case numerical.RelEq:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelNe}
	default: // RelNe
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelEq}
	}
}

func comparisonKind(op mir.BinOp) expr.Kind {
	switch op {
	case mir.OpEq:
		return expr.KEq
	case mir.OpNe:
		return expr.KNe
	case mir.OpLt:
		return expr.KLt
	case mir.OpLe:
		return expr.KLe
	case mir.OpGt:
		return expr.KGt
	default:
		return expr.KGe
	}
}

func (it *Interpreter) execUnOp(d *domain.AbstractDomain, dst path.Path, op mir.UnOp, operand mir.Operand) {
	ev := it.evalOperand(d, operand)
	switch op {
	case mir.OpNeg:
		if ev.isNumeric {
			if ev.num.IsConst {
				d.BindNumericalInt(dst, new(big.Int).Neg(ev.num.Const).Int64())
			} else {
				d.BindNumericalNeg(dst, srcPathOf(operand))
			}
			return
		}
		d.Forget(dst)
	case mir.OpNot:
		d.BindSymbolic(dst, expr.LogicalNot(it.toSymbolic(ev, operand)))
	}
}

func (it *Interpreter) execTerm(d *domain.AbstractDomain, blockID mir.BlockID, term mir.Terminator) map[mir.BlockID]*domain.AbstractDomain {
	switch t := term.(type) {
	case *mir.GotoTerm:
		return one(t.Target, d)
	case *mir.SwitchIntTerm:
		return it.execSwitch(d, t)
	case *mir.ReturnTerm:
		if it.Taint != nil {
			it.Taint.ObserveDrop(TaintObservation{
				Fn: it.FnID, Block: blockID, Span: t.Span,
				Place: path.Result(), Value: symbolicAt(d, path.Result()), IsReturn: true,
			})
		}
		// Return has no outgoing edge; report the post-statement state under
		// the reserved ExitBlock key so the iterator can fold it into the
		// function's summarized exit (fixpoint.Result.Exit).
		return one(fixpoint.ExitBlock, d)
	case *mir.DropTerm:
		if it.Taint != nil {
			it.Taint.ObserveDrop(TaintObservation{
				Fn: it.FnID, Block: blockID, Span: t.Span,
				Place: rootPath(t.Place), Value: symbolicAt(d, toPath(t.Place)), IsReturn: false,
			})
		}
		it.execStorageDead(d, blockID, rootLocal(t.Place))
		return one(t.Target, d)
	case *mir.AssertTerm:
		return it.execAssert(d, blockID, t)
	case *mir.CallTerm:
		return it.execCall(d, t)
	case *mir.InlineAsmTerm:
		if it.Asm != nil {
			it.Asm.ObserveAsm(AsmObservation{Fn: it.FnID, Block: blockID, Span: t.Span})
		}
		if t.Target != nil {
			return one(*t.Target, d)
		}
		return nil
	case *mir.UnreachableTerm:
		return nil
	}
	return nil
}

// rootPath is like toPath but drops projections, giving the whole-local
// place spec §4.6 checks taint against ("check taint on place.local").
func rootPath(p mir.Place) path.Path {
	switch p.Kind {
	case mir.PlaceParameter:
		return path.Parameter(p.Local, 0)
	case mir.PlaceResult:
		return path.Result()
	default:
		return path.Local(p.Local, 0)
	}
}

// symbolicAt reads back whatever is currently bound at p, or nil if p is
// numerically tracked or unbound — used to recover a HeapBlock value for
// the taint tracker's double-free check. A Box minted under p (at p.0.0) is
// checked first, since that's the nested shape execNullaryOp actually binds.
func symbolicAt(d *domain.AbstractDomain, p path.Path) *expr.Expression {
	if v, ok := d.Get(boxBlockPath(p)); ok {
		return v
	}
	if d.IsNumericallyTracked(p) {
		return nil
	}
	v, ok := d.Get(p)
	if !ok {
		return nil
	}
	return v
}

func rootLocal(p mir.Place) int {
	return p.Local
}

func one(id mir.BlockID, d *domain.AbstractDomain) map[mir.BlockID]*domain.AbstractDomain {
	return map[mir.BlockID]*domain.AbstractDomain{id: d}
}

func (it *Interpreter) execSwitch(d *domain.AbstractDomain, t *mir.SwitchIntTerm) map[mir.BlockID]*domain.AbstractDomain {
	out := map[mir.BlockID]*domain.AbstractDomain{}
	ev := it.evalOperand(d, t.Discr)
	for i, v := range t.Values {
		branch := d.Clone()
		if ev.isNumeric && !ev.num.IsConst {
			branch.AddConstraints(numerical.ConstraintSystem{}.And(
				numerical.Constraint(numerical.Term(ev.num.Dim), numerical.RelEq, numerical.ConstExpr(big.NewInt(v))),
			))
		} else if !ev.isNumeric && ev.sym != nil {
			// A symbolic discriminant is always a boolean comparison result
			// (execBinOp never binds a comparison numerically), so an
			// explicit value of 0 means the condition is false and any other
			// explicit value means true.
			refineWithCondition(branch, ev.sym, v != 0)
		}
		if i < len(t.Targets) {
			mergeInto(out, t.Targets[i], branch)
		}
	}
	if len(t.Targets) > len(t.Values) {
		def := t.Targets[len(t.Targets)-1]
		defBranch := d.Clone()
		if !ev.isNumeric && ev.sym != nil && len(t.Values) == 1 {
			// The only shape this analyzer can soundly invert: a two-way
			// bool switch where the other outcome is "not that one value".
			refineWithCondition(defBranch, ev.sym, t.Values[0] == 0)
		}
		mergeInto(out, def, defBranch)
	}
	return out
}

func mergeInto(out map[mir.BlockID]*domain.AbstractDomain, id mir.BlockID, v *domain.AbstractDomain) {
	if existing, ok := out[id]; ok {
		out[id] = domain.Join(existing, v)
	} else {
		out[id] = v
	}
}

func (it *Interpreter) execAssert(d *domain.AbstractDomain, blockID mir.BlockID, t *mir.AssertTerm) map[mir.BlockID]*domain.AbstractDomain {
	ev := it.evalOperand(d, t.Cond)
	bound := numerical.TopInterval()
	if ev.isNumeric && !ev.num.IsConst {
		bound = d.Numerical.GetInterval(ev.num.Dim)
	} else if ev.isNumeric && ev.num.IsConst {
		bound = numerical.Exact(ev.num.Const)
	}
	cond := it.toSymbolic(ev, t.Cond)
	if it.Asserts != nil {
		it.Asserts.Observe(AssertObservation{
			Fn: it.FnID, Block: blockID, Term: t,
			Bound: bound, Cond: cond, Numerical: d.Numerical, ExtraAtoms: d.Facts,
		})
	}
	next := d.Clone()
	if ev.isNumeric && !ev.num.IsConst {
		want := int64(0)
		if t.Expected {
			want = 1
		}
		next.AddConstraints(numerical.ConstraintSystem{}.And(
			numerical.Constraint(numerical.Term(ev.num.Dim), numerical.RelEq, numerical.ConstExpr(big.NewInt(want))),
		))
	} else if !ev.isNumeric {
		// The assert's taken edge also carries an implicit exit condition
		// (spec §4.1): cond holds (or its negation, if Expected is false).
		refineWithCondition(next, cond, t.Expected)
	}
	return one(t.Target, next)
}

func (it *Interpreter) execCall(d *domain.AbstractDomain, t *mir.CallTerm) map[mir.BlockID]*domain.AbstractDomain {
	if it.Calls == nil || t.Target == nil {
		return nil
	}
	post := it.Calls.Call(it.FnID, t, d)
	return one(*t.Target, post)
}
