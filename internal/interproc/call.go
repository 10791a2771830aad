// Package interproc implements call transfer and refinement (C9, spec
// §4.5): analyzing a callee in its own fresh fixpoint run and merging its
// side effects back into the caller. It implements transfer.CallHandler so
// internal/transfer's Call terminator delegates here without either package
// importing the other directly (transfer depends only on the CallHandler
// interface).
package interproc

import (
	"fmt"

	"mir-checker/internal/domain"
	"mir-checker/internal/expr"
	"mir-checker/internal/fixpoint"
	"mir-checker/internal/mir"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
	"mir-checker/internal/transfer"
	"mir-checker/internal/wto"
)

// ownershipTransferFuncs names the APIs spec §4.5 step 9 calls out as
// taint sources ("Vec::from_raw_parts or similar ownership-transferring
// APIs", spec §4.6).
var ownershipTransferFuncs = map[string]bool{
	"Vec::from_raw_parts":    true,
	"Box::from_raw":          true,
	"String::from_raw_parts": true,
}

// CallTransfer resolves Call terminators: the generic path clones the
// caller's state as the callee's entry state (spec §4.5 step 3 — the fresh-
// offset renumbering scheme spec.md describes is replaced here by simply
// running the callee with a fresh Top state, see buildCalleeEntry's doc
// comment for why), binds parameters, recurses the fixpoint, and transfers
// back only the Result/Parameter-rooted effects (see applyEffects's doc
// comment for the heap-block-closure simplification this drops).
type CallTransfer struct {
	Prog          *mir.Program
	Stack         *fixpoint.CallStack
	MaxDepth      int // spec §4.1: a callee already on the stack returns the caller's state unchanged
	Asserts       transfer.AssertSink
	Taint         transfer.TaintTracker
	Asm           transfer.AsmSink
	Mgr           *numerical.Manager
	Limits        fixpoint.Options // widening/narrowing schedule for every callee's own fixpoint run
	CleaningDelay int              // forwarded to every callee's own transfer.Interpreter

	wtoCache map[mir.FuncID]*wto.WTO
}

// NewCallTransfer builds a CallTransfer ready to serve as a
// transfer.CallHandler.
func NewCallTransfer(prog *mir.Program, mgr *numerical.Manager, asserts transfer.AssertSink, taint transfer.TaintTracker) *CallTransfer {
	return &CallTransfer{
		Prog:     prog,
		Stack:    fixpoint.NewCallStack(),
		MaxDepth: 1,
		Asserts:  asserts,
		Taint:    taint,
		Mgr:      mgr,
		Limits:   fixpoint.DefaultOptions(),
		wtoCache: map[mir.FuncID]*wto.WTO{},
	}
}

// Call implements transfer.CallHandler.
func (ct *CallTransfer) Call(caller mir.FuncID, term *mir.CallTerm, pre *domain.AbstractDomain) *domain.AbstractDomain {
	name, ok := resolveCalleeName(term.Func, pre)
	if !ok {
		return failSoft(pre, term) // spec §4.5 step 1: unresolved function pointer, fail-soft
	}

	fn, id, ok := ct.Prog.ByName(name)
	if !ok {
		out := failSoft(pre, term) // spec §4.5 "Failure semantics": MIR unavailable
		if ct.Taint != nil && ownershipTransferFuncs[name] {
			ct.Taint.MarkTainted(transfer.ToPath(term.Destination))
		}
		return out
	}

	enter, leave := ct.Stack.Enter(id, ct.MaxDepth)
	if !enter {
		return pre.Clone() // spec §4.1: recursion guard, caller state unchanged
	}
	defer leave()

	w := ct.wtoFor(fn)
	entry := ct.buildCalleeEntry(pre, term.Args)
	it := &transfer.Interpreter{Prog: ct.Prog, FnID: id, Calls: ct, Asserts: ct.Asserts, Taint: ct.Taint, Asm: ct.Asm, CleaningDelay: ct.CleaningDelay}
	res := fixpoint.RunWithOptions(fn, w, entry, it.Step, ct.Limits)

	out := ct.applyEffects(pre, term, res.Exit)
	if ct.Taint != nil && ownershipTransferFuncs[name] {
		ct.Taint.MarkTainted(transfer.ToPath(term.Destination))
	}
	return out
}

// resolveCalleeName looks through a direct function constant, or (for a
// function-pointer variable) the symbolic value currently bound to its
// place, per spec §4.5 step 1.
func resolveCalleeName(op mir.Operand, pre *domain.AbstractDomain) (string, bool) {
	if op.Kind == mir.OperandConstant {
		if op.Constant.IsFunc {
			return op.Constant.FuncName, true
		}
		return "", false
	}
	v, ok := pre.Get(transfer.ToPath(op.Place))
	if ok && v.Kind == expr.KConstant && v.ConstVal.Kind == expr.ConstFunction {
		return v.ConstVal.FuncRef, true
	}
	return "", false
}

// failSoft implements spec §4.5's "Failure semantics": the caller's state is
// kept as-is except the call's destination, which becomes Top (arbitrary).
func failSoft(pre *domain.AbstractDomain, term *mir.CallTerm) *domain.AbstractDomain {
	out := pre.Clone()
	out.Forget(transfer.ToPath(term.Destination))
	return out
}

func (ct *CallTransfer) wtoFor(fn *mir.Function) *wto.WTO {
	if w, ok := ct.wtoCache[fn.ID]; ok {
		return w
	}
	w := wto.Build(fn.Entry, succsOf(fn))
	ct.wtoCache[fn.ID] = w
	return w
}

// Successors exposes succsOf for internal/analysis, which needs the same
// CFG-successor view to build the entry function's own WTO.
func Successors(fn *mir.Function) wto.Successors { return succsOf(fn) }

// BuildWTO builds fn's weak topological order from its own CFG successors —
// the same construction CallTransfer caches per callee, exposed for
// internal/analysis's entry function, which isn't reached through a Call
// terminator and so never populates that cache.
func BuildWTO(fn *mir.Function) *wto.WTO { return wto.Build(fn.Entry, succsOf(fn)) }

func succsOf(fn *mir.Function) wto.Successors {
	return func(b mir.BlockID) []mir.BlockID {
		blk, ok := fn.Block(b)
		if !ok {
			return nil
		}
		switch t := blk.Terminator.(type) {
		case *mir.GotoTerm:
			return []mir.BlockID{t.Target}
		case *mir.SwitchIntTerm:
			return t.Targets
		case *mir.DropTerm:
			return []mir.BlockID{t.Target}
		case *mir.AssertTerm:
			return []mir.BlockID{t.Target}
		case *mir.CallTerm:
			if t.Target != nil {
				return []mir.BlockID{*t.Target}
			}
		case *mir.InlineAsmTerm:
			if t.Target != nil {
				return []mir.BlockID{*t.Target}
			}
		}
		return nil
	}
}

// buildCalleeEntry initializes the callee's Parameter(i) locals from the
// call's argument operands, evaluated against the caller's state.
//
// Simplification: spec §4.5 step 3 clones the full caller state into the
// callee and renumbers locals by a fresh offset to avoid the callee's own
// Local(n) numbering colliding with the caller's. This analyzer has no
// renumbering pass over mir.Function, so instead the callee runs from a
// fresh Top state containing only its bound parameters — callee-local
// aliasing of caller state beyond what's passed as an argument is invisible
// to it. This trades some cross-call precision for never risking a Local(n)
// collision corrupting caller state; noted in DESIGN.md.
func (ct *CallTransfer) buildCalleeEntry(callerPre *domain.AbstractDomain, args []mir.Operand) *domain.AbstractDomain {
	entry := domain.Top(ct.Mgr)
	for i, arg := range args {
		bindValue(entry, path.Parameter(i+1, 0), callerPre, arg)
	}
	return entry
}

// bindValue evaluates srcOp against srcDomain and binds the result to dst in
// dstDomain — used both to seed callee parameters (spec §4.5 step 4) and to
// transfer callee effects back into the caller (step 8).
func bindValue(dstDomain *domain.AbstractDomain, dst path.Path, srcDomain *domain.AbstractDomain, srcOp mir.Operand) {
	if srcOp.Kind == mir.OperandConstant {
		switch {
		case srcOp.Constant.IsInt:
			dstDomain.BindNumericalInt(dst, srcOp.Constant.Int)
		case srcOp.Constant.IsFunc:
			dstDomain.BindSymbolic(dst, expr.CompileTimeConstant(expr.FuncConst(srcOp.Constant.FuncName)))
		default:
			dstDomain.BindSymbolic(dst, expr.Top())
		}
		return
	}
	srcPath := transfer.ToPath(srcOp.Place)
	if srcDomain.IsNumericallyTracked(srcPath) {
		iv := srcDomain.Interval(srcPath)
		if iv.IsExact() {
			dstDomain.BindNumericalInt(dst, iv.Lo.Int64())
		} else {
			dstDomain.Forget(dst) // cross-domain copy of a non-exact bound approximates to Top
		}
		return
	}
	if v, ok := srcDomain.Get(srcPath); ok {
		dstDomain.BindSymbolic(dst, v)
		return
	}
	dstDomain.Forget(dst)
}

// applyEffects extracts the callee's side effects and writes them back into
// a clone of the caller's state (spec §4.5 steps 6-8), refined through
// refine_parameters/refine_paths (spec §4.2) rather than relied on
// construction-time path hashing alone: a callee-side path rooted in
// Parameter(i) or Result is substituted for the caller's actual argument or
// destination path (refine_parameters), then canonicalized against the
// caller's own symbolic store (refine_paths) so implicit derefs and
// reference-to-heap-block aliasing are resolved the same way a plain
// statement transfer would resolve them.
//
// Simplification: the transitive closure is walked one level at a time over
// calleeExit.Symbolic's bound paths (spec step 7's "plus the transitive
// closure through heap-block roots" is approximated by whatever the callee
// itself materialized as a symbolic binding, not a full points-to graph) —
// this analyzer's heap model (internal/taint) tracks ownership, not
// aliasing, so a callee mutating a field reachable from a parameter only
// through a path the callee itself never bound is invisible to the caller.
func (ct *CallTransfer) applyEffects(callerPre *domain.AbstractDomain, term *mir.CallTerm, calleeExit *domain.AbstractDomain) *domain.AbstractDomain {
	out := callerPre.Clone()
	if calleeExit.IsBottom() {
		// Callee never reached a Return block (spec §4.5 "Failure semantics":
		// "leaves the return slot as Bottom"). The call can't return control
		// either, so the whole continuation is unreachable.
		out.SetBottom()
		return out
	}

	destPath := transfer.ToPath(term.Destination)
	bindValue(out, destPath, calleeExit, mir.Copy(mir.ResultPlace()))

	for i, arg := range term.Args {
		if arg.Kind == mir.OperandConstant {
			continue // no caller-side path to write an effect back into
		}
		argPath := transfer.ToPath(arg.Place)
		bindValue(out, argPath, calleeExit, mir.Copy(mir.ParamPlace(i+1)))
	}

	args := callArgSources(term.Args)
	for _, key := range calleeExit.Symbolic.Keys() {
		if key.Len() == 1 {
			continue // bare Result/Parameter roots already written back above
		}
		root := key.Root()
		if root.Kind != path.KindParameter && root.Kind != path.KindResult {
			continue
		}
		refined := refinePath(key, args, destPath, out.Symbolic)
		if refined.Equal(key) {
			continue // no caller-side substitution applies (e.g. unmapped index)
		}
		if calleeExit.IsNumericallyTracked(key) {
			iv := calleeExit.Interval(key)
			if iv.IsExact() {
				out.BindNumericalInt(refined, iv.Lo.Int64())
			} else {
				out.Forget(refined) // cross-domain copy of a non-exact bound approximates to Top
			}
			continue
		}
		v, ok := calleeExit.Symbolic.Get(key)
		if !ok {
			continue
		}
		out.BindSymbolic(refined, refineExprPaths(v, args, destPath, out.Symbolic))
	}
	return out
}

// callArgSources builds refine_parameters' substitution table from the
// call's argument operands: Parameter(i) in the callee maps to args[i-1]'s
// caller-side path, or (for a constant argument) an opaque placeholder so
// the substitution still resolves without aliasing a real caller path.
func callArgSources(args []mir.Operand) []path.ArgSource {
	out := make([]path.ArgSource, len(args))
	for i, a := range args {
		if a.Kind == mir.OperandConstant {
			out[i] = path.ArgSource{Path: path.Alias(constArgToken{i})}
			continue
		}
		out[i] = path.ArgSource{Path: transfer.ToPath(a.Place)}
	}
	return out
}

type constArgToken struct{ idx int }

func (c constArgToken) Key() string    { return fmt.Sprintf("constarg#%d", c.idx) }
func (c constArgToken) String() string { return "⊤" }

// rewriteRoot replaces a Result-rooted path with destPath: refine_parameters
// only substitutes Parameter roots (spec §4.2), so the call's return slot is
// renamed separately here before refine_paths canonicalizes the rest.
func rewriteRoot(p, destPath path.Path) path.Path {
	switch p.Kind {
	case path.KindResult:
		return destPath
	case path.KindQualified:
		q := rewriteRoot(*p.Qualifier, destPath)
		s := p.Selector
		if s.Kind == path.SelIndex && s.Index != nil {
			ri := rewriteRoot(*s.Index, destPath)
			s.Index = &ri
		}
		return path.Qualified(q, s)
	default:
		return p
	}
}

// refinePath runs the full spec §4.2 pipeline on a callee-side path: first
// substitute Parameter(i)/Result roots for the caller's actual argument and
// destination paths, then canonicalize against the caller's own symbolic
// store (implicit derefs, reference collapses, heap-block aliasing).
func refinePath(p path.Path, args []path.ArgSource, destPath path.Path, callerEnv path.Env) path.Path {
	refined := path.RefineParameters(p, args)
	refined = rewriteRoot(refined, destPath)
	return path.RefinePaths(refined, callerEnv)
}

// refineExprPaths applies refinePath to every path embedded in a symbolic
// value carried across the call boundary, so a HeapBlock/Reference/Variable
// captured in terms of the callee's own Parameter/Result paths reads back
// correctly once transferred into the caller's store.
func refineExprPaths(e *expr.Expression, args []path.ArgSource, destPath path.Path, callerEnv path.Env) *expr.Expression {
	if e == nil {
		return e
	}
	switch e.Kind {
	case expr.KNumerical:
		return expr.Numerical(refinePath(e.Path, args, destPath, callerEnv))
	case expr.KReference:
		return expr.Reference(refinePath(e.Path, args, destPath, callerEnv))
	case expr.KDrop:
		return expr.Drop(refinePath(e.Path, args, destPath, callerEnv))
	case expr.KVariable:
		return expr.Variable(refinePath(e.Path, args, destPath, callerEnv), e.VarType)
	case expr.KWiden:
		return expr.Widen(refinePath(e.Path, args, destPath, callerEnv), refineExprPaths(e.Operand, args, destPath, callerEnv))
	case expr.KCast:
		return expr.Cast(refineExprPaths(e.Operand, args, destPath, callerEnv), e.Target)
	case expr.KNot:
		return expr.LogicalNot(refineExprPaths(e.Operand, args, destPath, callerEnv))
	case expr.KAnd:
		return expr.And(refineExprPaths(e.Left, args, destPath, callerEnv), refineExprPaths(e.Right, args, destPath, callerEnv))
	case expr.KOr:
		return expr.Or(refineExprPaths(e.Left, args, destPath, callerEnv), refineExprPaths(e.Right, args, destPath, callerEnv))
	case expr.KEq, expr.KNe, expr.KLt, expr.KLe, expr.KGt, expr.KGe:
		return expr.Comparison(e.Kind, refineExprPaths(e.Left, args, destPath, callerEnv), refineExprPaths(e.Right, args, destPath, callerEnv))
	default:
		return e
	}
}
