package mirparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"mir-checker/internal/mir"
)

func spanOf(p lexer.Position) mir.Span {
	return mir.Span{File: p.Filename, Line: p.Line, Column: p.Column}
}

// lowering turns a parsed AST into a mir.Program. Kept as a struct (rather
// than free functions threading a *[]error) so every helper can report a
// span-less parse error without plumbing one through every signature —
// position information participle already attached to the parse error
// itself is enough; these are semantic checks over an already-valid parse
// tree (an unresolved "otherwise" arm, a place root that names nothing).
type lowering struct {
	fn *FuncDecl
}

// Lower converts ast into a mir.Program, validating the handful of things
// participle's grammar can't enforce structurally (every switchInt needs a
// default arm, every place root must resolve to a local/parameter/result).
func Lower(ast *AST) (*mir.Program, error) {
	prog := &mir.Program{}
	for _, fd := range ast.Functions {
		f, err := (&lowering{fn: fd}).function()
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", fd.Name, err)
		}
		prog.Functions = append(prog.Functions, f)
	}
	prog.Finalize()
	return prog, nil
}

func (l *lowering) function() (*mir.Function, error) {
	f := &mir.Function{
		Name:       l.fn.Name,
		LocalTypes: map[int]mir.Type{},
	}
	for _, p := range l.fn.Params {
		f.ParamTypes = append(f.ParamTypes, loType(p.Type))
	}
	if l.fn.Ret != nil {
		f.ReturnType = loType(l.fn.Ret)
	} else {
		f.ReturnType = mir.Type{Kind: mir.KindNonPrimitive, Name: "()"}
	}
	for _, ld := range l.fn.Locals {
		n, ok := localIndex(ld.Name)
		if !ok {
			return nil, fmt.Errorf("local declaration %q is not of the form _N", ld.Name)
		}
		f.LocalTypes[n] = loType(ld.Type)
	}
	for i, bd := range l.fn.Blocks {
		b, err := l.block(bd)
		if err != nil {
			return nil, err
		}
		f.Blocks = append(f.Blocks, b)
		if i == 0 {
			f.Entry = b.ID
		}
	}
	return f, nil
}

func (l *lowering) block(bd *BlockDecl) (*mir.Block, error) {
	id, ok := blockID(bd.Name)
	if !ok {
		return nil, fmt.Errorf("block label %q is not of the form bbN", bd.Name)
	}
	b := &mir.Block{ID: id}
	for _, sd := range bd.Stmts {
		st, err := l.stmt(sd)
		if err != nil {
			return nil, err
		}
		b.Statements = append(b.Statements, st)
	}
	term, err := l.term(bd.Term)
	if err != nil {
		return nil, err
	}
	b.Terminator = term
	return b, nil
}

func (l *lowering) stmt(sd *Stmt) (mir.Statement, error) {
	span := spanOf(sd.Pos)
	switch {
	case sd.StorageDead != nil:
		n, ok := localIndex(sd.StorageDead.Local)
		if !ok {
			return nil, fmt.Errorf("storagedead target %q is not of the form _N", sd.StorageDead.Local)
		}
		return &mir.StorageDeadStmt{Local: n, Span: span}, nil
	case sd.Assign != nil:
		place, err := l.place(sd.Assign.Place)
		if err != nil {
			return nil, err
		}
		rv, err := l.rvalue(sd.Assign.Rvalue)
		if err != nil {
			return nil, err
		}
		return &mir.AssignStmt{Place: place, Rvalue: rv, Span: span}, nil
	default:
		return nil, fmt.Errorf("empty statement")
	}
}

func (l *lowering) rvalue(rd *RvalueExpr) (mir.Rvalue, error) {
	switch {
	case rd.Ref != nil:
		p, err := l.place(rd.Ref)
		return &mir.RefRvalue{Place: p}, err
	case rd.AddressOf != nil:
		p, err := l.place(rd.AddressOf)
		return &mir.AddressOfRvalue{Place: p}, err
	case rd.Len != nil:
		p, err := l.place(rd.Len)
		return &mir.LenRvalue{Place: p}, err
	case rd.Discr != nil:
		p, err := l.place(rd.Discr)
		return &mir.DiscriminantRvalue{Place: p}, err
	case rd.Cast != nil:
		op, err := l.operand(rd.Cast.Operand)
		if err != nil {
			return nil, err
		}
		return &mir.CastRvalue{Operand: op, Target: loType(rd.Cast.Target)}, nil
	case rd.Checked != nil:
		op, left, right, err := l.binOperands(rd.Checked)
		if err != nil {
			return nil, err
		}
		return &mir.CheckedBinaryOpRvalue{Op: op, Left: left, Right: right}, nil
	case rd.Binary != nil:
		op, left, right, err := l.binOperands(rd.Binary)
		if err != nil {
			return nil, err
		}
		return &mir.BinaryOpRvalue{Op: op, Left: left, Right: right}, nil
	case rd.Unary != nil:
		op, ok := unOpFromName(rd.Unary.Op)
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", rd.Unary.Op)
		}
		operand, err := l.operand(rd.Unary.Operand)
		if err != nil {
			return nil, err
		}
		return &mir.UnaryOpRvalue{Op: op, Operand: operand}, nil
	case rd.Nullary != nil:
		if rd.Nullary.Box {
			return &mir.NullaryOpRvalue{Kind: mir.NullaryBox, Type: loType(rd.Nullary.Type)}, nil
		}
		return &mir.NullaryOpRvalue{Kind: mir.NullarySizeOf, Type: loType(rd.Nullary.Type)}, nil
	case rd.Use != nil:
		op, err := l.operand(rd.Use)
		if err != nil {
			return nil, err
		}
		return &mir.UseRvalue{Operand: op}, nil
	default:
		return nil, fmt.Errorf("empty rvalue")
	}
}

func (l *lowering) binOperands(b *BinOpExpr) (mir.BinOp, mir.Operand, mir.Operand, error) {
	op, ok := binOpFromName(b.Op)
	if !ok {
		return 0, mir.Operand{}, mir.Operand{}, fmt.Errorf("unknown binary operator %q", b.Op)
	}
	left, err := l.operand(b.Left)
	if err != nil {
		return 0, mir.Operand{}, mir.Operand{}, err
	}
	right, err := l.operand(b.Right)
	if err != nil {
		return 0, mir.Operand{}, mir.Operand{}, err
	}
	return op, left, right, nil
}

func (l *lowering) term(td *Term) (mir.Terminator, error) {
	span := spanOf(td.Pos)
	switch {
	case td.Goto != nil:
		id, ok := blockID(td.Goto.Target)
		if !ok {
			return nil, fmt.Errorf("goto target %q is not of the form bbN", td.Goto.Target)
		}
		return &mir.GotoTerm{Target: id, Span: span}, nil
	case td.Return != nil:
		return &mir.ReturnTerm{Span: span}, nil
	case td.Unreachable != nil:
		return &mir.UnreachableTerm{Span: span}, nil
	case td.Drop != nil:
		p, err := l.place(td.Drop.Place)
		if err != nil {
			return nil, err
		}
		id, ok := blockID(td.Drop.Target)
		if !ok {
			return nil, fmt.Errorf("drop target %q is not of the form bbN", td.Drop.Target)
		}
		return &mir.DropTerm{Place: p, Target: id, Span: span}, nil
	case td.Assert != nil:
		return l.assert(td.Assert, span)
	case td.Switch != nil:
		return l.switchInt(td.Switch, span)
	case td.Call != nil:
		return l.call(td.Call, span)
	default:
		return nil, fmt.Errorf("block has no terminator")
	}
}

func (l *lowering) assert(ad *AssertTermDecl, span mir.Span) (mir.Terminator, error) {
	cond, err := l.operand(ad.Cond)
	if err != nil {
		return nil, err
	}
	kind, ok := assertKindFromName(ad.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown assert kind %q", ad.Kind)
	}
	id, ok := blockID(ad.Target)
	if !ok {
		return nil, fmt.Errorf("assert target %q is not of the form bbN", ad.Target)
	}
	msg, err := unquote(ad.Msg)
	if err != nil {
		return nil, err
	}
	return &mir.AssertTerm{
		Cond:     cond,
		Expected: ad.Expected == "true",
		Kind:     kind,
		Msg:      msg,
		Target:   id,
		Span:     span,
	}, nil
}

func (l *lowering) switchInt(sd *SwitchTerm, span mir.Span) (mir.Terminator, error) {
	discr, err := l.operand(sd.Discr)
	if err != nil {
		return nil, err
	}
	var values []int64
	var targets []mir.BlockID
	var defaultTarget *mir.BlockID
	for _, arm := range sd.Arms {
		id, ok := blockID(arm.Target)
		if !ok {
			return nil, fmt.Errorf("switchInt target %q is not of the form bbN", arm.Target)
		}
		if arm.Otherwise {
			t := id
			defaultTarget = &t
			continue
		}
		v, _, err := parseIntLit(*arm.Value)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		targets = append(targets, id)
	}
	if defaultTarget == nil {
		return nil, fmt.Errorf("switchInt is missing an \"otherwise\" arm")
	}
	targets = append(targets, *defaultTarget)
	return &mir.SwitchIntTerm{Discr: discr, Values: values, Targets: targets, Span: span}, nil
}

func (l *lowering) call(cd *CallTermDecl, span mir.Span) (mir.Terminator, error) {
	dest, err := l.place(cd.Dest)
	if err != nil {
		return nil, err
	}
	fn, err := l.operand(cd.Func)
	if err != nil {
		return nil, err
	}
	var args []mir.Operand
	for _, a := range cd.Args {
		op, err := l.operand(a)
		if err != nil {
			return nil, err
		}
		args = append(args, op)
	}
	ct := &mir.CallTerm{Func: fn, Args: args, Destination: dest, Span: span}
	if !cd.Diverge {
		id, ok := blockID(cd.Target)
		if !ok {
			return nil, fmt.Errorf("call target %q is not of the form bbN", cd.Target)
		}
		ct.Target = &id
	}
	return ct, nil
}

func (l *lowering) place(pd *PlaceExpr) (mir.Place, error) {
	p, _, err := l.placeOrFunc(pd)
	if err != nil {
		return mir.Place{}, err
	}
	return p, nil
}

// placeOrFunc resolves pd's root against the known place-root forms
// (_N, argN, ret); anything else is only valid as a bare, projection-free
// operand naming a function constant, reported via the bool return.
func (l *lowering) placeOrFunc(pd *PlaceExpr) (mir.Place, bool, error) {
	var root mir.Place
	switch {
	case strings.HasPrefix(pd.Root, "_"):
		n, ok := localIndex(pd.Root)
		if !ok {
			return mir.Place{}, false, fmt.Errorf("place root %q is not of the form _N", pd.Root)
		}
		root = mir.LocalPlace(n)
	case strings.HasPrefix(pd.Root, "arg"):
		n, err := strconv.Atoi(pd.Root[3:])
		if err != nil {
			return mir.Place{}, false, fmt.Errorf("place root %q is not of the form argN", pd.Root)
		}
		root = mir.ParamPlace(n)
	case pd.Root == "ret":
		root = mir.ResultPlace()
	default:
		if pd.Deref || len(pd.Proj) > 0 {
			return mir.Place{}, false, fmt.Errorf("%q is not a recognized place (expected _N, argN, or ret)", pd.Root)
		}
		return mir.Place{}, true, nil
	}
	if pd.Deref {
		root = root.Deref()
	}
	for _, proj := range pd.Proj {
		switch {
		case proj.FieldIdx != nil:
			n, _, err := parseIntLit(*proj.FieldIdx)
			if err != nil {
				return mir.Place{}, false, err
			}
			root = root.Field(int(n))
		case proj.Index != nil:
			idx, err := l.place(proj.Index)
			if err != nil {
				return mir.Place{}, false, err
			}
			root = root.Index(idx)
		}
	}
	return root, false, nil
}

func (l *lowering) operand(od *OperandExpr) (mir.Operand, error) {
	switch {
	case od.Move != nil:
		p, err := l.place(od.Move)
		return mir.Move(p), err
	case od.CopyOf != nil:
		p, err := l.place(od.CopyOf)
		return mir.Copy(p), err
	case od.Bool != nil:
		return mir.ConstBool(*od.Bool == "true"), nil
	case od.Literal != nil:
		v, ty, err := parseIntLit(*od.Literal)
		if err != nil {
			return mir.Operand{}, err
		}
		return mir.ConstInt(v, ty), nil
	case od.Bare != nil:
		p, isFunc, err := l.placeOrFunc(od.Bare)
		if err != nil {
			return mir.Operand{}, err
		}
		if isFunc {
			return mir.ConstFunc(od.Bare.Root), nil
		}
		return mir.Copy(p), nil
	default:
		return mir.Operand{}, fmt.Errorf("empty operand")
	}
}

func loType(td *TypeDecl) mir.Type {
	if prim, ok := primitiveType(td.Name); ok && !td.Amp {
		return prim
	}
	name := td.Name
	if len(td.Args) > 0 {
		name = name + "<" + strings.Join(td.Args, ", ") + ">"
	}
	if td.Amp {
		prefix := "&"
		if td.Mut {
			prefix = "&mut "
		}
		return mir.Type{Kind: mir.KindReference, Name: prefix + name}
	}
	return mir.Type{Kind: mir.KindNonPrimitive, Name: name}
}

func primitiveType(name string) (mir.Type, bool) {
	switch name {
	case "bool":
		return mir.Type{Kind: mir.KindBool, Name: "bool"}, true
	case "u8":
		return mir.Type{Kind: mir.KindUnsignedInt, Width: mir.Width8, Name: name}, true
	case "u16":
		return mir.Type{Kind: mir.KindUnsignedInt, Width: mir.Width16, Name: name}, true
	case "u32":
		return mir.Type{Kind: mir.KindUnsignedInt, Width: mir.Width32, Name: name}, true
	case "u64":
		return mir.Type{Kind: mir.KindUnsignedInt, Width: mir.Width64, Name: name}, true
	case "u128":
		return mir.Type{Kind: mir.KindUnsignedInt, Width: mir.Width128, Name: name}, true
	case "usize":
		return mir.Type{Kind: mir.KindUnsignedInt, Width: mir.WidthPtr, Name: name}, true
	case "i8":
		return mir.Type{Kind: mir.KindSignedInt, Width: mir.Width8, Name: name}, true
	case "i16":
		return mir.Type{Kind: mir.KindSignedInt, Width: mir.Width16, Name: name}, true
	case "i32":
		return mir.Type{Kind: mir.KindSignedInt, Width: mir.Width32, Name: name}, true
	case "i64":
		return mir.Type{Kind: mir.KindSignedInt, Width: mir.Width64, Name: name}, true
	case "i128":
		return mir.Type{Kind: mir.KindSignedInt, Width: mir.Width128, Name: name}, true
	case "isize":
		return mir.Type{Kind: mir.KindSignedInt, Width: mir.WidthPtr, Name: name}, true
	case "f32":
		return mir.Type{Kind: mir.KindFloat, Width: mir.Width32, Name: name}, true
	case "f64":
		return mir.Type{Kind: mir.KindFloat, Width: mir.Width64, Name: name}, true
	default:
		return mir.Type{}, false
	}
}

func localIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "_") {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func blockID(name string) (mir.BlockID, bool) {
	if !strings.HasPrefix(name, "bb") {
		return 0, false
	}
	n, err := strconv.Atoi(name[2:])
	if err != nil {
		return 0, false
	}
	return mir.BlockID(n), true
}

// parseIntLit splits off an Integer token's optional `_typesuffix` and
// parses the numeric part; the suffix (when present) resolves to a
// primitive type, otherwise the literal defaults to u32 the way an
// untyped integer constant would read in context.
func parseIntLit(tok string) (int64, mir.Type, error) {
	digits, suffix := tok, ""
	if i := strings.IndexByte(tok, '_'); i >= 0 {
		digits, suffix = tok[:i], tok[i+1:]
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, mir.Type{}, fmt.Errorf("invalid integer literal %q: %w", tok, err)
	}
	if suffix == "" {
		return v, mir.Type{Kind: mir.KindUnsignedInt, Width: mir.Width32, Name: "u32"}, nil
	}
	ty, ok := primitiveType(suffix)
	if !ok {
		return 0, mir.Type{}, fmt.Errorf("unknown integer suffix %q", suffix)
	}
	return v, ty, nil
}

func unquote(s string) (string, error) {
	return strconv.Unquote(s)
}

func binOpFromName(name string) (mir.BinOp, bool) {
	switch name {
	case "Add":
		return mir.OpAdd, true
	case "Sub":
		return mir.OpSub, true
	case "Mul":
		return mir.OpMul, true
	case "Div":
		return mir.OpDiv, true
	case "Rem":
		return mir.OpRem, true
	case "BitAnd":
		return mir.OpBitAnd, true
	case "BitOr":
		return mir.OpBitOr, true
	case "BitXor":
		return mir.OpBitXor, true
	case "Shl":
		return mir.OpShl, true
	case "Shr":
		return mir.OpShr, true
	case "Eq":
		return mir.OpEq, true
	case "Ne":
		return mir.OpNe, true
	case "Lt":
		return mir.OpLt, true
	case "Le":
		return mir.OpLe, true
	case "Gt":
		return mir.OpGt, true
	case "Ge":
		return mir.OpGe, true
	default:
		return 0, false
	}
}

func unOpFromName(name string) (mir.UnOp, bool) {
	switch name {
	case "Neg":
		return mir.OpNeg, true
	case "Not":
		return mir.OpNot, true
	default:
		return 0, false
	}
}

func assertKindFromName(name string) (mir.AssertKind, bool) {
	switch name {
	case "Overflow":
		return mir.AssertOverflow, true
	case "OverflowNeg":
		return mir.AssertOverflowNeg, true
	case "DivisionByZero":
		return mir.AssertDivisionByZero, true
	case "RemainderByZero":
		return mir.AssertRemainderByZero, true
	case "BoundsCheck":
		return mir.AssertBoundsCheck, true
	case "Custom":
		return mir.AssertCustom, true
	default:
		return 0, false
	}
}
