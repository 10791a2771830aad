// Package mirbuilder is a fluent, Go-first constructor for internal/mir
// programs, used by package tests throughout the analyzer in place of
// parsing textual MIR for every fixture (spec §8's "testable properties"
// scenarios are built this way).
package mirbuilder

import "mir-checker/internal/mir"

// Program accumulates functions.
type Program struct {
	prog *mir.Program
}

// NewProgram starts an empty program.
func NewProgram() *Program {
	return &Program{prog: &mir.Program{}}
}

// Func starts a new function named name with the given parameter types and
// return type, and returns its builder.
func (p *Program) Func(name string, params []mir.Type, ret mir.Type) *Func {
	f := &mir.Function{
		Name:       name,
		ParamTypes: params,
		ReturnType: ret,
		LocalTypes: map[int]mir.Type{},
	}
	p.prog.Functions = append(p.prog.Functions, f)
	return &Func{fn: f}
}

// Build finalizes and returns the program.
func (p *Program) Build() *mir.Program {
	p.prog.Finalize()
	return p.prog
}

// Func builds one function body block by block.
type Func struct {
	fn *mir.Function
}

// Local declares the type of local n (0 is the return slot, 1..params are
// the parameters by MIR convention).
func (f *Func) Local(n int, t mir.Type) *Func {
	f.fn.LocalTypes[n] = t
	return f
}

// Block appends a new basic block with an explicit ID and returns its
// builder. The first block created becomes Entry.
func (f *Func) Block(id int) *Block {
	b := &mir.Block{ID: mir.BlockID(id)}
	f.fn.Blocks = append(f.fn.Blocks, b)
	if len(f.fn.Blocks) == 1 {
		f.fn.Entry = b.ID
	}
	return &Block{fn: f, b: b}
}

// Done returns to the enclosing program's builder context; mirbuilder calls
// chain through Program.Func(...).Block(...)... so Done is just f for
// readability at call sites.
func (f *Func) Done() *Func { return f }

// Block builds one basic block's statements and terminator.
type Block struct {
	fn *Func
	b  *mir.Block
}

// Assign appends `place = rvalue`.
func (b *Block) Assign(place mir.Place, rv mir.Rvalue) *Block {
	b.b.Statements = append(b.b.Statements, &mir.AssignStmt{Place: place, Rvalue: rv})
	return b
}

// StorageDead appends a StorageDead statement for local.
func (b *Block) StorageDead(local int) *Block {
	b.b.Statements = append(b.b.Statements, &mir.StorageDeadStmt{Local: local})
	return b
}

// Goto sets the terminator to an unconditional jump and returns the owning
// function builder so the caller can start the next block.
func (b *Block) Goto(target int) *Func {
	b.b.Terminator = &mir.GotoTerm{Target: mir.BlockID(target)}
	return b.fn
}

// SwitchInt sets a SwitchInt terminator.
func (b *Block) SwitchInt(discr mir.Operand, values []int64, targets []int) *Func {
	ts := make([]mir.BlockID, len(targets))
	for i, t := range targets {
		ts[i] = mir.BlockID(t)
	}
	b.b.Terminator = &mir.SwitchIntTerm{Discr: discr, Values: values, Targets: ts}
	return b.fn
}

// Return sets a Return terminator.
func (b *Block) Return() *Func {
	b.b.Terminator = &mir.ReturnTerm{}
	return b.fn
}

// Drop sets a Drop terminator.
func (b *Block) Drop(place mir.Place, target int) *Func {
	b.b.Terminator = &mir.DropTerm{Place: place, Target: mir.BlockID(target)}
	return b.fn
}

// Assert sets an Assert terminator.
func (b *Block) Assert(cond mir.Operand, expected bool, kind mir.AssertKind, msg string, target int) *Func {
	b.b.Terminator = &mir.AssertTerm{Cond: cond, Expected: expected, Kind: kind, Msg: msg, Target: mir.BlockID(target)}
	return b.fn
}

// Call sets a Call terminator; target == nil means the call diverges.
func (b *Block) Call(fn mir.Operand, args []mir.Operand, dest mir.Place, target *int) *Func {
	var t *mir.BlockID
	if target != nil {
		id := mir.BlockID(*target)
		t = &id
	}
	b.b.Terminator = &mir.CallTerm{Func: fn, Args: args, Destination: dest, Target: t}
	return b.fn
}

// Unreachable sets an Unreachable terminator.
func (b *Block) Unreachable() *Func {
	b.b.Terminator = &mir.UnreachableTerm{}
	return b.fn
}

// IntTy is a shorthand for a signed/unsigned integer mir.Type.
func IntTy(signed bool, width mir.IntWidth, name string) mir.Type {
	k := mir.KindUnsignedInt
	if signed {
		k = mir.KindSignedInt
	}
	return mir.Type{Kind: k, Width: width, Name: name}
}

// BoolTy is the bool mir.Type.
func BoolTy() mir.Type { return mir.Type{Kind: mir.KindBool, Name: "bool"} }
