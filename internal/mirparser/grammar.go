package mirparser

import "github.com/alecthomas/participle/v2/lexer"

// AST is one parsed .mir file: every function body it declares, in source
// order. Grounded on grammar.Program's "sequence of top-level items" shape.
type AST struct {
	Functions []*FuncDecl `@@*`
}

type FuncDecl struct {
	Pos    lexer.Position
	Name   string       `"fn" @Ident "("`
	Params []*ParamDecl `[ @@ { "," @@ } ] ")"`
	Ret    *TypeDecl    `[ "->" @@ ]`
	Locals []*LocalDecl `"{" @@*`
	Blocks []*BlockDecl `@@* "}"`
}

// ParamDecl.Name is documentation only — lower.go resolves a parameter by
// its declaration position, addressed from an operand by the fixed argN
// convention (arg1 is whichever type comes first here), not by this name.
// Pos is kept for internal/lsp's semantic-token walk, which highlights
// parameter names the way kanso's own semantic.go highlights them.
type ParamDecl struct {
	Pos  lexer.Position
	Name string    `@Ident ":"`
	Type *TypeDecl `@@`
}

type LocalDecl struct {
	Pos  lexer.Position
	Name string    `"local" @Ident ":"`
	Type *TypeDecl `@@ ";"`
}

// TypeDecl covers the flat shape the analyzer actually distinguishes: a
// reference marker, a base name, and at most one level of generic
// arguments kept only for display (spec.md's Type carries Kind/Width plus
// a display Name — "Vec<u8>" is opaque no matter how its angle brackets
// parse).
type TypeDecl struct {
	Amp  bool     `[ @"&" ]`
	Mut  bool     `[ @"mut" ]`
	Name string   `@Ident`
	Args []string `[ "<" @Ident { "," @Ident } ">" ]`
}

type BlockDecl struct {
	Pos   lexer.Position
	Name  string  `@Ident ":" "{"`
	Stmts []*Stmt `@@*`
	Term  *Term   `@@ "}"`
}

// Stmt's Pos field is populated by participle with this node's starting
// position (any field of type lexer.Position named Pos gets this for
// free, no grammar tag needed) — used to stamp mir.Span on the lowered
// statement for diagnostic pinning.
type Stmt struct {
	Pos         lexer.Position
	StorageDead *StorageDeadStmt `  @@`
	Assign      *AssignStmt      `| @@`
}

type StorageDeadStmt struct {
	Local string `"storagedead" @Ident ";"`
}

type AssignStmt struct {
	Place  *PlaceExpr  `@@ "="`
	Rvalue *RvalueExpr `@@ ";"`
}

// PlaceExpr also doubles as a bare operand's syntax (a function-constant
// reference and a place root are both just an Ident); lower.go tells them
// apart by whether Root has the form _N, argN or "ret".
type PlaceExpr struct {
	Pos   lexer.Position
	Deref bool        `[ @"*" ]`
	Root  string      `@Ident`
	Proj  []*ProjExpr `@@*`
}

type ProjExpr struct {
	FieldIdx *string    `  "." @Integer`
	Index    *PlaceExpr `| "[" @@ "]"`
}

// OperandExpr is `move(place)`, `copy(place)`, a bare place/function name,
// or a literal.
type OperandExpr struct {
	Move    *PlaceExpr `  "move" "(" @@ ")"`
	CopyOf  *PlaceExpr `| "copy" "(" @@ ")"`
	Bool    *string    `| @( "true" | "false" )`
	Literal *string    `| @Integer`
	Bare    *PlaceExpr `| @@`
}

// RvalueExpr mirrors rustc's own MIR pretty-printer convention (`_3 =
// Add(move _1, move _2)`, `_4 = Len(_5)`, `_6 = Discriminant(_2)`) rather
// than inventing infix syntax that would need precedence climbing to
// parse unambiguously — a bare operand is the common case and every other
// shape names itself.
type RvalueExpr struct {
	Ref       *PlaceExpr     `  "Ref" "(" @@ ")"`
	AddressOf *PlaceExpr     `| "AddressOf" "(" @@ ")"`
	Len       *PlaceExpr     `| "Len" "(" @@ ")"`
	Discr     *PlaceExpr     `| "Discriminant" "(" @@ ")"`
	Cast      *CastExpr      `| @@`
	Checked   *BinOpExpr     `| "CheckedBinaryOp" "(" @@ ")"`
	Binary    *BinOpExpr     `| "BinaryOp" "(" @@ ")"`
	Unary     *UnOpExpr      `| "UnaryOp" "(" @@ ")"`
	Nullary   *NullaryExpr   `| "NullaryOp" "(" @@ ")"`
	Use       *OperandExpr   `| @@`
}

type CastExpr struct {
	Operand *OperandExpr `"Cast" "(" @@ ","`
	Target  *TypeDecl    `@@ ")"`
}

type BinOpExpr struct {
	Op    string       `@Ident ","`
	Left  *OperandExpr `@@ ","`
	Right *OperandExpr `@@`
}

type UnOpExpr struct {
	Op      string       `@Ident ","`
	Operand *OperandExpr `@@`
}

type NullaryExpr struct {
	Box    bool      `(  @"Box"`
	SizeOf bool      ` | @"SizeOf" )  ","`
	Type   *TypeDecl `@@`
}

// Term is one of the terminator shapes spec.md §4 names; a block must end
// in exactly one.
// Term's Pos works the same way as Stmt's.
type Term struct {
	Pos         lexer.Position
	Goto        *GotoTerm        `  @@`
	Return      *ReturnTerm      `| @@`
	Unreachable *UnreachableTerm `| @@`
	Drop        *DropTerm        `| @@`
	Assert      *AssertTermDecl  `| @@`
	Switch      *SwitchTerm      `| @@`
	Call        *CallTermDecl    `| @@`
}

type GotoTerm struct {
	Target string `"goto" "->" @Ident ";"`
}

type ReturnTerm struct {
	Ret bool `@"return" ";"`
}

type UnreachableTerm struct {
	U bool `@"unreachable" ";"`
}

type DropTerm struct {
	Place  *PlaceExpr `"drop" "(" @@ ")" "->"`
	Target string     `@Ident ";"`
}

type AssertTermDecl struct {
	Cond     *OperandExpr `"assert" "(" @@ ","`
	Expected string       `@( "true" | "false" ) ","`
	Kind     string       `@Ident ","`
	Msg      string       `@String ")" "->"`
	Target   string       `@Ident ";"`
}

type SwitchArm struct {
	Otherwise bool    `(  @"otherwise"`
	Value     *string ` | @Integer )  "=>"`
	Target    string  `@Ident`
}

type SwitchTerm struct {
	Discr *OperandExpr `"switchInt" "(" @@ ")" "{"`
	Arms  []*SwitchArm `@@ { "," @@ } "}"`
}

type CallTermDecl struct {
	Dest    *PlaceExpr     `@@ "=" "call" "("`
	Func    *OperandExpr   `@@`
	Args    []*OperandExpr `{ "," @@ } ")"`
	Diverge bool           `( @"!"`
	Target  string         ` | "->" @Ident )  ";"`
}
