// Package mirparser reads the textual MIR fixture format (spec.md §1 treats
// the MIR provider as external; this is the stand-in a CLI/LSP can run
// against without a real compiler front-end attached, see SPEC_FULL.md C0).
package mirparser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer mirrors grammar.KansoLexer's stateful, ordered-rule style: longer
// or more specific tokens (Arrow, ColonColon) are listed ahead of the
// single-character Operator/Punctuation catch-alls they'd otherwise be
// swallowed by.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Arrow", `->`, nil},
		{"FatArrow", `=>`, nil},
		{"ColonColon", `::`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+(_[a-zA-Z][a-zA-Z0-9]*)?`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"Operator", `(==|!=|<=|>=|<<|>>|[-+*/%&|^<>=!])`, nil},
		{"Punctuation", `[{}()\[\],;:.]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
