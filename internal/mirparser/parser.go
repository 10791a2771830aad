package mirparser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"

	"mir-checker/internal/mir"
)

var parser = buildParser()

func buildParser() *participle.Parser[AST] {
	p, err := participle.Build[AST](
		participle.Lexer(Lexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(2),
	)
	if err != nil {
		panic(fmt.Errorf("mirparser: failed to build parser: %w", err))
	}
	return p
}

// ParseString parses source (named sourceName for diagnostics) into a
// mir.Program, grounded on kanso's parser.ParseSource two-stage shape:
// participle first builds an AST, then Lower validates and converts it.
func ParseString(sourceName, source string) (*mir.Program, error) {
	ast, err := ParseAST(sourceName, source)
	if err != nil {
		return nil, err
	}
	return Lower(ast)
}

// ParseAST runs only the grammar stage, returning the raw parse tree before
// Lower's semantic validation. internal/lsp uses this directly for semantic
// tokens, which only need source positions and names, not a validated
// mir.Program.
func ParseAST(sourceName, source string) (*AST, error) {
	return parser.ParseString(sourceName, source)
}

// ParseFile reads path and parses it, mirroring kanso's parser.ParseFile.
func ParseFile(path string) (*mir.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}
