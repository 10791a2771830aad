package lsp

import (
	"github.com/alecthomas/participle/v2/lexer"

	"mir-checker/internal/mirparser"
)

// SemanticToken is one LSP semantic token entry. Line and StartChar are
// 0-based; TokenType indexes SemanticTokenTypes, TokenModifiers is a
// bitmask into SemanticTokenModifiers — unchanged shape from kanso's own
// internal/lsp/semantic.go.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// collectSemanticTokens walks a parsed .mir AST and emits one token per
// function name, parameter, local declaration, block label, and assignment
// target place (places read by operands or terminators get no token) — the
// textual-MIR analogue of kanso's walk over module/struct/
// function declarations in the Kanso grammar.
func collectSemanticTokens(ast *mirparser.AST) []SemanticToken {
	var tokens []SemanticToken
	if ast == nil {
		return tokens
	}
	for _, fn := range ast.Functions {
		tokens = append(tokens, walkFunc(fn)...)
	}
	return tokens
}

func walkFunc(fn *mirparser.FuncDecl) []SemanticToken {
	var tokens []SemanticToken
	tokens = append(tokens, makeToken(fn.Pos, fn.Name, "function", 1))
	for _, p := range fn.Params {
		tokens = append(tokens, makeToken(p.Pos, p.Name, "parameter", 1))
	}
	for _, l := range fn.Locals {
		tokens = append(tokens, makeToken(l.Pos, l.Name, "variable", 1))
	}
	for _, b := range fn.Blocks {
		tokens = append(tokens, makeToken(b.Pos, b.Name, "namespace", 1))
		for _, s := range b.Stmts {
			tokens = append(tokens, walkStmt(s)...)
		}
		tokens = append(tokens, walkTerm(b.Term)...)
	}
	return tokens
}

func walkStmt(s *mirparser.Stmt) []SemanticToken {
	if s == nil || s.Assign == nil {
		return nil
	}
	var tokens []SemanticToken
	tokens = append(tokens, placeToken(s.Assign.Place)...)
	return tokens
}

func walkTerm(t *mirparser.Term) []SemanticToken {
	if t == nil || t.Assert == nil {
		return nil
	}
	return nil // assert/call/switch operands carry no additional declared names worth tagging
}

func placeToken(p *mirparser.PlaceExpr) []SemanticToken {
	if p == nil {
		return nil
	}
	return []SemanticToken{makeToken(p.Pos, p.Root, "variable", 0)}
}

func makeToken(pos lexer.Position, value, tokenType string, decl int) SemanticToken {
	return SemanticToken{
		Line:           uint32(maxInt(pos.Line-1, 0)),
		StartChar:      uint32(maxInt(pos.Column-1, 0)),
		Length:         uint32(len(value)),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: decl << indexOf("declaration", SemanticTokenModifiers),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// indexOf returns the index of target in list, or -1 if absent.
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
