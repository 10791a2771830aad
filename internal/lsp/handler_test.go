package lsp_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"mir-checker/internal/lsp"
)

const validFixture = `
fn div_zero(arg1: u32) -> u32 {
    local _2: bool;
    local _3: u32;

    bb0: {
        _2 = BinaryOp(Ne, copy(arg1), 0_u32);
        assert(copy(_2), true, DivisionByZero, "division by zero") -> bb1;
    }
    bb1: {
        _3 = BinaryOp(Div, 100_u32, copy(arg1));
        return;
    }
}
`

func writeFixture(t *testing.T, name, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewHandler()

	absPath := writeFixture(t, "div_zero.mir", validFixture)
	uri := "file://" + filepath.ToSlash(absPath)

	ctx := &glsp.Context{}
	params := &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: uri,
		},
	}

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, params)
	require.NoError(t, err, "TextDocumentSemanticTokensFull returned error")
	require.NotNil(t, tokens, "Returned tokens should not be nil")
	require.NotEmpty(t, tokens.Data, "Returned token data should not be empty")

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err, "Failed to decode semantic tokens")
	require.NotEmpty(t, decoded, "No semantic tokens decoded")

	tokenTypes := make(map[string]int)
	for _, token := range decoded {
		tokenTypes[token.Type]++
	}

	require.Greater(t, tokenTypes["function"], 0, "Should have function tokens for fn declarations")
	require.Greater(t, tokenTypes["parameter"], 0, "Should have parameter tokens for fn params")
	require.Greater(t, tokenTypes["variable"], 0, "Should have variable tokens for locals and places")
	require.Greater(t, tokenTypes["namespace"], 0, "Should have namespace tokens for block labels")

	t.Logf("Generated %d semantic tokens with types: %v", len(decoded), tokenTypes)
}

func TestTextDocumentDidOpenSucceedsOnValidProgram(t *testing.T) {
	handler := lsp.NewHandler()

	absPath := writeFixture(t, "div_zero.mir", validFixture)
	uri := "file://" + filepath.ToSlash(absPath)

	ctx := &glsp.Context{}
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: validFixture},
	})
	require.NoError(t, err)
}

func TestTextDocumentDidOpenReportsParseErrorAsDiagnostic(t *testing.T) {
	handler := lsp.NewHandler()

	broken := "fn broken(arg1: u32) -> u32 {\n"
	absPath := writeFixture(t, "broken.mir", broken)
	uri := "file://" + filepath.ToSlash(absPath)

	ctx := &glsp.Context{}
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: broken},
	})
	require.NoError(t, err, "a parse failure is reported as a diagnostic, not a handler error")

	tokens, tokErr := handler.TextDocumentSemanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.Error(t, tokErr, "an AST never gets cached for a file that failed to parse")
	require.Nil(t, tokens)
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1, // LSP uses 0-based indexing
			Char:      char + 1, // LSP uses 0-based indexing
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
