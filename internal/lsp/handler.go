package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"mir-checker/internal/analysis"
	"mir-checker/internal/mir"
	"mir-checker/internal/mirparser"
)

// SemanticTokenTypes is the set of token categories this server advertises,
// unchanged from kanso's own legend since the LSP semantic-token protocol
// is language-agnostic.
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"typeParameter",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"modifier",
}

// SemanticTokenModifiers is the set of supported semantic token modifiers.
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
}

// Handler implements the LSP server handlers for mir-checker's textual MIR,
// the same shape as kanso's KansoHandler but holding a parsed AST (for
// semantic tokens) and an analyzed Program (for diagnostics) per path
// instead of a Kanso ast.Contract.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	asts    map[string]*mirparser.AST
	progs   map[string]*mir.Program

	// Config drives every re-analysis this handler performs (SPEC_FULL.md
	// §6.3); nil means analysis.DefaultConfig(), analyzing the program's
	// first function.
	Config *analysis.Config
}

// NewHandler creates and returns a new Handler instance.
func NewHandler() *Handler {
	return &Handler{
		content: make(map[string]string),
		asts:    make(map[string]*mirparser.AST),
		progs:   make(map[string]*mir.Program),
	}
}

func (h *Handler) config() analysis.Config {
	if h.Config != nil {
		return *h.Config
	}
	return analysis.DefaultConfig()
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true), // notify on open/close events
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false), // no additional detail resolution yet
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true), // support full-document semantic token requests
			},
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("mir-checker LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("mir-checker LSP Shutdown")
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)

	diags, err := h.updateAST(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to update AST: %w", err)
	}

	sendDiagnosticNotification(ctx, params.TextDocument.URI, diags)

	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.asts, path)
	delete(h.progs, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor.
// Like kanso's own handler, this re-reads the file from disk rather than
// reconstructing it from params.ContentChanges: the editor has already
// saved or is about to, and TextDocumentSyncKindFull's change payload shape
// isn't worth threading through for a document this handler re-reads on
// every request anyway.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)

	diags, err := h.updateAST(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to update AST: %w", err)
	}

	sendDiagnosticNotification(ctx, params.TextDocument.URI, diags)

	return nil
}

// TextDocumentCompletion handles completion requests (currently returns empty list)
func (h *Handler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (interface{}, error) {
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        []protocol.CompletionItem{},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Println("TextDocumentSemanticTokensFull called for:", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	ast, err := h.getOrUpdateAST(ctx, path, rawURI)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(ast)

	var data []uint32
	var prevLine, prevStart uint32

	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

func (h *Handler) getOrUpdateAST(ctx *glsp.Context, path string, rawURI protocol.DocumentUri) (*mirparser.AST, error) {
	h.mu.RLock()
	ast, ok := h.asts[path]
	h.mu.RUnlock()

	if ok {
		return ast, nil
	}

	diags, err := h.updateAST(rawURI)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	ast = h.asts[path]
	h.mu.RUnlock()

	if diags != nil {
		sendDiagnosticNotification(ctx, rawURI, diags)
	}

	return ast, nil
}

// updateAST re-reads the file at rawURI from disk; used the first time a
// document is touched by a request that didn't already carry its text (a
// TextDocumentSemanticTokensFull request arriving before DidOpen, say).
func (h *Handler) updateAST(rawURI protocol.DocumentUri) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return h.updateFromText(rawURI, string(content))
}

// updateFromText re-parses and re-analyzes source for rawURI (SPEC_FULL.md
// §6.3): C0 builds the raw parse tree used for semantic tokens, then Lower
// and analysis.Analyze (C13) run over it, and the resulting diagnostics are
// returned for publishing. A parse failure clears any previously cached
// AST/Program for the path so stale semantic tokens aren't served.
func (h *Handler) updateFromText(rawURI protocol.DocumentUri, source string) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	ast, parseErr := mirparser.ParseAST(path, source)
	if parseErr != nil {
		h.mu.Lock()
		h.content[path] = source
		delete(h.asts, path)
		delete(h.progs, path)
		h.mu.Unlock()
		return ConvertParseError(parseErr), nil
	}

	h.mu.Lock()
	h.content[path] = source
	h.asts[path] = ast
	h.mu.Unlock()

	prog, err := mirparser.Lower(ast)
	if err != nil {
		h.mu.Lock()
		delete(h.progs, path)
		h.mu.Unlock()
		return ConvertParseError(err), nil
	}

	h.mu.Lock()
	h.progs[path] = prog
	h.mu.Unlock()

	report, err := analysis.Analyze(context.Background(), prog, h.config())
	if err != nil {
		// An unresolved entry point or similar setup failure isn't a source
		// diagnostic; surface nothing rather than mislabel it as one.
		log.Printf("analysis of %s failed: %v\n", path, err)
		return nil, nil
	}

	return ConvertDiagnostics(report.Diagnostics), nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diags []protocol.Diagnostic) {
	diagnosticsJSON, err := json.MarshalIndent(diags, "", "  ")
	if err != nil {
		fmt.Println("Failed to marshal diagnostics:", err)
		return
	}

	log.Println("Sending diagnostics:", string(diagnosticsJSON))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
