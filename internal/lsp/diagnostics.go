package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"mir-checker/internal/diagnostics"
)

// ConvertParseError turns a mirparser.ParseString/ParseAST error into one
// LSP diagnostic, the same shape as kanso's ConvertParseErrors — a single
// caret-width span at the reported position, since participle (unlike
// kanso's own scanner) doesn't hand back a token length to span.
func ConvertParseError(err error) []protocol.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return []protocol.Diagnostic{{
			Range:    protocol.Range{Start: protocol.Position{}, End: protocol.Position{Character: 1}},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("mir-checker-parser"),
			Message:  err.Error(),
		}}
	}

	pos := pe.Position()
	line := uint32(0)
	if pos.Line > 0 {
		line = uint32(pos.Line - 1)
	}
	col := uint32(0)
	if pos.Column > 0 {
		col = uint32(pos.Column - 1)
	}

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("mir-checker-parser"),
		Message:  pe.Message(),
	}}
}

// ConvertDiagnostics translates an analysis.Report's findings into LSP
// diagnostics (SPEC_FULL.md §6.3): Severity maps to
// protocol.DiagnosticSeverity, and Cause is named in the diagnostic's
// Source, e.g. "mir-checker (division by zero)".
func ConvertDiagnostics(diags []diagnostics.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		line := uint32(0)
		if d.Span.Line > 0 {
			line = uint32(d.Span.Line - 1)
		}
		col := uint32(0)
		if d.Span.Column > 0 {
			col = uint32(d.Span.Column - 1)
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: col},
				End:   protocol.Position{Line: line, Character: col + 1},
			},
			Severity: ptrSeverity(convertSeverity(d.Severity)),
			Source:   ptrString("mir-checker (" + d.Cause.String() + ")"),
			Message:  d.Message,
		})
	}
	return out
}

func convertSeverity(s diagnostics.Severity) protocol.DiagnosticSeverity {
	if s == diagnostics.SeverityError {
		return protocol.DiagnosticSeverityError
	}
	return protocol.DiagnosticSeverityWarning
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }
func ptrString(s string) *string                                            { return &s }
