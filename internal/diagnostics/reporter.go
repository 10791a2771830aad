package diagnostics

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats Diagnostics with Rust-style caret pointers, the way
// kanso's ErrorReporter formats CompilerError. Source text is optional —
// when a Diagnostic's file has no registered source, only the header and
// location line are printed.
type Reporter struct {
	sources map[string][]string
}

// NewReporter builds an empty Reporter. RegisterSource must be called once
// per file that should render with source context.
func NewReporter() *Reporter {
	return &Reporter{sources: map[string][]string{}}
}

// RegisterSource attaches source text for caret rendering of diagnostics in
// that file.
func (r *Reporter) RegisterSource(file, source string) {
	r.sources[file] = strings.Split(source, "\n")
}

// Format renders one Diagnostic as a multi-line string.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	levelColor := color.New(color.FgYellow, color.Bold).SprintFunc()
	if d.Severity == SeverityError {
		levelColor = color.New(color.FgRed, color.Bold).SprintFunc()
	}
	dim := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	out.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(d.Severity.String()), d.Cause, d.Message))

	width := lineNumberWidth(d.Span.Line)
	indent := strings.Repeat(" ", width)
	out.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", indent, dim("-->"), d.Span.File, d.Span.Line, d.Span.Column))
	out.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	lines := r.sources[d.Span.File]
	if d.Span.Line > 0 && d.Span.Line <= len(lines) {
		out.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", width, d.Span.Line)), dim("│"), lines[d.Span.Line-1]))
		out.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker(d.Span.Column, d.Span.Length, levelColor)))
	}
	if d.IsMemorySafety {
		helpColor := color.New(color.FgGreen).SprintFunc()
		out.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("│"), helpColor("note:"), "memory-safety finding"))
	}
	out.WriteString("\n")
	return out.String()
}

// FormatAll renders every Diagnostic in order, joined.
func (r *Reporter) FormatAll(diags []Diagnostic) string {
	var out strings.Builder
	for _, d := range diags {
		out.WriteString(r.Format(d))
	}
	return out.String()
}

func lineNumberWidth(line int) int {
	w := len(fmt.Sprintf("%d", line))
	if w < 3 {
		return 3
	}
	return w
}

func marker(column, length int, colorFn func(...interface{}) string) string {
	if length <= 0 {
		length = 1
	}
	pad := column - 1
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + colorFn(strings.Repeat("^", length))
}
