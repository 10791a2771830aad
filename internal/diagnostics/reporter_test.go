package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mir-checker/internal/mir"
)

func TestFormatIncludesHeaderAndLocation(t *testing.T) {
	r := NewReporter()
	d := Diagnostic{
		Span:     mir.Span{File: "div.mir", Line: 4, Column: 8, Length: 3},
		Severity: SeverityError,
		Message:  "division by zero",
		Cause:    CauseDivZero,
	}
	out := r.Format(d)
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "division by zero")
	assert.Contains(t, out, "div.mir:4:8")
}

func TestFormatRendersSourceLineWhenRegistered(t *testing.T) {
	r := NewReporter()
	r.RegisterSource("div.mir", "fn f() {\n  _1 = _2 / _3;\n}\n")
	d := Diagnostic{Span: mir.Span{File: "div.mir", Line: 2, Column: 8, Length: 1}, Message: "division by zero"}
	out := r.Format(d)
	assert.Contains(t, out, "_1 = _2 / _3;")
}

func TestFormatAllOrderPreserved(t *testing.T) {
	r := NewReporter()
	diags := []Diagnostic{
		{Span: mir.Span{File: "a.mir", Line: 1}, Message: "first"},
		{Span: mir.Span{File: "a.mir", Line: 2}, Message: "second"},
	}
	out := r.FormatAll(diags)
	firstIdx := indexOf(out, "first")
	secondIdx := indexOf(out, "second")
	assert.True(t, firstIdx >= 0 && secondIdx > firstIdx)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
