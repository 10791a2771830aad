package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/checker"
	"mir-checker/internal/mir"
	"mir-checker/internal/taint"
	"mir-checker/internal/transfer"
)

func span(line int) mir.Span { return mir.Span{File: "x.mir", Line: line, Column: 1} }

func TestCollectorOrdersByPrimarySpan(t *testing.T) {
	c := NewCollector()
	c.add(Diagnostic{Span: span(5), Message: "late"})
	c.add(Diagnostic{Span: span(1), Message: "early"})
	got := c.Diagnostics()
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].Message)
	assert.Equal(t, "late", got[1].Message)
}

func TestCollectorDeduplicatesBySpanAndMessage(t *testing.T) {
	c := NewCollector()
	c.add(Diagnostic{Span: span(1), Message: "dup"})
	c.add(Diagnostic{Span: span(1), Message: "dup"})
	assert.Len(t, c.Diagnostics(), 1)
}

func TestCollectorMinSeverityFilter(t *testing.T) {
	c := NewCollector(WithMinSeverity(SeverityError))
	c.add(Diagnostic{Span: span(1), Message: "w", Severity: SeverityWarning})
	c.add(Diagnostic{Span: span(2), Message: "e", Severity: SeverityError})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.Equal(t, "e", got[0].Message)
}

func TestCollectorMemorySafetyOnlyFilter(t *testing.T) {
	c := NewCollector(MemorySafetyOnly())
	c.add(Diagnostic{Span: span(1), Message: "arith", IsMemorySafety: false})
	c.add(Diagnostic{Span: span(2), Message: "leak", IsMemorySafety: true})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.Equal(t, "leak", got[0].Message)
}

func TestCollectorSuppressCause(t *testing.T) {
	c := NewCollector(SuppressCause(CauseAssembly))
	c.add(Diagnostic{Span: span(1), Message: "asm", Cause: CauseAssembly})
	c.add(Diagnostic{Span: span(2), Message: "mem", Cause: CauseMemory})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.Equal(t, "mem", got[0].Message)
}

func TestCollectorHasErrors(t *testing.T) {
	c := NewCollector()
	c.add(Diagnostic{Span: span(1), Message: "w", Severity: SeverityWarning})
	assert.False(t, c.HasErrors())
	c.add(Diagnostic{Span: span(2), Message: "e", Severity: SeverityError})
	assert.True(t, c.HasErrors())
}

func TestAssertionSinkClassifiesUnsafeAsError(t *testing.T) {
	c := NewCollector()
	sink := AssertionSink{C: c}
	sink.Report(checker.Diagnostic{
		Span: span(3), Kind: mir.AssertDivisionByZero, Verdict: checker.Unsafe, Message: "division by zero",
	})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.Equal(t, SeverityError, got[0].Severity)
	assert.Equal(t, CauseDivZero, got[0].Cause)
}

func TestAssertionSinkClassifiesWarningAsWarning(t *testing.T) {
	c := NewCollector()
	sink := AssertionSink{C: c}
	sink.Report(checker.Diagnostic{
		Span: span(4), Kind: mir.AssertBoundsCheck, Verdict: checker.Warning, Message: "index may be out of bounds",
	})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.Equal(t, CauseIndex, got[0].Cause)
}

func TestTaintSinkIsAlwaysMemorySafety(t *testing.T) {
	c := NewCollector()
	sink := TaintSink{C: c}
	sink.Report(taint.Diagnostic{Span: span(6), Message: "heap block dropped more than once"})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.True(t, got[0].IsMemorySafety)
	assert.Equal(t, CauseMemory, got[0].Cause)
}

func TestAsmSinkReportsAssemblyCause(t *testing.T) {
	c := NewCollector()
	sink := AsmSink{C: c}
	sink.ObserveAsm(transfer.AsmObservation{Span: span(7)})
	got := c.Diagnostics()
	require.Len(t, got, 1)
	assert.Equal(t, CauseAssembly, got[0].Cause)
	assert.False(t, got[0].IsMemorySafety)
}
