package diagnostics

import (
	"fmt"
	"sort"

	"mir-checker/internal/checker"
	"mir-checker/internal/taint"
	"mir-checker/internal/transfer"
)

// Option configures a Collector's output filters.
type Option func(*Collector)

// WithMinSeverity drops any Diagnostic below sev. The CLI has no flag for
// it; analysis.Config.MinSeverity is its only source.
func WithMinSeverity(sev Severity) Option {
	return func(c *Collector) { c.minSeverity = sev }
}

// MemorySafetyOnly restricts output to diagnostics with IsMemorySafety set.
func MemorySafetyOnly() Option {
	return func(c *Collector) { c.memorySafetyOnly = true }
}

// SuppressCause hides every Diagnostic tagged cause.
func SuppressCause(cause Cause) Option {
	return func(c *Collector) {
		if c.suppressed == nil {
			c.suppressed = map[Cause]bool{}
		}
		c.suppressed[cause] = true
	}
}

// Collector buffers diagnostics across an analysis run, de-duplicating by
// span+message and applying the filters spec §3.7 names before handing them
// out in primary-span order.
type Collector struct {
	minSeverity      Severity
	memorySafetyOnly bool
	suppressed       map[Cause]bool

	diags []Diagnostic
	seen  map[string]bool
}

// NewCollector builds an empty Collector with the given filters applied.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{seen: map[string]bool{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) add(d Diagnostic) {
	key := fmt.Sprintf("%s:%d:%d:%s", d.Span.File, d.Span.Line, d.Span.Column, d.Message)
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.diags = append(c.diags, d)
}

// Diagnostics returns the filtered, span-ordered findings collected so far.
func (c *Collector) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(c.diags))
	for _, d := range c.diags {
		if d.Severity < c.minSeverity {
			continue
		}
		if c.memorySafetyOnly && !d.IsMemorySafety {
			continue
		}
		if c.suppressed[d.Cause] {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Span, out[j].Span
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

// HasErrors reports whether any unfiltered diagnostic is SeverityError —
// the analysis CLI's nonzero-exit condition.
func (c *Collector) HasErrors() bool {
	for _, d := range c.Diagnostics() {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// AssertionSink adapts a Collector to checker.Sink.
type AssertionSink struct{ C *Collector }

var _ checker.Sink = AssertionSink{}

func (s AssertionSink) Report(d checker.Diagnostic) { s.C.add(fromAssertion(d)) }

// TaintSink adapts a Collector to taint.Sink.
type TaintSink struct{ C *Collector }

var _ taint.Sink = TaintSink{}

func (s TaintSink) Report(d taint.Diagnostic) { s.C.add(fromTaint(d)) }

// AsmSink adapts a Collector to transfer.AsmSink.
type AsmSink struct{ C *Collector }

var _ transfer.AsmSink = AsmSink{}

func (s AsmSink) ObserveAsm(obs transfer.AsmObservation) { s.C.add(fromAsm(obs)) }
