// Package mclog wraps tliron/commonlog (C17, spec §7.1's ambient logging
// concern) into the small leveled interface the CLI driver and
// internal/analysis need, distinct from internal/diagnostics' user-facing
// finding channel. Grounded on cmd/kanso-lsp/main.go's
// `commonlog.Configure(1, nil)` call — the teacher wires commonlog once at
// startup and otherwise logs through the stdlib `log` package directly
// (`internal/lsp/handler.go`'s `log.Println` calls); this package keeps
// that same startup wiring but gives the driver named, leveled loggers
// instead, since a CLI with several internal phases (WTO, fixpoint,
// checker) benefits from tagging which one a line came from the way the
// teacher's single-purpose LSP handler didn't need to.
package mclog

import (
	"github.com/tliron/commonlog"
)

// Logger is the subset of commonlog.Logger the rest of this module depends
// on. internal/analysis.Logger only needs Debugf; the CLI driver prints
// AnalysisErrors itself rather than through Warningf/Errorf.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Configure sets commonlog's global verbosity the same way
// cmd/kanso-lsp/main.go does (maxVerbosity 0 disables debug logging; 1
// enables it). A nil path logs to stderr, matching the teacher's call.
func Configure(maxVerbosity int, path *string) {
	commonlog.Configure(maxVerbosity, path)
}

// New returns a named Logger (e.g. "mir-checker", "fixpoint") backed by
// commonlog's registry, the same backend cmd/mir-checker-lsp configures
// through glsp's own commonlog.GetLogger calls.
func New(name string) Logger {
	return commonlog.GetLogger(name)
}

// noop satisfies Logger for tests and for the CLI, without commonlog's own
// machinery needing to be configured first.
type noop struct{}

func (noop) Debugf(string, ...interface{})   {}
func (noop) Infof(string, ...interface{})    {}
func (noop) Warningf(string, ...interface{}) {}
func (noop) Errorf(string, ...interface{})   {}

// Noop is the logger cmd/mir-checker passes to the analysis on every run;
// the CLI has no flag that enables logging.
var Noop Logger = noop{}
