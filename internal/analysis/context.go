package analysis

import (
	"mir-checker/internal/checker"
	"mir-checker/internal/diagnostics"
	"mir-checker/internal/interproc"
	"mir-checker/internal/mir"
	"mir-checker/internal/numerical"
	"mir-checker/internal/taint"
	"mir-checker/internal/transfer"
)

// Logger is the minimal debug-line sink a Context carries as Log. Analyze
// and the transfer functions emit no lines through it. internal/mclog.Logger
// satisfies this without analysis importing it directly.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}

// Context bundles everything one Analyze call wires together: the shared
// diagnostics collector, the assertion checker and taint tracker that feed
// it, the inter-procedural call handler, and the numerical manager backing
// every AbstractDomain built during the run.
type Context struct {
	Prog      *mir.Program
	Mgr       *numerical.Manager
	Collector *diagnostics.Collector
	Checker   *checker.Checker
	Taint     *taint.Tracker
	Calls     *interproc.CallTransfer
	Log       Logger

	CleaningDelay int
}

// NewContext wires one Context from cfg, ready to build an Interpreter for
// the entry function (and, recursively, any callee interproc.CallTransfer
// reaches).
func NewContext(prog *mir.Program, cfg Config) *Context {
	mgr := numerical.Default()
	mgr.SetKind(cfg.Domain)

	collector := diagnostics.NewCollector(collectorOpts(cfg)...)
	asserts := &checker.Checker{Sink: diagnostics.AssertionSink{C: collector}}
	taints := taint.New(diagnostics.TaintSink{C: collector})

	depth := cfg.MaxCallDepth
	if depth <= 0 {
		depth = 1
	}
	calls := interproc.NewCallTransfer(prog, mgr, asserts, taints)
	calls.MaxDepth = depth
	calls.Asm = diagnostics.AsmSink{C: collector}
	calls.Limits = cfg.limits()
	calls.CleaningDelay = cfg.CleaningDelay

	log := cfg.logger()

	return &Context{
		Prog:          prog,
		Mgr:           mgr,
		Collector:     collector,
		Checker:       asserts,
		Taint:         taints,
		Calls:         calls,
		Log:           log,
		CleaningDelay: cfg.CleaningDelay,
	}
}

func collectorOpts(cfg Config) []diagnostics.Option {
	opts := []diagnostics.Option{diagnostics.WithMinSeverity(cfg.MinSeverity)}
	if cfg.MemorySafety {
		opts = append(opts, diagnostics.MemorySafetyOnly())
	}
	for _, c := range cfg.SuppressCauses {
		opts = append(opts, diagnostics.SuppressCause(c))
	}
	return opts
}

// Interpreter builds the transfer.Interpreter for fn, wired to this
// Context's shared checker, taint tracker, and call handler.
func (c *Context) Interpreter(fn mir.FuncID) *transfer.Interpreter {
	return &transfer.Interpreter{
		Prog:          c.Prog,
		FnID:          fn,
		Calls:         c.Calls,
		Asserts:       c.Checker,
		Taint:         c.Taint,
		Asm:           diagnostics.AsmSink{C: c.Collector},
		CleaningDelay: c.CleaningDelay,
	}
}
