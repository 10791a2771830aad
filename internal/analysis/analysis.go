// Package analysis assembles C1-C12 into the single entry point spec.md's
// data-flow diagram implies but never names: resolve an entry function,
// run its fixpoint, and collect the diagnostics its transfer function,
// assertion checker, and taint tracker produce along the way.
package analysis

import (
	"context"
	"fmt"

	"mir-checker/internal/diagnostics"
	"mir-checker/internal/domain"
	"mir-checker/internal/fixpoint"
	"mir-checker/internal/interproc"
	"mir-checker/internal/mir"
	"mir-checker/internal/path"
)

// Report is the outcome of one Analyze call: the resolved entry function
// and every diagnostic the run produced, already filtered and ordered by
// Context's Collector.
type Report struct {
	EntryFn     mir.FuncID
	EntryName   string
	Diagnostics []diagnostics.Diagnostic
	HasErrors   bool
}

// Analyze resolves cfg's entry point in prog, runs the fixpoint over its
// CFG, and returns the collected diagnostics. It returns an *AnalysisError
// (never a bare error) on recoverable failure: unresolved entry point, or
// the supplied ctx's deadline expiring mid-run.
func Analyze(ctx context.Context, prog *mir.Program, cfg Config) (*Report, error) {
	fn, id, err := resolveEntry(prog, cfg)
	if err != nil {
		return nil, err
	}

	ac := NewContext(prog, cfg)
	w := interproc.BuildWTO(fn)
	entry := domain.Top(ac.Mgr)
	seedEntryParams(entry, fn)
	it := ac.Interpreter(id)

	type runResult struct {
		res *fixpoint.Result
	}
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{res: fixpoint.RunWithOptions(fn, w, entry, it.Step, cfg.limits())}
	}()

	select {
	case <-ctx.Done():
		return nil, &AnalysisError{Kind: TimeOut, Message: fmt.Sprintf("analysis of %q did not complete before the deadline", fn.Name)}
	case r := <-done:
		diags := ac.Collector.Diagnostics()
		_ = r.res // the per-block PreStates aren't surfaced at this layer; Report is diagnostics-only per spec §3.7
		return &Report{
			EntryFn:     id,
			EntryName:   fn.Name,
			Diagnostics: diags,
			HasErrors:   ac.Collector.HasErrors(),
		}, nil
	}
}

// seedEntryParams marks every integer parameter of the analyzed entry
// function numerically tracked with no known bound. A parameter bound via
// interproc.CallTransfer's buildCalleeEntry gets this for free from its
// caller's argument; the entry function itself has no caller in the
// program under analysis, so nothing seeds it otherwise — and an untracked
// parameter can never be narrowed by a later guard (spec §4.1, §8 #4).
func seedEntryParams(entry *domain.AbstractDomain, fn *mir.Function) {
	for i, pt := range fn.ParamTypes {
		if pt.Kind == mir.KindSignedInt || pt.Kind == mir.KindUnsignedInt {
			entry.BindNumericalTop(path.Parameter(i+1, 0))
		}
	}
}

func resolveEntry(prog *mir.Program, cfg Config) (*mir.Function, mir.FuncID, error) {
	if cfg.EntryName != "" {
		fn, id, ok := prog.ByName(cfg.EntryName)
		if !ok {
			return nil, -1, resolveFailure("no function named %q in program", cfg.EntryName)
		}
		return fn, id, nil
	}
	fn, ok := prog.ByID(mir.FuncID(cfg.EntryIndex))
	if !ok {
		return nil, -1, resolveFailure("entry index %d out of range (program has %d functions)", cfg.EntryIndex, len(prog.Functions))
	}
	return fn, mir.FuncID(cfg.EntryIndex), nil
}
