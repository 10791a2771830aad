package analysis

import (
	"mir-checker/internal/diagnostics"
	"mir-checker/internal/fixpoint"
	"mir-checker/internal/numerical"
)

// Config selects the entry point and output shape for one Analyze call
// (spec §6's `--entry`/`--entry_def_id_index`/`--domain`/severity filters).
type Config struct {
	EntryName      string // resolved first if non-empty
	EntryIndex     int    // used when EntryName == ""
	MaxCallDepth   int    // spec §4.1's call-stack recursion bound; 0 means interproc's default of 1
	Domain         numerical.Kind
	MinSeverity    diagnostics.Severity
	MemorySafety   bool
	SuppressCauses []diagnostics.Cause
	Logger         Logger // nil means debug lines are dropped

	// Limits overrides the widening/narrowing schedule every fixpoint run
	// (entry and every callee) uses; the zero value means "unset" and
	// resolves to fixpoint.DefaultOptions in NewContext/Analyze.
	Limits fixpoint.Options

	// CleaningDelay gates StorageDead cleanup (spec §4.3); 0 disables it.
	CleaningDelay int
}

// DefaultConfig resolves the first function in the program at the default
// call depth and interval domain, with no output filtering.
func DefaultConfig() Config {
	return Config{EntryIndex: 0, Domain: numerical.KindInterval, Limits: fixpoint.DefaultOptions()}
}

func (c Config) limits() fixpoint.Options {
	if c.Limits == (fixpoint.Options{}) {
		return fixpoint.DefaultOptions()
	}
	return c.Limits
}

func (c Config) logger() Logger {
	if c.Logger == nil {
		return noopLogger{}
	}
	return c.Logger
}
