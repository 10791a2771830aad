// Package config parses the CLI flags and environment variables spec.md §6
// names (C16), handing back an internal/analysis.Config plus the driver-only
// settings (entry-point listing, format, timeout, deny-warnings) that sit
// above the analysis layer. Flag parsing uses the stdlib flag package —
// justified in DESIGN.md, since the pack's only CLI-framework dependencies
// (cobra/pflag) appear solely in other_examples/ go.mod manifests with no
// retrievable source to ground a wrapper on, and kanso's own cmd/kanso-cli
// parses os.Args by hand rather than through a library.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mir-checker/internal/analysis"
	"mir-checker/internal/diagnostics"
	"mir-checker/internal/fixpoint"
	"mir-checker/internal/numerical"
)

// Format selects how a Report is rendered (SPEC_FULL.md §6.1's ambient
// --format addition: human output through the CLI's color-coded printer,
// or JSON shaped like the LSP's protocol.Diagnostic payload).
type Format int

const (
	FormatHuman Format = iota
	FormatJSON
)

// Config is everything one mir-checker invocation needs: the analysis
// parameters (forwarded to analysis.Analyze almost unchanged) plus the
// driver-level choices analysis itself has no opinion about.
type Config struct {
	Analysis analysis.Config

	ShowEntries      bool
	ShowEntriesIndex bool
	DenyWarnings     bool
	Format           Format
	Timeout          time.Duration

	// Path to the .mir source file to analyze; the first non-flag argument.
	Path string
}

// Env carries the four environment variables spec.md §6.2 names. None of
// them is consulted by the analysis itself (this module has no rustc driver
// to wrap); FromEnv exists so a future RUSTC_WRAPPER-compatible shim has
// somewhere to read them from without re-parsing os.Environ itself.
type Env struct {
	Args         []string // decoded from MIR_CHECKER_ARGS, a JSON array
	TopCrateName string
	BeRustc      bool
	RustcWrapper string
}

// FromEnv reads the four variables named in spec.md §6.2 from the process
// environment. MIR_CHECKER_ARGS is JSON-decoded; a malformed value is
// reported rather than silently ignored, since a wrapper relying on it would
// otherwise run with the wrong arguments without any indication why.
func FromEnv() (Env, error) {
	var e Env
	if raw := os.Getenv("MIR_CHECKER_ARGS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Args); err != nil {
			return Env{}, fmt.Errorf("MIR_CHECKER_ARGS is not a JSON array: %w", err)
		}
	}
	e.TopCrateName = os.Getenv("MIR_CHECKER_TOP_CRATE_NAME")
	e.BeRustc = os.Getenv("MIR_CHECKER_BE_RUSTC") != ""
	e.RustcWrapper = os.Getenv("RUSTC_WRAPPER")
	return e, nil
}

// suppressLetters maps each --suppress_warnings character to the
// DiagnosticCause it silences. spec.md §6 names the eight letters but not
// their mapping; chosen here as each cause's most distinctive initial
// (Assembly took "s", for "asm", since "a" was already claimed by
// Arithmetic) — recorded as an Open Question resolution in DESIGN.md.
var suppressLetters = map[byte]diagnostics.Cause{
	'a': diagnostics.CauseArithmetic,
	'b': diagnostics.CauseBitwise,
	's': diagnostics.CauseAssembly,
	'c': diagnostics.CauseComparison,
	'd': diagnostics.CauseDivZero,
	'm': diagnostics.CauseMemory,
	'p': diagnostics.CausePanic,
	'i': diagnostics.CauseIndex,
}

// domainKinds maps spec.md §6's seven --domain names onto the two concrete
// back-ends internal/numerical implements. Only "interval" is non-relational;
// every relational name (octagon, polyhedra, linear_equalities, and the PPL/
// pkgrid variants) maps onto the octagon approximation, per the same
// reduction internal/numerical's own doc comment already describes.
var domainKinds = map[string]numerical.Kind{
	"interval":                            numerical.KindInterval,
	"octagon":                             numerical.KindOctagon,
	"polyhedra":                           numerical.KindOctagon,
	"linear_equalities":                   numerical.KindOctagon,
	"ppl_polyhedra":                       numerical.KindOctagon,
	"ppl_linear_congruences":              numerical.KindOctagon,
	"pkgrid_polyhedra_linear_congruences": numerical.KindOctagon,
}

// Parse reads args (typically os.Args[1:]) into a Config. It never calls
// os.Exit or prints usage itself — cmd/mir-checker owns that decision, so
// this stays trivially testable.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("mir-checker", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder)) // suppress flag's own usage printer; the caller reports errors

	entry := fs.String("entry", "", "name of the entry function to analyze")
	entryIdx := fs.Int("entry_def_id_index", 0, "index of the entry function to analyze, used when -entry is unset")
	domain := fs.String("domain", "interval", "numerical domain: interval|octagon|polyhedra|linear_equalities|ppl_polyhedra|ppl_linear_congruences|pkgrid_polyhedra_linear_congruences")
	wideningDelay := fs.Int("widening_delay", fixpoint.WideningDelay, "plain joins around a loop head before widening")
	narrowingIter := fs.Int("narrowing_iteration", fixpoint.NarrowingIterations, "descending narrowing passes after widening stabilizes")
	cleaningDelay := fs.Int("cleaning_delay", 5, "block-index stride for dead-variable cleanup; 0 disables it")
	showEntries := fs.Bool("show_entries", false, "list candidate entry points by name and exit")
	showEntriesIndex := fs.Bool("show_entries_index", false, "list candidate entry points by index and exit")
	denyWarnings := fs.Bool("deny_warnings", false, "treat warnings as errors for the exit code")
	memorySafetyOnly := fs.Bool("memory_safety_only", false, "suppress non-memory-safety diagnostics")
	suppressWarnings := fs.String("suppress_warnings", "", "letters in {a,b,s,c,d,m,p,i} naming causes to suppress")
	format := fs.String("format", "human", "diagnostic output shape: human|json")
	timeout := fs.Duration("timeout", 0, "wall-clock cutoff for one analysis run; 0 means no limit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	kind, ok := domainKinds[*domain]
	if !ok {
		return Config{}, fmt.Errorf("unknown -domain %q", *domain)
	}

	causes, err := parseSuppressWarnings(*suppressWarnings)
	if err != nil {
		return Config{}, err
	}

	fmtKind, err := parseFormat(*format)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Analysis: analysis.Config{
			EntryName:      *entry,
			EntryIndex:     *entryIdx,
			Domain:         kind,
			MemorySafety:   *memorySafetyOnly,
			SuppressCauses: causes,
			Limits: fixpoint.Options{
				WideningDelay:       *wideningDelay,
				NarrowingIterations: *narrowingIter,
			},
			CleaningDelay: *cleaningDelay,
		},
		ShowEntries:      *showEntries,
		ShowEntriesIndex: *showEntriesIndex,
		DenyWarnings:     *denyWarnings,
		Format:           fmtKind,
		Timeout:          *timeout,
	}

	if rest := fs.Args(); len(rest) > 0 {
		cfg.Path = rest[0]
	}

	return cfg, nil
}

func parseSuppressWarnings(flags string) ([]diagnostics.Cause, error) {
	var causes []diagnostics.Cause
	for i := 0; i < len(flags); i++ {
		c, ok := suppressLetters[flags[i]]
		if !ok {
			return nil, fmt.Errorf("unknown -suppress_warnings letter %q", flags[i])
		}
		causes = append(causes, c)
	}
	return causes, nil
}

func parseFormat(s string) (Format, error) {
	switch s {
	case "human", "":
		return FormatHuman, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown -format %q", s)
	}
}
