// Package main is the mir-checker CLI driver (C14, spec §6), grounded on
// kanso's cmd/kanso-cli/main.go: read a source file, parse it, report a
// friendly caret-pointed error on failure, otherwise run the analysis and
// print its findings.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"mir-checker/internal/analysis"
	"mir-checker/internal/config"
	"mir-checker/internal/diagnostics"
	"mir-checker/internal/mclog"
	"mir-checker/internal/mir"
	"mir-checker/internal/mirparser"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		color.Red("invalid arguments: %s", err)
		return 1
	}
	if cfg.Path == "" {
		fmt.Println("Usage: mir-checker [flags] <file.mir>")
		return 1
	}

	source, err := os.ReadFile(cfg.Path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		return 1
	}

	prog, err := mirparser.ParseString(cfg.Path, string(source))
	if err != nil {
		reportParseError(string(source), err)
		return 1
	}

	if cfg.ShowEntries || cfg.ShowEntriesIndex {
		showEntries(prog, cfg.ShowEntriesIndex)
		return 0
	}

	log := mclog.Noop
	ctx := context.Background()
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	acfg := cfg.Analysis
	acfg.Logger = log
	report, err := analysis.Analyze(ctx, prog, acfg)
	if err != nil {
		return reportAnalysisError(err)
	}

	return reportFindings(cfg, report)
}

// reportParseError prints a friendly caret-style parse error, identical in
// shape to kanso's cmd/kanso-cli reportParseError.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("syntax error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("-> %s\n", pe.Message())
}

func reportAnalysisError(err error) int {
	if ae, ok := err.(*analysis.AnalysisError); ok {
		color.Red("[MirChecker] analysis failed: %s", ae.Error())
		return 1
	}
	color.Red("[MirChecker] analysis failed: %s", err)
	return 1
}

func showEntries(prog *mir.Program, byIndex bool) {
	for i, fn := range prog.Functions {
		if byIndex {
			fmt.Printf("%d: %s\n", i, fn.Name)
		} else {
			fmt.Println(fn.Name)
		}
	}
}

// reportFindings prints report's diagnostics in the configured format and
// returns the process exit code (spec §6's "0 on success (warnings allowed
// unless -deny_warnings); 1 on driver/compile failure").
func reportFindings(cfg config.Config, report *analysis.Report) int {
	switch cfg.Format {
	case config.FormatJSON:
		return reportJSON(cfg, report)
	default:
		return reportHuman(cfg, report)
	}
}

func reportHuman(cfg config.Config, report *analysis.Report) int {
	exitCode := 0
	for _, d := range report.Diagnostics {
		prefix := "[MirChecker] Possible error:"
		if d.Severity == diagnostics.SeverityError {
			prefix = "[MirChecker] Provably error:"
		}
		line := fmt.Sprintf("%s %s (%s:%d:%d)", prefix, d.Message, d.Span.File, d.Span.Line, d.Span.Column)
		if d.Severity == diagnostics.SeverityError {
			color.Red(line)
			exitCode = 1
		} else {
			color.Yellow(line)
			if cfg.DenyWarnings {
				exitCode = 1
			}
		}
	}
	if exitCode == 0 {
		color.Green("mir-checker: no issues found analyzing %s", report.EntryName)
	}
	return exitCode
}

// jsonDiagnostic is the wire shape for -format json: a flat record of the
// finding's span, severity, message, cause and memory-safety flag.
type jsonDiagnostic struct {
	File           string `json:"file"`
	Line           int    `json:"line"`
	Column         int    `json:"column"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	Cause          string `json:"cause"`
	IsMemorySafety bool   `json:"is_memory_safety"`
}

func reportJSON(cfg config.Config, report *analysis.Report) int {
	out := make([]jsonDiagnostic, 0, len(report.Diagnostics))
	exitCode := 0
	for _, d := range report.Diagnostics {
		out = append(out, jsonDiagnostic{
			File:           d.Span.File,
			Line:           d.Span.Line,
			Column:         d.Span.Column,
			Severity:       d.Severity.String(),
			Message:        d.Message,
			Cause:          d.Cause.String(),
			IsMemorySafety: d.IsMemorySafety,
		})
		if d.Severity == diagnostics.SeverityError || cfg.DenyWarnings {
			exitCode = 1
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	return exitCode
}
