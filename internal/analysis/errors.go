package analysis

import "fmt"

// ErrorKind classifies a recoverable analysis failure (spec §7: "Recoverable:
// TimeOut, MaxIteration, ResolveFailure").
type ErrorKind int

const (
	TimeOut ErrorKind = iota
	MaxIteration
	ResolveFailure
)

func (k ErrorKind) String() string {
	switch k {
	case TimeOut:
		return "timeout"
	case MaxIteration:
		return "max iteration"
	default:
		return "resolve failure"
	}
}

// AnalysisError is returned by Analyze instead of a Report when the run
// didn't reach a sound conclusion — the caller should log it and exit
// nonzero rather than trust a partial Report (spec §7's fatal/recoverable
// split: these three kinds are recoverable in the sense that the analyzer
// itself didn't crash, but the result is incomplete).
type AnalysisError struct {
	Kind    ErrorKind
	Message string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func resolveFailure(format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: ResolveFailure, Message: fmt.Sprintf(format, args...)}
}
