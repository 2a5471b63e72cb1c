// Package xerrors defines the structured error taxonomy used across the
// extraction pipeline. Named xerrors to avoid shadowing the stdlib errors
// import in call sites that need both.
package xerrors

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind categorizes an error into one of the pipeline's named failure modes.
type Kind int

const (
	KindConfiguration Kind = iota
	KindSchemaCycle
	KindOversizedChunk
	KindCompletionTimeout
	KindCompletionFailure
	KindSchemaEnforcementFailure
	KindParseFailure
	KindUnknownPath
	KindParentLookupMiss
	KindQualityGateFailure
	KindExtractionFailure
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindSchemaCycle:
		return "SchemaCycle"
	case KindOversizedChunk:
		return "OversizedChunk"
	case KindCompletionTimeout:
		return "CompletionTimeout"
	case KindCompletionFailure:
		return "CompletionFailure"
	case KindSchemaEnforcementFailure:
		return "SchemaEnforcementFailure"
	case KindParseFailure:
		return "ParseFailure"
	case KindUnknownPath:
		return "UnknownPath"
	case KindParentLookupMiss:
		return "ParentLookupMiss"
	case KindQualityGateFailure:
		return "QualityGateFailure"
	case KindExtractionFailure:
		return "ExtractionFailure"
	default:
		return "Unknown"
	}
}

// Severity indicates how the caller should react to an error.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Error is a structured error carrying a kind, severity, and free-form
// details for downstream reporting (CLI exit codes, trace events, stats).
type Error struct {
	Kind       Kind
	Severity   Severity
	Message    string
	Cause      error
	Details    map[string]any
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetail attaches a structured field and returns the receiver for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsFatal reports whether the error should stop the whole extraction rather
// than being recovered locally by the stage that raised it.
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Kind, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, "caused by: %v\n", e.Cause)
	}
	for k, v := range e.Details {
		fmt.Fprintf(&sb, "  %s: %v\n", k, v)
	}
	if e.StackTrace != "" {
		fmt.Fprintf(&sb, "%s", e.StackTrace)
	}
	return sb.String()
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+8; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		fmt.Fprintf(&sb, "  %s:%d %s\n", file, line, fn.Name())
	}
	return sb.String()
}

// New creates a new error of the given kind and severity.
func New(kind Kind, severity Severity, message string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message, StackTrace: captureStackTrace(2)}
}

// Wrap attaches kind/severity context to an existing error.
func Wrap(err error, kind Kind, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Severity: severity, Message: message, Cause: err, StackTrace: captureStackTrace(2)}
}

// Convenience constructors, one per taxonomy entry in spec §7.

func ConfigurationError(format string, args ...any) *Error {
	return New(KindConfiguration, SeverityCritical, fmt.Sprintf(format, args...))
}

func SchemaCycle(classPosition string) *Error {
	return New(KindSchemaCycle, SeverityCritical, "schema class graph contains a cycle").WithDetail("class_position", classPosition)
}

func OversizedChunk(chunkIndex, tokens, budget int) *Error {
	return New(KindOversizedChunk, SeverityLow, "chunk exceeds batch token budget").
		WithDetail("chunk_index", chunkIndex).WithDetail("tokens", tokens).WithDetail("budget", budget)
}

func CompletionTimeout(err error) *Error {
	return Wrap(err, KindCompletionTimeout, SeverityMedium, "completer call timed out")
}

func CompletionFailure(err error) *Error {
	return Wrap(err, KindCompletionFailure, SeverityMedium, "completer call failed")
}

func SchemaEnforcementFailure(format string, args ...any) *Error {
	return New(KindSchemaEnforcementFailure, SeverityMedium, fmt.Sprintf(format, args...))
}

func ParseFailure(err error) *Error {
	return Wrap(err, KindParseFailure, SeverityMedium, "completer output is not valid JSON")
}

func UnknownPath(path string) *Error {
	return New(KindUnknownPath, SeverityLow, "path not present in catalog").WithDetail("path", path)
}

func ParentLookupMiss(path string) *Error {
	return New(KindParentLookupMiss, SeverityLow, "parent could not be resolved or salvaged").WithDetail("path", path)
}

func QualityGateFailure(reasons []string) *Error {
	return New(KindQualityGateFailure, SeverityHigh, "quality gate failed after all gleaning passes").WithDetail("reasons", reasons)
}

func ExtractionFailure(err error) *Error {
	return Wrap(err, KindExtractionFailure, SeverityCritical, "extraction failed")
}

// IsFatal reports whether err (of any concrete type) should stop the whole extraction.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}
	return false
}

func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindExtractionFailure
}

func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	if e, ok := err.(*Error); ok {
		return e.Severity
	}
	return SeverityMedium
}

// ExitCode maps an error's kind to the CLI exit-code convention in spec §7:
// 0 success; 1 configuration/validation; 2 extraction with partial result; 3 fatal.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := err.(*Error)
	if !ok {
		return 3
	}
	switch e.Kind {
	case KindConfiguration, KindSchemaCycle:
		return 1
	case KindQualityGateFailure, KindExtractionFailure:
		return 2
	default:
		if e.IsFatal() {
			return 3
		}
		return 2
	}
}
