package common

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagKind classifies a diagnostic.
type DiagKind int

const (
	KindSyntax DiagKind = iota
	KindCyclicVariable
	KindUnresolvedValue
	KindUnsupportedProperty
	KindStructuralConflict
	KindDeferredToRuntime
)

func (k DiagKind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindCyclicVariable:
		return "CyclicVariableError"
	case KindUnresolvedValue:
		return "UnresolvedValue"
	case KindUnsupportedProperty:
		return "UnsupportedPropertyWarning"
	case KindStructuralConflict:
		return "StructuralCorrectionConflict"
	case KindDeferredToRuntime:
		return "DeferredToRuntime"
	default:
		return fmt.Sprintf("DiagKind(%d)", int(k))
	}
}

func (k DiagKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Diagnostic is a structured compile result entry. Location fields are
// optional: Source is the stylesheet (or markup) name, Offset is a byte offset
// into it, Element is a short path of the markup element involved.
type Diagnostic struct {
	Kind     DiagKind `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	Source   string   `json:"source,omitempty" yaml:"source,omitempty"`
	Offset   int      `json:"offset,omitempty" yaml:"offset,omitempty"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int      `json:"column,omitempty" yaml:"column,omitempty"`
	Property string   `json:"property,omitempty" yaml:"property,omitempty"`
	Element  string   `json:"element,omitempty" yaml:"element,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	sb.WriteString(" ")
	sb.WriteString(d.Kind.String())
	if d.Source != "" {
		sb.WriteString(" [")
		sb.WriteString(d.Source)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d:%d", d.Line, d.Column)
		}
		sb.WriteString("]")
	}
	if d.Element != "" {
		sb.WriteString(" <")
		sb.WriteString(d.Element)
		sb.WriteString(">")
	}
	if d.Property != "" {
		sb.WriteString(" ")
		sb.WriteString(d.Property)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// Error makes a diagnostic usable where an error is expected.
func (d Diagnostic) Error() string { return d.String() }

// Diagnostics accumulates compile diagnostics in the order they were found.
type Diagnostics []Diagnostic

func (ds *Diagnostics) Add(d Diagnostic) {
	*ds = append(*ds, d)
}

func (ds *Diagnostics) Warn(kind DiagKind, property, format string, args ...any) {
	ds.Add(Diagnostic{Kind: kind, Severity: SeverityWarning, Property: property, Message: fmt.Sprintf(format, args...)})
}

// Of returns diagnostics of the given kind.
func (ds Diagnostics) Of(kind DiagKind) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err combines all error level diagnostics, nil when there are none.
func (ds Diagnostics) Err() error {
	var err error
	for _, d := range ds {
		if d.Severity == SeverityError {
			err = multierr.Append(err, d)
		}
	}
	return err
}

// Log writes diagnostics to the logger with a level matching severity.
func (ds Diagnostics) Log(log *zap.Logger) {
	for _, d := range ds {
		lvl := zapcore.DebugLevel
		switch d.Severity {
		case SeverityWarning:
			lvl = zapcore.WarnLevel
		case SeverityError:
			lvl = zapcore.ErrorLevel
		}
		if ce := log.Check(lvl, d.Message); ce != nil {
			ce.Write(zap.Stringer("kind", d.Kind), zap.String("source", d.Source), zap.Int("line", d.Line),
				zap.String("element", d.Element), zap.String("property", d.Property))
		}
	}
}

// AsDiagnostic extracts a diagnostic from an error chain.
func AsDiagnostic(err error) (Diagnostic, bool) {
	var d Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	var dp *Diagnostic
	if errors.As(err, &dp) && dp != nil {
		return *dp, true
	}
	return Diagnostic{}, false
}
