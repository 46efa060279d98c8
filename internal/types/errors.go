// =============================================================================
// pain.001 File Generator - Error Taxonomy
// =============================================================================
//
// Every failure surfaced by a conversion carries one of the kinds below.
// All kinds abort the conversion except KindConformance, which is reported
// on the result while the written artifact is kept.
//
// USAGE:
//   if errors.Is(err, types.ErrMissingInput) { ... }
//   kind := types.KindOf(err)
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a conversion failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnsupportedVersion
	KindMissingInput
	KindDataValidation
	KindAggregateComputation
	KindTemplateRender
	KindConformance
)

// Sentinels matched by errors.Is against any ConversionError of the same kind.
var (
	ErrUnsupportedVersion   = errors.New("unsupported version")
	ErrMissingInput         = errors.New("missing input")
	ErrDataValidation       = errors.New("data validation failed")
	ErrAggregateComputation = errors.New("aggregate computation failed")
	ErrTemplateRender       = errors.New("template render failed")
	ErrConformance          = errors.New("conformance check failed")

	// ErrEmptyInput is the cause attached when a batch has no rows at all.
	ErrEmptyInput = errors.New("input contains no records")
)

// String returns the kind name used in logs and error logs.
func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindMissingInput:
		return "MissingInput"
	case KindDataValidation:
		return "DataValidation"
	case KindAggregateComputation:
		return "AggregateComputation"
	case KindTemplateRender:
		return "TemplateRender"
	case KindConformance:
		return "Conformance"
	default:
		return "Unknown"
	}
}

// Fatal reports whether an error of this kind aborts the conversion.
func (k ErrorKind) Fatal() bool {
	return k != KindConformance
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnsupportedVersion:
		return ErrUnsupportedVersion
	case KindMissingInput:
		return ErrMissingInput
	case KindDataValidation:
		return ErrDataValidation
	case KindAggregateComputation:
		return ErrAggregateComputation
	case KindTemplateRender:
		return ErrTemplateRender
	case KindConformance:
		return ErrConformance
	default:
		return nil
	}
}

// ConversionError is the error value returned by every conversion stage.
type ConversionError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the human-readable description.
	Message string

	// Row is the 1-based input row the failure refers to, or 0.
	Row int

	// Value is the offending raw value, when there is one.
	Value string

	// Details holds additional findings, one per line in Error().
	Details []string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Details {
		b.WriteString("\n  - ")
		b.WriteString(d)
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ConversionError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewError builds a ConversionError with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *ConversionError {
	return &ConversionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a ConversionError around a cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *ConversionError {
	return &ConversionError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first ConversionError in err's chain.
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
