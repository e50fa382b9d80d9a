// Package diagnostic is the engine's uniform error payload and trace
// renderer: a machine-readable Kind plus a human Message, with Error()
// giving the plain-text form a caller can log or compare.
package diagnostic

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/lapis-lang/lapis/model"
)

// Kind is a machine-readable diagnostic category.
type Kind string

const (
	SchemaViolation  Kind = "ERR_SCHEMA_VIOLATION"
	LookupFailure    Kind = "ERR_LOOKUP_FAILURE"
	TypeMismatch     Kind = "ERR_TYPE_MISMATCH"
	ParserRejection  Kind = "ERR_PARSER_REJECTION"
	UnknownConstruct Kind = "ERR_UNKNOWN_CONSTRUCT"
)

// Error is the uniform diagnostic payload produced by the applicator and
// engine. It wraps an optional underlying error so callers can still
// errors.Is/As through it.
type Error struct {
	Kind    Kind
	Message string
	Entity  model.Entity
	Inner   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Entity != nil {
		msg = fmt.Sprintf("%s (at %s)", msg, model.Describe(e.Entity))
	}
	if e.Inner != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Inner)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Inner }

// New constructs an Error with no wrapped cause.
func New(kind Kind, entity model.Entity, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Entity: entity}
}

// Wrap constructs an Error around an existing cause.
func Wrap(kind Kind, entity model.Entity, inner error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Entity: entity, Inner: inner}
}

var (
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
)

// Render returns a colorized one-line summary of err (its Kind and
// Message); the caller decides where to print it.
func Render(err *Error) string {
	return fmt.Sprintf("%s %s", red.Sprint(string(err.Kind)), err.Message)
}

// AnnotationDiff renders a unified diff between an entity's annotation bag
// before and after a rule fired, for -trace output. Keys are formatted as
// name=value lines sorted by name so the diff is stable across runs.
func AnnotationDiff(entity model.Entity, before, after map[string]any) (string, error) {
	beforeLines := formatAnnotations(before)
	afterLines := formatAnnotations(after)
	if beforeLines == afterLines {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(beforeLines),
		B:        difflib.SplitLines(afterLines),
		FromFile: cyan.Sprintf("%s (before)", model.Describe(entity)),
		ToFile:   cyan.Sprintf("%s (after)", model.Describe(entity)),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", err
	}
	return colorizeDiff(text), nil
}

func formatAnnotations(bag map[string]any) string {
	names := make([]string, 0, len(bag))
	for n := range bag {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for _, n := range names {
		out += fmt.Sprintf("%s=%v\n", n, bag[n])
	}
	return out
}

func colorizeDiff(text string) string {
	var out []byte
	for _, line := range difflib.SplitLines(text) {
		switch {
		case len(line) > 0 && line[0] == '+':
			out = append(out, []byte(green.Sprint(line))...)
		case len(line) > 0 && line[0] == '-':
			out = append(out, []byte(red.Sprint(line))...)
		case len(line) > 0 && line[0] == '@':
			out = append(out, []byte(yellow.Sprint(line))...)
		default:
			out = append(out, []byte(line)...)
		}
	}
	return string(out)
}
