// Package ast defines the Lapis specification AST: the shape the (external)
// grammar and parser must produce. Every node is immutable once built; the
// parser and the preprocessor that expands includes are out of scope for
// this module.
package ast

import (
	"fmt"
	"strings"

	"github.com/lapis-lang/lapis/internal/binding"
)

// Value is any AST node that evaluates to a runtime value in a binding
// context: identifiers, literals and embedded code.
type Value interface {
	fmt.Stringer
	isValue()
}

// Id is a bare identifier. Evaluating it looks the name up in the binding
// context; if absent, it evaluates to its own name as a string — this
// fallback (rather than an error) lets an Id double as either a variable
// reference or a literal name depending on context.
type Id struct {
	Name string
}

func (Id) isValue() {}

func (i Id) String() string {
	if isSimpleIdent(i.Name) {
		return i.Name
	}
	return "`" + i.Name + "`"
}

// Matches reports whether this identifier names the given descriptor/matcher
// keyword, e.g. Id{"function"}.Matches("function").
func (i Id) Matches(name string) bool { return i.Name == name }

func isSimpleIdent(s string) bool {
	if s == "" {
		return false
	}
	for idx, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if idx == 0 && !isAlpha {
			return false
		}
		if idx > 0 && !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

// String is a quoted string literal.
type String struct{ Value string }

func (String) isValue() {}
func (s String) String() string { return fmt.Sprintf("%q", s.Value) }

// Number is a numeric literal.
type Number struct{ Value float64 }

func (Number) isValue() {}
func (n Number) String() string { return fmt.Sprintf("%v", n.Value) }

// Bool is a boolean literal.
type Bool struct{ Value bool }

func (Bool) isValue() {}
func (b Bool) String() string { return fmt.Sprintf("%v", b.Value) }

// TrueLiteral is the implicit value of a zero-argument descriptor/matcher
// attribute.
var TrueLiteral = Bool{Value: true}

// CodeSegment is one piece of an embedded Code value: either a literal
// string or an interpolated variable reference (${name}).
type CodeSegment interface {
	fmt.Stringer
	isCodeSegment()
}

type CodeText string

func (CodeText) isCodeSegment()     {}
func (c CodeText) String() string { return string(c) }

// CodeInterpolate splices a bound variable's value into the surrounding
// code text.
type CodeInterpolate struct{ Variable Id }

func (CodeInterpolate) isCodeSegment() {}
func (c CodeInterpolate) String() string { return "${" + c.Variable.String() + "}" }

// Code is an embedded user-code expression, made of literal text and
// interpolated bindings. Its own evaluation semantics (beyond the
// interpolation substring-join shown in String) belong to the external
// expression evaluator; the engine only ever substring-scans Code.String()
// for sibling argument names (the dependency post-pass), resolves its bound
// interpolations (Resolve) when writing it as an annotation value, or hands
// it to the injected evalstub.Evaluator.
type Code struct {
	Segments []CodeSegment
}

func (Code) isValue() {}

func (c Code) String() string {
	var b strings.Builder
	b.WriteString("```")
	for _, s := range c.Segments {
		b.WriteString(s.String())
	}
	b.WriteString("```")
	return b.String()
}

// Resolve returns a copy of c with each interpolation that is bound in ctx
// replaced by its value's textual form. Unbound interpolations keep their
// ${name} form. Annotation values written from a Code argument go through
// Resolve rather than the evaluator so they stay code-typed in the model's
// annotation bag.
func (c Code) Resolve(ctx binding.Binding) Code {
	segs := make([]CodeSegment, len(c.Segments))
	for i, s := range c.Segments {
		seg, ok := s.(CodeInterpolate)
		if !ok {
			segs[i] = s
			continue
		}
		if v, bound := ctx[seg.Variable.Name]; bound {
			segs[i] = CodeText(fmt.Sprintf("%v", v))
		} else {
			segs[i] = s
		}
	}
	return Code{Segments: segs}
}

// Text joins the segments into a single string, substituting bound
// variables from ctx where available and leaving interpolations that
// resolve to an unbound name as their literal ${name} form. This is the
// non-evaluator-dependent textual view; the reference evaluator uses it for
// Code values.
func (c Code) Text(ctx binding.Binding) string {
	var b strings.Builder
	for _, s := range c.Segments {
		switch seg := s.(type) {
		case CodeText:
			b.WriteString(string(seg))
		case CodeInterpolate:
			if v, ok := ctx[seg.Variable.Name]; ok {
				fmt.Fprintf(&b, "%v", v)
			} else {
				b.WriteString(seg.String())
			}
		}
	}
	return b.String()
}
