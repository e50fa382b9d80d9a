package ast

import "strings"

// Declaration is a top-level entry in a Specification: either a free
// Descriptor (implicitly applied to the whole API) or a Rule.
type Declaration interface {
	isDeclaration()
	String() string
}

func (d *Descriptor) isDeclaration() {}

// Rule matches zero or more positions in the model, optionally filters by a
// predicate, and applies ResultDescriptors to each surviving binding.
type Rule struct {
	Match             Matcher
	Priority          int // default 0
	Predicate         Value
	ResultDescriptors []DescriptorItem
}

func (*Rule) isDeclaration() {}

func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString("rule")
	if r.Priority != 0 {
		b.WriteString(" priority ")
		b.WriteString(Number{Value: float64(r.Priority)}.String())
	}
	b.WriteString(" ")
	b.WriteString(r.Match.String())
	b.WriteString(" => ")
	if r.Predicate != nil {
		b.WriteString("if(")
		b.WriteString(r.Predicate.String())
		b.WriteString(") ")
	}
	b.WriteString(blockString(r.ResultDescriptors))
	return b.String()
}

// Specification is the whole parsed Lapis document: an ordered sequence of
// declarations.
type Specification struct {
	Declarations []Declaration
}

func (s *Specification) String() string {
	parts := make([]string, len(s.Declarations))
	for i, d := range s.Declarations {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n\n")
}
