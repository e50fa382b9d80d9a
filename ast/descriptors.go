package ast

import "strings"

// DescriptorItem is one element of a descriptor sequence: either a plain
// Descriptor or a ConditionalDescriptor. Keeping both under one interface
// lets a block mix annotation writes and if/else branching freely, the way
// a Lapis descriptor sequence is written.
type DescriptorItem interface {
	isDescriptorItem()
	String() string
}

// Descriptor is an AST form that writes an annotation or navigates to a
// sub-position of the model. Reserved navigator names (at, function,
// argument, field, element) never set annotations; every other name is an
// annotation write (on an Argument, the same write is also applied to
// Argument.Type — see the applicator).
type Descriptor struct {
	Name           Id
	Arguments      []Value
	Subdescriptors []DescriptorItem
}

func (d *Descriptor) isDescriptorItem() {}

func (d *Descriptor) String() string {
	args := joinValues(d.Arguments)
	if args != "" {
		args = "(" + args + ")"
	}
	if len(d.Subdescriptors) == 0 {
		return d.Name.String() + args + ";"
	}
	return d.Name.String() + args + " " + blockString(d.Subdescriptors)
}

func blockString(ds []DescriptorItem) string {
	var b strings.Builder
	b.WriteString("{ ")
	for i, d := range ds {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(d.String())
	}
	b.WriteString(" }")
	return b.String()
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// ConditionalDescriptor is an if/else form over a predicate: it applies Then
// when the predicate is truthy in the current binding, Else otherwise. This
// is distinct from Rule.Predicate, which gates whether the whole rule fires
// at all; a ConditionalDescriptor lets one firing rule apply different
// descriptors down two branches.
type ConditionalDescriptor struct {
	Predicate Value
	Then      []DescriptorItem
	Else      []DescriptorItem
}

func (c *ConditionalDescriptor) isDescriptorItem() {}

func (c *ConditionalDescriptor) String() string {
	s := "if (" + c.Predicate.String() + ") " + blockString(c.Then)
	if len(c.Else) > 0 {
		s += " else " + blockString(c.Else)
	}
	return s
}

// Reserved navigator descriptor/matcher names. A Descriptor whose Name is
// one of these never sets an annotation.
const (
	NavAt       = "at"
	NavFunction = "function"
	NavArgument = "argument"
	NavField    = "field"
	NavElement  = "element"
)
