package ast

import "strings"

// Matcher is an AST form that tests a model entity and produces bindings.
type Matcher interface {
	isMatcher()
	String() string
}

// MatchBlock is a conjunction of MatchDescriptor children, optionally
// binding the matched entity itself to Bind.
type MatchBlock struct {
	Bind     string // empty if unbound
	Children []*MatchDescriptor
}

func (MatchBlock) isMatcher() {}

func (m MatchBlock) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	if m.Bind != "" {
		b.WriteString(m.Bind + " @ ")
	}
	parts := make([]string, len(m.Children))
	for i, c := range m.Children {
		parts[i] = c.String()
	}
	b.WriteString(strings.Join(parts, "\n"))
	b.WriteString(" }")
	return b.String()
}

// MatchDescriptor is a named sub-test inside a MatchBlock: a navigator
// (function/argument/field/element/NOT) or a named-attribute test, with its
// own nested block of requirements.
type MatchDescriptor struct {
	Name      Id
	Arguments []Matcher
	Block     MatchBlock
}

func (*MatchDescriptor) isMatcher() {}

func (m *MatchDescriptor) String() string {
	args := make([]string, len(m.Arguments))
	for i, a := range m.Arguments {
		args[i] = a.String()
	}
	argStr := strings.Join(args, ", ")
	if argStr != "" {
		argStr = "(" + argStr + ")"
	}
	if len(m.Block.Children) == 0 {
		return m.Name.String() + argStr + ";"
	}
	return m.Name.String() + argStr + " " + m.Block.String()
}

// MatcherBind binds the entity matched by Child to Bind, in addition to
// whatever bindings Child itself produces.
type MatcherBind struct {
	Bind  string
	Child Matcher
}

func (MatcherBind) isMatcher() {}

func (m MatcherBind) String() string {
	return m.Bind + " @ " + m.Child.String()
}

// MatcherString matches when Regex matches the full string form of the
// model entity (a `/regex/` literal in Lapis).
type MatcherString struct {
	Regex string
}

func (MatcherString) isMatcher()    {}
func (m MatcherString) String() string { return "/" + m.Regex + "/" }

// MatcherValue matches when the model entity's string form equals the
// evaluated literal Value.
type MatcherValue struct {
	Value Value
}

func (MatcherValue) isMatcher()    {}
func (m MatcherValue) String() string { return m.Value.String() }

// MatchValueTrue is the implicit matcher for a zero-argument named-attribute
// test (the attribute must simply be truthy).
var MatchValueTrue = MatcherValue{Value: TrueLiteral}

// MatcherPredicate is a built-in structural test: pointer(inner),
// const(inner), nonconst(inner), transferrable, not(inner).
type MatcherPredicate struct {
	Predicate string
	Arguments []Matcher
}

func (MatcherPredicate) isMatcher() {}

func (m MatcherPredicate) String() string {
	args := make([]string, len(m.Arguments))
	for i, a := range m.Arguments {
		args[i] = a.String()
	}
	return m.Predicate + "(" + strings.Join(args, ", ") + ")"
}

// MatcherAny always succeeds without binding anything (the `_` wildcard).
type MatcherAny struct{}

func (MatcherAny) isMatcher()     {}
func (MatcherAny) String() string { return "_" }

// Built-in predicate names recognized by MatcherPredicate.
const (
	PredPointer       = "pointer"
	PredConst         = "const"
	PredNonconst      = "nonconst"
	PredTransferrable = "transferrable"
	PredNot           = "not"
)

// NOT is the reserved MatchDescriptor name for negating a nested block.
const NavNot = "NOT"
