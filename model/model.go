// Package model defines the object graph that the Lapis engine annotates: an
// API made of Functions, Arguments and Types. Entities are constructed and
// owned by an external collaborator (a C header parser); this package only
// describes their shape and the uniform accessor contract the rule engine
// needs.
package model

import (
	"fmt"
	"sort"
)

// EntityKind identifies the concrete variant of an Entity without a type
// switch at every call site.
type EntityKind string

const (
	KindAPI      EntityKind = "API"
	KindFunction EntityKind = "Function"
	KindArgument EntityKind = "Argument"
	KindType     EntityKind = "Type"
)

// Entity is the uniform interface every model node satisfies. Get/Set give
// the matcher and applicator reflective access to named attributes,
// including the open annotation bag, without resorting to reflect.
type Entity interface {
	Kind() EntityKind
	String() string

	// Get returns the named attribute and whether it is present. Unknown
	// names are absent, never an error.
	Get(name string) (any, bool)

	// Set assigns the named attribute. Used exclusively by the descriptor
	// applicator.
	Set(name string, value any)
}

// API is the root entity: the whole set of functions in a C header.
type API struct {
	Functions   []*Function
	annotations map[string]any
}

func NewAPI(functions ...*Function) *API {
	return &API{Functions: functions, annotations: map[string]any{}}
}

func (a *API) Kind() EntityKind { return KindAPI }

func (a *API) String() string { return "API" }

func (a *API) Get(name string) (any, bool) {
	switch name {
	case "functions":
		return a.Functions, true
	default:
		return getAnnotation(a.annotations, name)
	}
}

func (a *API) Set(name string, value any) {
	setAnnotation(&a.annotations, name, value)
}

// Function is a single C function: a name, its parameters, a return type
// and its own annotation bag (e.g. synchrony).
type Function struct {
	Name        string
	Arguments   []*Argument
	ReturnValue *Type
	annotations map[string]any
}

func NewFunction(name string, returnValue *Type, arguments ...*Argument) *Function {
	f := &Function{Name: name, ReturnValue: returnValue, Arguments: arguments, annotations: map[string]any{}}
	return f
}

func (f *Function) Kind() EntityKind { return KindFunction }

func (f *Function) String() string { return f.Name }

func (f *Function) Get(name string) (any, bool) {
	switch name {
	case "name":
		return f.Name, true
	case "arguments":
		return f.Arguments, true
	case "return_value":
		return f.ReturnValue, true
	default:
		return getAnnotation(f.annotations, name)
	}
}

func (f *Function) Set(name string, value any) {
	setAnnotation(&f.annotations, name, value)
}

// Argument returns the function's argument named n, or nil if there is none.
func (f *Function) Argument(n string) *Argument {
	for _, a := range f.Arguments {
		if a.Name == n {
			return a
		}
	}
	return nil
}

// SortArguments reorders Arguments so that every argument appears after all
// of the arguments it depends on (per DependsOn), using a depth-first
// topological sort that visits arguments in their original order. A
// dependency cycle raises no error and every argument still appears exactly
// once, but the members of a cycle do not keep their original relative
// order. Resolving cycles is an external-parser concern, not this engine's.
func (f *Function) SortArguments() {
	index := make(map[string]int, len(f.Arguments))
	for i, a := range f.Arguments {
		index[a.Name] = i
	}

	visited := make([]bool, len(f.Arguments))
	inStack := make([]bool, len(f.Arguments))
	order := make([]*Argument, 0, len(f.Arguments))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] || inStack[i] {
			return
		}
		inStack[i] = true
		deps := sortedDeps(f.Arguments[i].depends)
		for _, dep := range deps {
			if j, ok := index[dep]; ok {
				visit(j)
			}
		}
		inStack[i] = false
		if !visited[i] {
			visited[i] = true
			order = append(order, f.Arguments[i])
		}
	}

	for i := range f.Arguments {
		visit(i)
	}
	f.Arguments = order
}

func sortedDeps(deps map[string]struct{}) []string {
	out := make([]string, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Argument is a single function parameter: a name, a type, the set of
// sibling argument names it depends on, and its own annotation bag.
type Argument struct {
	Name        string
	Type        *Type
	depends     map[string]struct{}
	annotations map[string]any
}

func NewArgument(name string, typ *Type) *Argument {
	return &Argument{Name: name, Type: typ, depends: map[string]struct{}{}, annotations: map[string]any{}}
}

func (a *Argument) Kind() EntityKind { return KindArgument }

func (a *Argument) String() string { return a.Name }

func (a *Argument) Get(name string) (any, bool) {
	switch name {
	case "name":
		return a.Name, true
	case "type":
		return a.Type, true
	case "depends_on":
		return a.DependsOn(), true
	default:
		return getAnnotation(a.annotations, name)
	}
}

func (a *Argument) Set(name string, value any) {
	setAnnotation(&a.annotations, name, value)
}

// DependsOn returns the mutable set of sibling argument names this argument
// depends on. The dependency post-pass is the only writer.
func (a *Argument) DependsOn() map[string]struct{} {
	return a.depends
}

// AddDependency records that this argument depends on the sibling named n.
func (a *Argument) AddDependency(n string) {
	a.depends[n] = struct{}{}
}

// Type describes a C type: const-ness, an optional pointee, named fields
// (for structs), and its own annotation bag.
type Type struct {
	Name             string
	IsConst          bool
	Nontransferrable bool
	Pointee          *Type
	Fields           map[string]*Type

	// NonConst is a back-edge to this type's const-stripped twin, when this
	// type is const. It is not owned by this Type and must never be
	// traversed by the rule engine or the dependency post-pass.
	NonConst *Type

	annotations map[string]any
}

func NewType(name string) *Type {
	return &Type{Name: name, Fields: map[string]*Type{}, annotations: map[string]any{}}
}

func (t *Type) Kind() EntityKind { return KindType }

func (t *Type) String() string {
	if t.IsConst {
		return "const " + t.Name
	}
	return t.Name
}

func (t *Type) Get(name string) (any, bool) {
	switch name {
	case "is_const":
		return t.IsConst, true
	case "nonconst":
		return t.NonConst, true
	case "nontransferrable":
		return t.Nontransferrable, true
	case "pointee":
		return t.Pointee, true
	case "fields":
		return t.Fields, true
	default:
		return getAnnotation(t.annotations, name)
	}
}

func (t *Type) Set(name string, value any) {
	setAnnotation(&t.annotations, name, value)
}

func getAnnotation(bag map[string]any, name string) (any, bool) {
	v, ok := bag[name]
	return v, ok
}

func setAnnotation(bag *map[string]any, name string, value any) {
	if *bag == nil {
		*bag = map[string]any{}
	}
	(*bag)[name] = value
}

// Annotations returns a read-only snapshot of an entity's annotation bag,
// used by the diagnostic package for before/after trace diffs.
func Annotations(e Entity) map[string]any {
	switch v := e.(type) {
	case *API:
		return snapshot(v.annotations)
	case *Function:
		return snapshot(v.annotations)
	case *Argument:
		return snapshot(v.annotations)
	case *Type:
		return snapshot(v.annotations)
	default:
		return nil
	}
}

func snapshot(bag map[string]any) map[string]any {
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	return out
}

// Describe renders an entity's kind and string form, used in fatal
// diagnostics ("type mismatch: expected Function, got Argument(x)").
func Describe(e Entity) string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", e.Kind(), e.String())
}
