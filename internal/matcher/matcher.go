// Package matcher implements the recursive matcher over the heterogeneous
// model tree: given a Matcher AST node and a model entity, it returns the
// MatchResult of bindings produced. It dispatches on both matcher shape
// (MatchBlock, MatcherBind, ...) and model entity kind (API, Function,
// Argument, Type).
//
// The dispatch shape here keeps a "one entry point, several match
// strategies, regex as one of them" idiom, but resolves typed model
// entities with a recursive descent rather than matching source text
// through Tree-sitter queries.
package matcher

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/internal/binding"
	"github.com/lapis-lang/lapis/internal/evalstub"
	"github.com/lapis-lang/lapis/model"
)

var privateKeyCounter int64

// privateKey synthesizes a unique, non-user-visible binding key so an
// unbound MatchBlock's own entity still participates in the
// duplicate-binding invariant.
func privateKey() string {
	n := atomic.AddInt64(&privateKeyCounter, 1)
	return fmt.Sprintf("$block%d", n)
}

// Match evaluates a Matcher against a model entity and returns the
// resulting bindings.
func Match(m ast.Matcher, e model.Entity, ev evalstub.Evaluator) binding.MatchResult {
	switch v := m.(type) {
	case ast.MatchBlock:
		return matchBlock(v, e, ev)
	case *ast.MatchDescriptor:
		panic("matcher: MatchDescriptor must be matched via matchSubdescriptor, not Match")
	case ast.MatcherAny:
		return binding.Success
	case ast.MatcherBind:
		result := Match(v.Child, e, ev)
		return result.BindEntity(v.Bind, e)
	case ast.MatcherString:
		re, err := regexp.Compile("^(?:" + v.Regex + ")$")
		if err != nil {
			return binding.Failure
		}
		return binding.FromBool(re.MatchString(e.String()))
	case ast.MatcherValue:
		want, err := ev.Eval(v.Value, binding.Binding{})
		if err != nil {
			return binding.Failure
		}
		if fmt.Sprintf("%v", want) == e.String() {
			return binding.Success
		}
		// One-level courtesy: if e is a Type, also accept equality against
		// its const-stripped twin's string form.
		if t, ok := e.(*model.Type); ok && t.NonConst != nil {
			if fmt.Sprintf("%v", want) == t.NonConst.String() {
				return binding.Success
			}
		}
		return binding.Failure
	case ast.MatcherPredicate:
		return matchPredicate(v, e, ev)
	default:
		panic(fmt.Sprintf("matcher: unknown matcher variant %T", m))
	}
}

func matchBlock(b ast.MatchBlock, e model.Entity, ev evalstub.Evaluator) binding.MatchResult {
	result := binding.Success
	for _, child := range b.Children {
		result = result.Extend(matchSubdescriptor(child, e, ev))
	}
	key := b.Bind
	if key == "" {
		key = privateKey()
	}
	return result.BindEntity(key, e)
}

func matchPredicate(p ast.MatcherPredicate, e model.Entity, ev evalstub.Evaluator) binding.MatchResult {
	switch p.Predicate {
	case ast.PredPointer:
		t, ok := e.(*model.Type)
		if !ok || t.Pointee == nil {
			return binding.Failure
		}
		return Match(p.Arguments[0], t.Pointee, ev)
	case ast.PredConst:
		t, ok := e.(*model.Type)
		if !ok || !t.IsConst {
			return binding.Failure
		}
		return Match(p.Arguments[0], t, ev)
	case ast.PredNonconst:
		t, ok := e.(*model.Type)
		if !ok || t.IsConst {
			return binding.Failure
		}
		return Match(p.Arguments[0], t, ev)
	case ast.PredTransferrable:
		t, ok := e.(*model.Type)
		return binding.FromBool(ok && !t.Nontransferrable)
	case ast.PredNot:
		return binding.Not(Match(p.Arguments[0], e, ev))
	default:
		panic(fmt.Sprintf("matcher: unknown predicate %q", p.Predicate))
	}
}

// matchSubdescriptor matches md in the scope of e: e.g. e might be a
// Function and md an argument(...) sub-matcher for one of its parameters,
// or a synchrony attribute test on e itself.
func matchSubdescriptor(md *ast.MatchDescriptor, e model.Entity, ev evalstub.Evaluator) binding.MatchResult {
	switch {
	case md.Name.Matches(ast.NavNot):
		return binding.Not(Match(md.Block, e, ev))

	case md.Name.Matches(ast.NavFunction):
		api, ok := e.(*model.API)
		if !ok {
			return binding.Failure
		}
		return matchSubobjects(md, functionEntities(api.Functions), ev)

	case md.Name.Matches(ast.NavArgument):
		fn, ok := e.(*model.Function)
		if !ok {
			return binding.Failure
		}
		return matchSubobjects(md, argumentEntities(fn.Arguments), ev)

	case md.Name.Matches(ast.NavElement):
		if arg, ok := e.(*model.Argument); ok {
			return matchSubdescriptor(md, arg.Type, ev)
		}
		t, ok := e.(*model.Type)
		if !ok || t.Pointee == nil {
			return binding.Failure
		}
		return Match(md.Block, t.Pointee, ev)

	case md.Name.Matches(ast.NavField):
		t, ok := e.(*model.Type)
		if !ok || len(md.Arguments) == 0 {
			return binding.Failure
		}
		name, err := literalMatcherString(md.Arguments[0], ev)
		if err != nil {
			return binding.Failure
		}
		field, ok := t.Fields[name]
		if !ok {
			return binding.Failure
		}
		return Match(md.Block, field, ev)

	default:
		return matchNamedAttribute(md, e, ev)
	}
}

func functionEntities(fns []*model.Function) []model.Entity {
	out := make([]model.Entity, len(fns))
	for i, f := range fns {
		out[i] = f
	}
	return out
}

func argumentEntities(args []*model.Argument) []model.Entity {
	out := make([]model.Entity, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

// matchSubobjects matches the subject's name against md.Arguments[0] and its
// block against the subject itself, unioning (⊕) over every candidate
// object: a single rule may legitimately match more than one
// function/argument, and duplicate-binding validity (not first-match-wins)
// is what filters illegitimate collisions.
func matchSubobjects(md *ast.MatchDescriptor, objects []model.Entity, ev evalstub.Evaluator) binding.MatchResult {
	if len(md.Arguments) == 0 {
		return binding.Failure
	}
	result := binding.Failure
	for _, e := range objects {
		nameMatch := Match(md.Arguments[0], stringEntity(e.String()), ev)
		overall := nameMatch.Extend(Match(md.Block, e, ev))
		result = result.Union(overall)
	}
	return result
}

// stringEntity lets a plain Go string participate in Match as a model.Entity
// so name matchers (MatcherString, MatcherValue, MatcherAny) can run
// against it uniformly with the rest of the dispatch.
type stringEntity string

func (s stringEntity) Kind() model.EntityKind { return "" }
func (s stringEntity) String() string         { return string(s) }
func (s stringEntity) Get(string) (any, bool) { return nil, false }
func (s stringEntity) Set(string, any)        {}

func literalMatcherString(m ast.Matcher, ev evalstub.Evaluator) (string, error) {
	v, ok := m.(ast.MatcherValue)
	if !ok {
		return "", fmt.Errorf("matcher: field name must be a literal value")
	}
	val, err := ev.Eval(v.Value, binding.Binding{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", val), nil
}

func matchNamedAttribute(md *ast.MatchDescriptor, e model.Entity, ev evalstub.Evaluator) binding.MatchResult {
	name := md.Name.Name

	var result binding.MatchResult
	if name == "type" {
		if t, ok := e.(*model.Type); ok && len(md.Arguments) == 1 {
			result = Match(md.Arguments[0], t, ev)
		} else {
			result = binding.Failure
		}
	} else if v, ok := e.Get(name); ok {
		result = matchAttributeValue(md, v, ev)
	} else {
		result = binding.Failure
	}

	// If e is an Argument, also allow type-level attributes to be matched
	// through the argument, unioning with whatever the direct match above
	// produced.
	if arg, ok := e.(*model.Argument); ok {
		result = result.Union(matchNamedAttribute(md, arg.Type, ev))
	}
	return result
}

func matchAttributeValue(md *ast.MatchDescriptor, v any, ev evalstub.Evaluator) binding.MatchResult {
	switch len(md.Arguments) {
	case 1:
		return Match(md.Arguments[0], valueEntity(v), ev)
	case 0:
		return Match(ast.MatchValueTrue, valueEntity(v), ev)
	default:
		return binding.Failure
	}
}

// valueEntity lifts an arbitrary attribute value (model.Entity, scalar, or
// nil) into something Match can dispatch against.
func valueEntity(v any) model.Entity {
	if e, ok := v.(model.Entity); ok {
		return e
	}
	return stringEntity(fmt.Sprintf("%v", v))
}
