package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/internal/evalstub"
	"github.com/lapis-lang/lapis/internal/matcher"
	"github.com/lapis-lang/lapis/model"
)

var ev = evalstub.Reference{}

func newAPI() *model.API {
	bufT := model.NewType("buffer_t")
	bufPtr := model.NewType("buffer_t")
	bufPtr.Pointee = bufT

	resize := model.NewFunction("resize",
		model.NewType("int"),
		model.NewArgument("buf", bufPtr),
		model.NewArgument("n", model.NewType("size_t")),
	)

	constChar := model.NewType("char")
	constChar.IsConst = true
	nonConstChar := model.NewType("char")
	constChar.NonConst = nonConstChar
	readOnly := model.NewFunction("describe", model.NewType("void"),
		model.NewArgument("label", constChar),
	)

	return model.NewAPI(resize, readOnly)
}

func TestMatchBlockEmptyAlwaysSucceeds(t *testing.T) {
	api := newAPI()
	result := matcher.Match(ast.MatchBlock{}, api, ev)
	assert.True(t, result.Ok())
}

func TestMatchBlockBindsMatchedEntity(t *testing.T) {
	api := newAPI()
	result := matcher.Match(ast.MatchBlock{Bind: "root"}, api, ev)
	require.True(t, result.Ok())
	assert.Same(t, api, result.Bindings()[0]["root"])
}

func TestMatchFunctionByNameRegex(t *testing.T) {
	api := newAPI()
	md := &ast.MatchDescriptor{
		Name:      ast.Id{Name: ast.NavFunction},
		Arguments: []ast.Matcher{ast.MatcherString{Regex: "resize"}},
		Block:     ast.MatchBlock{Bind: "fn"},
	}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, api, ev)
	require.True(t, result.Ok())
	require.Len(t, result.Bindings(), 1)
	fn, ok := result.Bindings()[0]["fn"].(*model.Function)
	require.True(t, ok)
	assert.Equal(t, "resize", fn.Name)
}

func TestMatchFunctionUnionsOverAllCandidates(t *testing.T) {
	api := newAPI()
	md := &ast.MatchDescriptor{
		Name:      ast.Id{Name: ast.NavFunction},
		Arguments: []ast.Matcher{ast.MatcherAny{}},
		Block:     ast.MatchBlock{Bind: "fn"},
	}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, api, ev)
	assert.Len(t, result.Bindings(), 2, "a wildcard function matcher should bind every function, not just the first")
}

func TestMatchArgumentByName(t *testing.T) {
	api := newAPI()
	fn := api.Functions[0]
	md := &ast.MatchDescriptor{
		Name:      ast.Id{Name: ast.NavArgument},
		Arguments: []ast.Matcher{ast.MatcherString{Regex: "buf"}},
		Block:     ast.MatchBlock{Bind: "a"},
	}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, fn, ev)
	require.True(t, result.Ok())
	arg, ok := result.Bindings()[0]["a"].(*model.Argument)
	require.True(t, ok)
	assert.Equal(t, "buf", arg.Name)
}

func TestMatchElementThroughArgumentPointer(t *testing.T) {
	api := newAPI()
	fn := api.Functions[0]
	arg := fn.Argument("buf")

	elementMD := &ast.MatchDescriptor{Name: ast.Id{Name: ast.NavElement}, Block: ast.MatchBlock{Bind: "pointee"}}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{elementMD}}, arg.Type, ev)
	require.True(t, result.Ok())
	assert.Same(t, arg.Type.Pointee, result.Bindings()[0]["pointee"])
}

func TestMatchElementAtArgumentRecursesIntoItsType(t *testing.T) {
	api := newAPI()
	fn := api.Functions[0]
	arg := fn.Argument("buf")

	elementMD := &ast.MatchDescriptor{Name: ast.Id{Name: ast.NavElement}, Block: ast.MatchBlock{Bind: "pointee"}}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{elementMD}}, arg, ev)
	require.True(t, result.Ok(), "element at an Argument must recurse through the argument's type")
	assert.Same(t, arg.Type.Pointee, result.Bindings()[0]["pointee"])

	scalar := fn.Argument("n")
	noMatch := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{elementMD}}, scalar, ev)
	assert.False(t, noMatch.Ok(), "an argument of a non-pointer type has no element")
}

func TestMatchFieldLookup(t *testing.T) {
	inner := model.NewType("int")
	outer := model.NewType("point_t")
	outer.Fields["x"] = inner

	fieldMD := &ast.MatchDescriptor{
		Name:      ast.Id{Name: ast.NavField},
		Arguments: []ast.Matcher{ast.MatcherValue{Value: ast.String{Value: "x"}}},
		Block:     ast.MatchBlock{Bind: "f"},
	}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{fieldMD}}, outer, ev)
	require.True(t, result.Ok())
	assert.Same(t, inner, result.Bindings()[0]["f"])
}

func TestMatchFieldMissingFails(t *testing.T) {
	outer := model.NewType("point_t")
	fieldMD := &ast.MatchDescriptor{
		Name:      ast.Id{Name: ast.NavField},
		Arguments: []ast.Matcher{ast.MatcherValue{Value: ast.String{Value: "missing"}}},
		Block:     ast.MatchBlock{},
	}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{fieldMD}}, outer, ev)
	assert.False(t, result.Ok())
}

func TestMatchNotNegates(t *testing.T) {
	api := newAPI()
	notMD := &ast.MatchDescriptor{
		Name: ast.Id{Name: ast.NavNot},
		Block: ast.MatchBlock{Children: []*ast.MatchDescriptor{{
			Name:      ast.Id{Name: ast.NavFunction},
			Arguments: []ast.Matcher{ast.MatcherString{Regex: "nonexistent"}},
			Block:     ast.MatchBlock{},
		}}},
	}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{notMD}}, api, ev)
	assert.True(t, result.Ok())
}

func TestPredicatePointer(t *testing.T) {
	api := newAPI()
	arg := api.Functions[0].Argument("buf")
	m := ast.MatcherPredicate{Predicate: ast.PredPointer, Arguments: []ast.Matcher{ast.MatcherAny{}}}
	assert.True(t, matcher.Match(m, arg.Type, ev).Ok())

	nonPointer := model.NewType("int")
	assert.False(t, matcher.Match(m, nonPointer, ev).Ok())
}

func TestPredicateConstAndNonconst(t *testing.T) {
	constT := model.NewType("char")
	constT.IsConst = true

	assert.True(t, matcher.Match(ast.MatcherPredicate{Predicate: ast.PredConst, Arguments: []ast.Matcher{ast.MatcherAny{}}}, constT, ev).Ok())
	assert.False(t, matcher.Match(ast.MatcherPredicate{Predicate: ast.PredNonconst, Arguments: []ast.Matcher{ast.MatcherAny{}}}, constT, ev).Ok())
}

func TestPredicateTransferrable(t *testing.T) {
	t1 := model.NewType("int")
	assert.True(t, matcher.Match(ast.MatcherPredicate{Predicate: ast.PredTransferrable}, t1, ev).Ok())
	t1.Nontransferrable = true
	assert.False(t, matcher.Match(ast.MatcherPredicate{Predicate: ast.PredTransferrable}, t1, ev).Ok())
}

func TestTypeAttributeMatchesPointerToConstThroughArgument(t *testing.T) {
	pointee := model.NewType("int")
	pointee.IsConst = true
	ptr := model.NewType("int")
	ptr.Pointee = pointee
	arg := model.NewArgument("data", ptr)

	md := &ast.MatchDescriptor{
		Name: ast.Id{Name: "type"},
		Arguments: []ast.Matcher{
			ast.MatcherPredicate{Predicate: ast.PredPointer, Arguments: []ast.Matcher{
				ast.MatcherPredicate{Predicate: ast.PredConst, Arguments: []ast.Matcher{ast.MatcherAny{}}},
			}},
		},
	}
	block := ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}

	assert.True(t, matcher.Match(block, arg, ev).Ok(), "const-pointee pointer must match type(pointer(const(_))) through the argument")

	plain := model.NewArgument("n", model.NewType("size_t"))
	assert.False(t, matcher.Match(block, plain, ev).Ok())

	mutable := model.NewType("int")
	mutPtr := model.NewType("int")
	mutPtr.Pointee = mutable
	assert.False(t, matcher.Match(block, model.NewArgument("out", mutPtr), ev).Ok(), "non-const pointee must not match")
}

func TestMatcherValueComparesStringForm(t *testing.T) {
	arg := model.NewArgument("n", model.NewType("size_t"))
	md := &ast.MatchDescriptor{Name: ast.Id{Name: "name"}, Arguments: []ast.Matcher{ast.MatcherValue{Value: ast.String{Value: "n"}}}}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, arg, ev)
	assert.True(t, result.Ok())
}

func TestMatcherValueAcceptsNonconstTwin(t *testing.T) {
	nonconst := model.NewType("char")
	konst := model.NewType("char")
	konst.IsConst = true
	konst.NonConst = nonconst

	m := ast.MatcherValue{Value: ast.String{Value: "char"}}
	assert.True(t, matcher.Match(m, konst, ev).Ok(), "a const type should also match its nonconst twin's string form")
}

func TestNamedAttributeZeroArgRequiresTruthy(t *testing.T) {
	fn := model.NewFunction("f", model.NewType("void"))
	fn.Set("deprecated", true)

	md := &ast.MatchDescriptor{Name: ast.Id{Name: "deprecated"}}
	assert.True(t, matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, fn, ev).Ok())

	fn.Set("deprecated", false)
	assert.False(t, matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, fn, ev).Ok())
}

func TestNamedAttributeUnknownFails(t *testing.T) {
	fn := model.NewFunction("f", model.NewType("void"))
	md := &ast.MatchDescriptor{Name: ast.Id{Name: "not_an_attribute"}}
	assert.False(t, matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, fn, ev).Ok())
}

func TestNamedAttributeFallsThroughArgumentToType(t *testing.T) {
	arg := model.NewArgument("n", model.NewType("int"))
	arg.Type.Set("nullable", true)

	md := &ast.MatchDescriptor{Name: ast.Id{Name: "nullable"}}
	result := matcher.Match(ast.MatchBlock{Children: []*ast.MatchDescriptor{md}}, arg, ev)
	assert.True(t, result.Ok(), "an attribute set only on Argument.Type must still be reachable by matching the Argument")
}

func TestDuplicateEntityBindingInvariantForNestedBinds(t *testing.T) {
	api := newAPI()
	// Bind the same function under two user names through nested
	// MatcherBinds: the combined binding maps both a and b to one entity,
	// so the match must fail.
	fn := api.Functions[0]
	outerBind := ast.MatcherBind{Bind: "a", Child: ast.MatcherBind{Bind: "b", Child: ast.MatcherAny{}}}
	result := matcher.Match(outerBind, fn, ev)
	assert.False(t, result.Ok(), "binding the same matched entity to two distinct names must violate the duplicate-entity invariant")
}
