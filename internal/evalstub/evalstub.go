// Package evalstub defines the expression-evaluator contract the engine
// depends on, plus a minimal reference implementation sufficient for tests
// and fixture-driven CLI runs. Real deployments are expected to inject
// their own (sandboxed) evaluator; this package is deliberately not a
// production-grade expression language.
package evalstub

import (
	"fmt"
	"strconv"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/internal/binding"
)

// Evaluator evaluates AST values and rule predicates in a binding context.
// The matcher evaluates MatcherValue literals against the empty context;
// the rule engine evaluates a Rule's Predicate and a Descriptor's argument
// values against the current match binding; the dependency post-pass never
// calls this interface directly, scanning Code.String() instead.
type Evaluator interface {
	Eval(v ast.Value, ctx binding.Binding) (any, error)
	EvalPredicate(v ast.Value, ctx binding.Binding) (bool, error)
}

// Reference is the bundled reference Evaluator. Id resolves through ctx
// with a name-literal fallback; String/Number/Bool evaluate to their
// literal value; Code joins its segments, interpolating bound variables
// and leaving unbound interpolations in their literal ${name} form.
type Reference struct{}

var _ Evaluator = Reference{}

func (Reference) Eval(v ast.Value, ctx binding.Binding) (any, error) {
	switch val := v.(type) {
	case ast.Id:
		if bound, ok := ctx[val.Name]; ok {
			return bound, nil
		}
		return val.Name, nil
	case ast.String:
		return val.Value, nil
	case ast.Number:
		return val.Value, nil
	case ast.Bool:
		return val.Value, nil
	case ast.Code:
		return val.Text(ctx), nil
	default:
		return nil, fmt.Errorf("evalstub: unsupported value %T", v)
	}
}

// EvalPredicate evaluates v and coerces the result to a boolean: bools are
// used as-is, a string that strconv.ParseBool accepts ("false", "1", ...)
// takes that value, any other non-empty string and non-zero numbers are
// truthy, matching the loose truthiness Lapis predicates rely on.
func (r Reference) EvalPredicate(v ast.Value, ctx binding.Binding) (bool, error) {
	val, err := r.Eval(v, ctx)
	if err != nil {
		return false, err
	}
	return truthy(val), nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if x == "" {
			return false
		}
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
		return true
	case float64:
		return x != 0
	default:
		return v != nil
	}
}
