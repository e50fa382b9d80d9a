// Package applicator writes a descriptor's annotations into the model,
// navigating into sub-positions along the way: locate a target, then apply
// exactly one mutating operation against it, including the
// Argument → Argument.Type propagation on a named-attribute write.
package applicator

import (
	"fmt"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/internal/binding"
	"github.com/lapis-lang/lapis/internal/diagnostic"
	"github.com/lapis-lang/lapis/internal/evalstub"
	"github.com/lapis-lang/lapis/internal/schema"
	"github.com/lapis-lang/lapis/model"
)

// Apply applies every item in sequence to target, in binding context ctx.
// Items run in order; a later item in the same sequence can overwrite an
// earlier one's write (last-write-wins within one descriptor sequence).
func Apply(items []ast.DescriptorItem, target model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	for _, item := range items {
		if err := applyOne(item, target, ctx, sch, ev); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(item ast.DescriptorItem, target model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	switch v := item.(type) {
	case *ast.Descriptor:
		return applyDescriptor(v, target, ctx, sch, ev)
	case *ast.ConditionalDescriptor:
		ok, err := ev.EvalPredicate(v.Predicate, ctx)
		if err != nil {
			return diagnostic.Wrap(diagnostic.TypeMismatch, target, err, "evaluating conditional descriptor predicate")
		}
		if ok {
			return Apply(v.Then, target, ctx, sch, ev)
		}
		return Apply(v.Else, target, ctx, sch, ev)
	default:
		return diagnostic.New(diagnostic.UnknownConstruct, target, "unknown descriptor item %T", item)
	}
}

func applyDescriptor(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	switch {
	case d.Name.Matches(ast.NavAt):
		return applyAt(d, m, ctx, sch, ev)
	case d.Name.Matches(ast.NavFunction):
		return applyFunction(d, m, ctx, sch, ev)
	case d.Name.Matches(ast.NavArgument):
		return applyArgument(d, m, ctx, sch, ev)
	case d.Name.Matches(ast.NavField):
		return applyField(d, m, ctx, sch, ev)
	case d.Name.Matches(ast.NavElement):
		return applyElement(d, m, ctx, sch, ev)
	default:
		return applyNamedAttribute(d, m, ctx, sch, ev)
	}
}

func applyAt(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	target, err := evalTarget(d, ctx, ev)
	if err != nil {
		return diagnostic.Wrap(diagnostic.LookupFailure, m, err, "at(...) target expression")
	}
	return Apply(d.Subdescriptors, target, ctx, sch, ev)
}

func evalTarget(d *ast.Descriptor, ctx binding.Binding, ev evalstub.Evaluator) (model.Entity, error) {
	if len(d.Arguments) != 1 {
		return nil, fmt.Errorf("at(...) requires exactly one target expression")
	}
	val, err := ev.Eval(d.Arguments[0], ctx)
	if err != nil {
		return nil, err
	}
	e, ok := val.(model.Entity)
	if !ok {
		return nil, fmt.Errorf("at(...) target did not resolve to a model entity, got %T", val)
	}
	return e, nil
}

func applyFunction(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	api, ok := m.(*model.API)
	if !ok {
		return diagnostic.New(diagnostic.TypeMismatch, m, "function(...) requires an API, got %s", m.Kind())
	}
	name, err := evalName(d, ctx, ev)
	if err != nil {
		return diagnostic.Wrap(diagnostic.TypeMismatch, m, err, "function(...) name expression")
	}
	for _, f := range api.Functions {
		if f.Name == name {
			return Apply(d.Subdescriptors, f, ctx, sch, ev)
		}
	}
	return diagnostic.New(diagnostic.LookupFailure, m, "no function named %q", name)
}

func applyArgument(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	fn, ok := m.(*model.Function)
	if !ok {
		return diagnostic.New(diagnostic.TypeMismatch, m, "argument(...) requires a Function, got %s", m.Kind())
	}
	name, err := evalName(d, ctx, ev)
	if err != nil {
		return diagnostic.Wrap(diagnostic.TypeMismatch, m, err, "argument(...) name expression")
	}
	arg := fn.Argument(name)
	if arg == nil {
		return diagnostic.New(diagnostic.LookupFailure, m, "no argument named %q", name)
	}
	return Apply(d.Subdescriptors, arg, ctx, sch, ev)
}

func applyField(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	t, ok := m.(*model.Type)
	if !ok {
		return diagnostic.New(diagnostic.TypeMismatch, m, "field(...) requires a Type, got %s", m.Kind())
	}
	name, err := evalName(d, ctx, ev)
	if err != nil {
		return diagnostic.Wrap(diagnostic.TypeMismatch, m, err, "field(...) name expression")
	}
	field, ok := t.Fields[name]
	if !ok {
		return diagnostic.New(diagnostic.LookupFailure, m, "no field named %q", name)
	}
	return Apply(d.Subdescriptors, field, ctx, sch, ev)
}

func applyElement(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	t, ok := m.(*model.Type)
	if !ok || t.Pointee == nil {
		return diagnostic.New(diagnostic.LookupFailure, m, "element requires a Type with a pointee")
	}
	return Apply(d.Subdescriptors, t.Pointee, ctx, sch, ev)
}

func evalName(d *ast.Descriptor, ctx binding.Binding, ev evalstub.Evaluator) (string, error) {
	if len(d.Arguments) != 1 {
		return "", fmt.Errorf("expected exactly one name argument, got %d", len(d.Arguments))
	}
	val, err := ev.Eval(d.Arguments[0], ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", val), nil
}

// applyNamedAttribute is the do_set rule: it writes an annotation on m when
// the name is expected for m's kind, or is declared for no kind at all, and
// silently skips the write otherwise so one rule can safely fire across
// entities of mixed kinds. An Argument additionally propagates the same
// write to its Type, letting a type-targeted annotation be written from a
// rule that matched the argument.
func applyNamedAttribute(d *ast.Descriptor, m model.Entity, ctx binding.Binding, sch schema.Schema, ev evalstub.Evaluator) error {
	name := d.Name.Name

	if len(d.Arguments) > 1 {
		return diagnostic.New(diagnostic.SchemaViolation, m, "annotation %q takes at most one value, got %d", name, len(d.Arguments))
	}
	value, err := descriptorValue(d, ctx, ev)
	if err != nil {
		return diagnostic.Wrap(diagnostic.ParserRejection, m, err, "evaluating value for %q", name)
	}

	expected := sch.Expects(m.Kind(), name)
	declared := sch.Declared(name)
	if expected || !declared {
		if norm, ok := sch.Parser(name); ok {
			value, err = norm(value)
			if err != nil {
				return diagnostic.Wrap(diagnostic.ParserRejection, m, err, "annotation %q rejected its value", name)
			}
		}
		m.Set(name, value)
	}

	if arg, ok := m.(*model.Argument); ok {
		return applyNamedAttribute(d, arg.Type, ctx, sch, ev)
	}
	return nil
}

func descriptorValue(d *ast.Descriptor, ctx binding.Binding, ev evalstub.Evaluator) (any, error) {
	if len(d.Arguments) == 0 {
		return true, nil
	}
	// A code-valued annotation stays code-typed in the bag, with its
	// interpolations resolved, so the dependency post-pass can still
	// recognize it as embedded code.
	if code, ok := d.Arguments[0].(ast.Code); ok {
		return code.Resolve(ctx), nil
	}
	return ev.Eval(d.Arguments[0], ctx)
}
