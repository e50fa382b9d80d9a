// Package engine is the rule engine and top-level driver: it sorts rules
// by priority, walks the whole model depth-first applying every rule at
// every node, and runs the dependency post-pass once traversal is done.
//
// Run is an explicitly step-commented driver building up one result as it
// goes; trace rendering reuses internal/diagnostic's color and diff helpers.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/internal/applicator"
	"github.com/lapis-lang/lapis/internal/binding"
	"github.com/lapis-lang/lapis/internal/depends"
	"github.com/lapis-lang/lapis/internal/diagnostic"
	"github.com/lapis-lang/lapis/internal/evalstub"
	"github.com/lapis-lang/lapis/internal/matcher"
	"github.com/lapis-lang/lapis/internal/schema"
	"github.com/lapis-lang/lapis/model"
)

// Options configures one Run.
type Options struct {
	// Schema guards annotation writes. schema.Open if nil.
	Schema schema.Schema

	// Evaluator evaluates AST values and predicates. evalstub.Reference{} if nil.
	Evaluator evalstub.Evaluator

	// Trace, when true, makes Run emit one Event per (rule, node, binding)
	// application to Events as it goes.
	Trace bool

	// Events receives trace events when Trace is set. When Events is nil,
	// Run renders each event itself as a colorized line on stdout.
	Events chan<- Event
}

// Event is one traced rule application, identified by RunID so multiple
// concurrent CLI invocations' logs can be told apart.
type Event struct {
	RunID   string
	Rule    *ast.Rule
	Node    model.Entity
	Binding binding.Binding
	Applied bool
	Diff    string
}

// extractedRule is either a verbatim Rule or a free top-level Descriptor
// lifted into an implicit whole-API application, together with its
// position in the original declaration order. Priority ties keep that order
// because Run sorts with a stable sort. A lifted descriptor applies exactly once,
// directly to the API root, rather than through the matcher: the
// equivalent encoding as an implicit rule (an empty match block pinned to
// the root by a kind-check predicate) would need a host-language kind
// check smuggled through the predicate expression language, and the guard
// exists purely to pin the application to the root entity anyway.
type extractedRule struct {
	rule       *ast.Rule
	descriptor *ast.Descriptor
	order      int
}

func (r extractedRule) priority() int {
	if r.rule != nil {
		return r.rule.Priority
	}
	return 0
}

// Run executes the whole pipeline against api: extracting rules from spec,
// sorting them, traversing the model applying each rule at every node, and
// finally running the dependency post-pass. It returns the first fatal
// diagnostic.Error encountered, if any.
func Run(ctx context.Context, spec *ast.Specification, api *model.API, opts Options) error {
	sch := opts.Schema
	if sch == nil {
		sch = schema.Open
	}
	ev := opts.Evaluator
	if ev == nil {
		ev = evalstub.Reference{}
	}

	runID := uuid.NewString()

	// Step 1: extract rules, lifting free top-level descriptors into
	// implicit whole-API rules.
	rules := extractRules(spec)

	// Step 2: sort by descending priority, stable on declaration order.
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].priority() > rules[j].priority()
	})

	// Step 3 + 4: for each rule, traverse the model applying it at every
	// node, then apply result descriptors to every surviving binding. A
	// lifted descriptor skips traversal and applies once, at the root.
	for _, er := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if er.descriptor != nil {
			if err := applicator.Apply([]ast.DescriptorItem{er.descriptor}, api, binding.Binding{}, sch, ev); err != nil {
				return err
			}
			continue
		}
		if err := applyRuleOverModel(ctx, er.rule, api, sch, ev, runID, opts); err != nil {
			return err
		}
	}

	// Step 5: dependency post-pass and topological argument sort.
	depends.Infer(api)

	return nil
}

func extractRules(spec *ast.Specification) []extractedRule {
	out := make([]extractedRule, 0, len(spec.Declarations))
	for i, decl := range spec.Declarations {
		switch v := decl.(type) {
		case *ast.Rule:
			out = append(out, extractedRule{rule: v, order: i})
		case *ast.Descriptor:
			out = append(out, extractedRule{descriptor: v, order: i})
		default:
			panic(fmt.Sprintf("engine: unknown declaration %T", decl))
		}
	}
	return out
}

func applyRuleOverModel(ctx context.Context, rule *ast.Rule, e model.Entity, sch schema.Schema, ev evalstub.Evaluator, runID string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := applyRuleAt(rule, e, sch, ev, runID, opts); err != nil {
		return err
	}

	switch v := e.(type) {
	case *model.API:
		for _, fn := range v.Functions {
			if err := applyRuleOverModel(ctx, rule, fn, sch, ev, runID, opts); err != nil {
				return err
			}
		}
	case *model.Function:
		for _, arg := range v.Arguments {
			if err := applyRuleOverModel(ctx, rule, arg, sch, ev, runID, opts); err != nil {
				return err
			}
		}
		if v.ReturnValue != nil {
			if err := applyRuleOverModel(ctx, rule, v.ReturnValue, sch, ev, runID, opts); err != nil {
				return err
			}
		}
	case *model.Type:
		if v.Pointee != nil {
			if err := applyRuleOverModel(ctx, rule, v.Pointee, sch, ev, runID, opts); err != nil {
				return err
			}
		}
		// Field order is fixed by sorting names so two runs over deep-equal
		// models apply rules in the same order.
		names := make([]string, 0, len(v.Fields))
		for name := range v.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := applyRuleOverModel(ctx, rule, v.Fields[name], sch, ev, runID, opts); err != nil {
				return err
			}
		}
	case *model.Argument:
		if v.Type != nil {
			if err := applyRuleOverModel(ctx, rule, v.Type, sch, ev, runID, opts); err != nil {
				return err
			}
		}
	default:
		return diagnostic.New(diagnostic.UnknownConstruct, e, "unknown entity kind during traversal")
	}
	return nil
}

func applyRuleAt(rule *ast.Rule, e model.Entity, sch schema.Schema, ev evalstub.Evaluator, runID string, opts Options) error {
	result := matcher.Match(rule.Match, e, ev)
	for _, b := range result.Bindings() {
		ok := true
		if rule.Predicate != nil {
			var err error
			ok, err = ev.EvalPredicate(rule.Predicate, b)
			if err != nil {
				return diagnostic.Wrap(diagnostic.TypeMismatch, e, err, "evaluating rule predicate")
			}
		}
		if !ok {
			emitTrace(opts, runID, rule, e, b, false, "")
			continue
		}

		var before map[string]any
		if opts.Trace {
			before = model.Annotations(e)
		}
		if err := applicator.Apply(rule.ResultDescriptors, e, b, sch, ev); err != nil {
			return err
		}
		diff := ""
		if opts.Trace {
			diff, _ = diagnostic.AnnotationDiff(e, before, model.Annotations(e))
		}
		emitTrace(opts, runID, rule, e, b, true, diff)
	}
	return nil
}

func emitTrace(opts Options, runID string, rule *ast.Rule, e model.Entity, b binding.Binding, applied bool, diff string) {
	if !opts.Trace {
		return
	}
	ev := Event{RunID: runID, Rule: rule, Node: e, Binding: b, Applied: applied, Diff: diff}
	if opts.Events != nil {
		opts.Events <- ev
		return
	}
	label := color.New(color.FgCyan).Sprintf("[%s]", runID[:8])
	fmt.Printf("%s %s @ %s applied=%v\n%s", label, rule.String(), model.Describe(e), applied, diff)
}
