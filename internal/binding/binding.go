// Package binding implements the matcher's binding algebra: MatchResult, a
// set of bindings, with extend (⊗) and union (⊕). Failure is the zero of ⊗
// and the identity of ⊕, giving a failure-absorbing semiring over bindings.
package binding

import (
	"fmt"

	"github.com/lapis-lang/lapis/model"
)

// Binding maps a user-chosen name to either a scalar value or a matched
// model.Entity.
type Binding map[string]any

func (b Binding) clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// merge returns a new Binding with b's keys overridden by o's on conflict,
// per the algebra's "∪ resolves key conflicts in favor of the right
// operand" rule.
func (b Binding) merge(o Binding) Binding {
	out := b.clone()
	for k, v := range o {
		out[k] = v
	}
	return out
}

// sameValue compares two binding values: entities by identity, scalars by
// string form.
func sameValue(a, b any) bool {
	ae, aok := a.(model.Entity)
	be, bok := b.(model.Entity)
	if aok != bok {
		return false
	}
	if aok {
		return ae == be
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func sameBinding(a, b Binding) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !sameValue(av, bv) {
			return false
		}
	}
	return true
}

func containsBinding(set []Binding, b Binding) bool {
	for _, existing := range set {
		if sameBinding(existing, b) {
			return true
		}
	}
	return false
}

// valid reports whether no model.Entity appears as the value of two
// distinct keys in m — the duplicate-block-binding invariant.
func valid(m Binding) bool {
	seen := make(map[model.Entity]string, len(m))
	for k, v := range m {
		e, ok := v.(model.Entity)
		if !ok {
			continue
		}
		if other, exists := seen[e]; exists && other != k {
			return false
		}
		seen[e] = k
	}
	return true
}

// MatchResult is a set of Bindings produced by matching an AST node against
// a model entity.
type MatchResult struct {
	bindings []Binding
}

// Success is the identity of ⊗: the singleton set containing the empty
// binding.
var Success = MatchResult{bindings: []Binding{{}}}

// Failure is the zero of ⊗ and identity of ⊕: the empty set.
var Failure = MatchResult{}

// Of wraps a single binding as a one-element MatchResult.
func Of(b Binding) MatchResult {
	return MatchResult{bindings: []Binding{b}}
}

// FromBool lifts a boolean test into Success (true) or Failure (false).
func FromBool(ok bool) MatchResult {
	if ok {
		return Success
	}
	return Failure
}

// Bindings returns the surviving bindings, in the unspecified-but-complete
// order they were produced.
func (r MatchResult) Bindings() []Binding { return r.bindings }

// Ok reports whether the result is non-empty (its "truthiness").
func (r MatchResult) Ok() bool { return len(r.bindings) > 0 }

// Extend implements ⊗: the cross-product of r and o, dropping any combined
// binding that violates the duplicate-entity invariant. Extending by
// Failure (either side) yields Failure; extending by Success is the
// identity.
func (r MatchResult) Extend(o MatchResult) MatchResult {
	if len(r.bindings) == 0 || len(o.bindings) == 0 {
		return Failure
	}
	out := make([]Binding, 0, len(r.bindings)*len(o.bindings))
	for _, a := range r.bindings {
		for _, b := range o.bindings {
			merged := a.merge(b)
			if valid(merged) && !containsBinding(out, merged) {
				out = append(out, merged)
			}
		}
	}
	return MatchResult{bindings: out}
}

// Union implements ⊕: the set union of r and o's bindings.
func (r MatchResult) Union(o MatchResult) MatchResult {
	if len(r.bindings) == 0 {
		return o
	}
	if len(o.bindings) == 0 {
		return r
	}
	out := make([]Binding, 0, len(r.bindings)+len(o.bindings))
	out = append(out, r.bindings...)
	for _, b := range o.bindings {
		if !containsBinding(out, b) {
			out = append(out, b)
		}
	}
	return MatchResult{bindings: out}
}

// Not returns Success if r is Failure and Failure otherwise, discarding any
// bindings r carried — the negated-match semantics of NOT(...) and not(...).
func Not(r MatchResult) MatchResult {
	return FromBool(!r.Ok())
}

// ExtendAll folds Extend (⊗) over a sequence of results, starting from
// Success — the conjunctive-block idiom used by the matcher for MatchBlock
// children.
func ExtendAll(results ...MatchResult) MatchResult {
	acc := Success
	for _, r := range results {
		acc = acc.Extend(r)
	}
	return acc
}

// UnionAll folds Union (⊕) over a sequence of results, starting from
// Failure — the alternative-candidates idiom used when matching against
// every function/argument in a collection.
func UnionAll(results ...MatchResult) MatchResult {
	acc := Failure
	for _, r := range results {
		acc = acc.Union(r)
	}
	return acc
}

// BindEntity extends r with a single name→m binding, used both for a
// MatchBlock's own bind target and for MatcherBind.
func (r MatchResult) BindEntity(name string, m model.Entity) MatchResult {
	return r.Extend(Of(Binding{name: m}))
}

// BindValue extends r with a single name→scalar binding.
func (r MatchResult) BindValue(name string, v any) MatchResult {
	return r.Extend(Of(Binding{name: v}))
}
