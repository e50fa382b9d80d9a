// Package depends implements the dependency post-pass: after the rule
// engine has finished writing annotations, it scans each argument's
// reachable embedded code for sibling argument names and records what it
// finds as depends_on, then asks the model to reorder arguments so
// dependencies precede dependents.
package depends

import (
	"strings"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/model"
)

// Infer runs the post-pass over every function in api: for each argument,
// it collects the embedded code reachable from that argument's own
// annotations and its type graph (excluding the Type.NonConst back-edge),
// and records a dependency on every sibling argument whose name appears as
// a substring of that code. It then re-sorts each function's arguments
// topologically.
func Infer(api *model.API) {
	for _, f := range api.Functions {
		for _, a := range f.Arguments {
			code := collectCode(a)
			for _, sibling := range f.Arguments {
				if sibling == a {
					continue
				}
				if containsName(code, sibling.Name) {
					a.AddDependency(sibling.Name)
				}
			}
		}
		f.SortArguments()
	}
}

// collectCode gathers the literal text of every embedded Code value found
// in a's own annotation bag and in the type graph reachable from a.Type:
// the type itself, its fields, and its pointee chain, recursively. The
// NonConst back-edge is never followed, matching the post-pass's exclusion
// of back-edges when walking the model.
func collectCode(a *model.Argument) []string {
	var out []string
	out = append(out, codeStrings(model.Annotations(a))...)
	visitType(a.Type, map[*model.Type]bool{}, &out)
	return out
}

func visitType(t *model.Type, seen map[*model.Type]bool, out *[]string) {
	if t == nil || seen[t] {
		return
	}
	seen[t] = true
	*out = append(*out, codeStrings(model.Annotations(t))...)
	visitType(t.Pointee, seen, out)
	for _, field := range t.Fields {
		visitType(field, seen, out)
	}
}

func codeStrings(bag map[string]any) []string {
	var out []string
	for _, v := range bag {
		if c, ok := v.(ast.Code); ok {
			out = append(out, c.String())
		}
	}
	return out
}

func containsName(code []string, name string) bool {
	for _, c := range code {
		if strings.Contains(c, name) {
			return true
		}
	}
	return false
}
