// Package schema declares, per model entity kind, which annotation names the
// applicator's do_set rule expects. A name declared for a kind may be
// written there; a name declared for no kind at all is unknown and is
// written through unconditionally (the permissive fallback); a write of a
// name declared for other kinds but not this one is silently skipped.
package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lapis-lang/lapis/model"
)

// Schema answers whether an annotation name is expected on a given entity
// kind, the guard the applicator's do_set consults before writing.
type Schema interface {
	// Expects reports whether name is declared for kind.
	Expects(kind model.EntityKind, name string) bool

	// Declared reports whether name is declared for any kind at all. A name
	// that is Declared for no kind is unrestricted: do_set writes it
	// regardless of the target's kind.
	Declared(name string) bool

	// Parser returns the normalizer for name, if one is registered. The
	// applicator passes every value it is about to write through the
	// normalizer; a rejection aborts the run.
	Parser(name string) (Normalizer, bool)
}

// Normalizer validates and normalizes one annotation's value before the
// applicator assigns it.
type Normalizer func(value any) (any, error)

// Document is the YAML shape a schema file takes: one list of allowed
// annotation names per entity kind.
//
//	api: [module_name]
//	function: [synchrony, transfer]
//	argument: [lifetime]
//	type: [nullable]
type Document struct {
	API      []string `yaml:"api,omitempty"`
	Function []string `yaml:"function,omitempty"`
	Argument []string `yaml:"argument,omitempty"`
	Type     []string `yaml:"type,omitempty"`

	// Values optionally enumerates the allowed values for an annotation:
	//
	//	values:
	//	  synchrony: [sync, async]
	//
	// Each entry becomes a registered Parser that rejects any value whose
	// string form is not in the list.
	Values map[string][]string `yaml:"values,omitempty"`
}

// Static is a Schema loaded once from a Document and held in memory for the
// lifetime of an engine run.
type Static struct {
	byKind  map[model.EntityKind]map[string]struct{}
	any     map[string]struct{}
	parsers map[string]Normalizer
}

var _ Schema = (*Static)(nil)

// New builds a Static schema from a Document.
func New(doc Document) *Static {
	s := &Static{
		byKind: map[model.EntityKind]map[string]struct{}{
			model.KindAPI:      toSet(doc.API),
			model.KindFunction: toSet(doc.Function),
			model.KindArgument: toSet(doc.Argument),
			model.KindType:     toSet(doc.Type),
		},
		any:     map[string]struct{}{},
		parsers: map[string]Normalizer{},
	}
	for _, set := range s.byKind {
		for name := range set {
			s.any[name] = struct{}{}
		}
	}
	for name, allowed := range doc.Values {
		s.parsers[name] = enumNormalizer(name, allowed)
	}
	return s
}

func enumNormalizer(name string, allowed []string) Normalizer {
	set := toSet(allowed)
	return func(value any) (any, error) {
		str := fmt.Sprintf("%v", value)
		if _, ok := set[str]; !ok {
			return nil, fmt.Errorf("%q is not an allowed value for %s (allowed: %v)", str, name, allowed)
		}
		return str, nil
	}
}

// RegisterParser installs a normalizer for name, replacing any enumeration
// loaded from the document. Callers with richer value shapes than the YAML
// enumeration supports register their own parsers this way.
func (s *Static) RegisterParser(name string, fn Normalizer) {
	s.parsers[name] = fn
}

// Load reads a YAML schema document from path.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: reading %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parsing %s: %w", path, err)
	}
	return New(doc), nil
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func (s *Static) Expects(kind model.EntityKind, name string) bool {
	set, ok := s.byKind[kind]
	if !ok {
		return false
	}
	_, ok = set[name]
	return ok
}

func (s *Static) Declared(name string) bool {
	_, ok := s.any[name]
	return ok
}

func (s *Static) Parser(name string) (Normalizer, bool) {
	fn, ok := s.parsers[name]
	return fn, ok
}

// Names returns every annotation name declared for kind, sorted, for use in
// schema-introspection CLI output.
func (s *Static) Names(kind model.EntityKind) []string {
	set := s.byKind[kind]
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Open is the Schema with no declarations at all: every name is unknown to
// every kind, so do_set always writes through. Used when no schema file is
// configured.
var Open Schema = openSchema{}

type openSchema struct{}

func (openSchema) Expects(model.EntityKind, string) bool { return false }
func (openSchema) Declared(string) bool                  { return false }
func (openSchema) Parser(string) (Normalizer, bool)      { return nil, false }
