// Package fixture decodes a JSON debug format into a model.API and an
// ast.Specification, for exercising the engine without the real Lapis
// grammar and C header parser, both of which are external collaborators
// this module only specifies the contract for. It is a test/CLI
// convenience, not a second implementation of the Lapis language.
package fixture

import (
	"encoding/json"
	"fmt"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/model"
)

// Fixture is the JSON document shape: a model and the specification to run
// against it.
type Fixture struct {
	Model Type         `json:"model"`
	Spec  []Declaration `json:"spec"`
}

// Decode parses data into a ready-to-run model.API and ast.Specification.
func Decode(data []byte) (*model.API, *ast.Specification, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("fixture: %w", err)
	}
	api, err := f.Model.buildAPI()
	if err != nil {
		return nil, nil, err
	}
	decls := make([]ast.Declaration, len(f.Spec))
	for i, d := range f.Spec {
		decl, err := d.toAST()
		if err != nil {
			return nil, nil, fmt.Errorf("fixture: spec[%d]: %w", i, err)
		}
		decls[i] = decl
	}
	return api, &ast.Specification{Declarations: decls}, nil
}

// --- model ---

// Type is the JSON shape of one model.Type node, also reused (with Functions
// populated) as the top-level API/model root.
type Type struct {
	Name             string           `json:"name,omitempty"`
	Const            bool             `json:"const,omitempty"`
	Nontransferrable bool             `json:"nontransferrable,omitempty"`
	Pointee          *Type            `json:"pointee,omitempty"`
	Fields           map[string]*Type `json:"fields,omitempty"`
	Functions        []Function       `json:"functions,omitempty"`
}

type Function struct {
	Name        string     `json:"name"`
	Return      *Type      `json:"return,omitempty"`
	Arguments   []Argument `json:"arguments,omitempty"`
}

type Argument struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
}

func (t *Type) buildAPI() (*model.API, error) {
	fns := make([]*model.Function, len(t.Functions))
	for i, f := range t.Functions {
		fn, err := f.build()
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return model.NewAPI(fns...), nil
}

func (f *Function) build() (*model.Function, error) {
	ret, err := f.Return.build()
	if err != nil {
		return nil, err
	}
	args := make([]*model.Argument, len(f.Arguments))
	for i, a := range f.Arguments {
		arg, err := a.build()
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return model.NewFunction(f.Name, ret, args...), nil
}

func (a *Argument) build() (*model.Argument, error) {
	t, err := a.Type.build()
	if err != nil {
		return nil, err
	}
	return model.NewArgument(a.Name, t), nil
}

func (t *Type) build() (*model.Type, error) {
	if t == nil {
		return nil, nil
	}
	mt := model.NewType(t.Name)
	mt.IsConst = t.Const
	mt.Nontransferrable = t.Nontransferrable
	if t.Const {
		nonconst := *t
		nonconst.Const = false
		twin, err := nonconst.build()
		if err != nil {
			return nil, err
		}
		mt.NonConst = twin
	}
	pointee, err := t.Pointee.build()
	if err != nil {
		return nil, err
	}
	mt.Pointee = pointee
	for name, field := range t.Fields {
		built, err := field.build()
		if err != nil {
			return nil, err
		}
		mt.Fields[name] = built
	}
	return mt, nil
}

// --- AST values ---

// Value is the JSON shape of an ast.Value: exactly one of the typed fields
// should be set, selected by Kind.
type Value struct {
	Kind   string    `json:"kind"` // id | string | number | bool | code
	Text   string    `json:"text,omitempty"`
	Number float64   `json:"number,omitempty"`
	Bool   bool      `json:"bool,omitempty"`
	Code   []CodeSeg `json:"code,omitempty"`
}

// CodeSeg is one segment of a Code value: exactly one of Text or Var.
type CodeSeg struct {
	Text string `json:"text,omitempty"`
	Var  string `json:"var,omitempty"`
}

func (v *Value) toAST() (ast.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case "id":
		return ast.Id{Name: v.Text}, nil
	case "string":
		return ast.String{Value: v.Text}, nil
	case "number":
		return ast.Number{Value: v.Number}, nil
	case "bool":
		return ast.Bool{Value: v.Bool}, nil
	case "code":
		segs := make([]ast.CodeSegment, len(v.Code))
		for i, s := range v.Code {
			if s.Var != "" {
				segs[i] = ast.CodeInterpolate{Variable: ast.Id{Name: s.Var}}
			} else {
				segs[i] = ast.CodeText(s.Text)
			}
		}
		return ast.Code{Segments: segs}, nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", v.Kind)
	}
}

// --- matchers ---

// Matcher is the JSON shape of an ast.Matcher.
type Matcher struct {
	Kind      string            `json:"kind"` // block | bind | string | value | predicate | any
	Bind      string            `json:"bind,omitempty"`
	Children  []MatchDescriptor `json:"children,omitempty"`
	Child     *Matcher          `json:"child,omitempty"`
	Regex     string            `json:"regex,omitempty"`
	Value     *Value            `json:"value,omitempty"`
	Predicate string            `json:"predicate,omitempty"`
	Arguments []Matcher         `json:"arguments,omitempty"`
}

// MatchDescriptor is the JSON shape of an ast.MatchDescriptor.
type MatchDescriptor struct {
	Name      string    `json:"name"`
	Arguments []Matcher `json:"arguments,omitempty"`
	Block     *Matcher  `json:"block,omitempty"` // must have Kind == "block"
}

func (m *Matcher) toAST() (ast.Matcher, error) {
	switch m.Kind {
	case "block":
		children := make([]*ast.MatchDescriptor, len(m.Children))
		for i, c := range m.Children {
			md, err := c.toAST()
			if err != nil {
				return nil, err
			}
			children[i] = md
		}
		return ast.MatchBlock{Bind: m.Bind, Children: children}, nil
	case "bind":
		child, err := m.Child.toAST()
		if err != nil {
			return nil, err
		}
		return ast.MatcherBind{Bind: m.Bind, Child: child}, nil
	case "string":
		return ast.MatcherString{Regex: m.Regex}, nil
	case "value":
		val, err := m.Value.toAST()
		if err != nil {
			return nil, err
		}
		return ast.MatcherValue{Value: val}, nil
	case "predicate":
		args := make([]ast.Matcher, len(m.Arguments))
		for i, a := range m.Arguments {
			am, err := a.toAST()
			if err != nil {
				return nil, err
			}
			args[i] = am
		}
		return ast.MatcherPredicate{Predicate: m.Predicate, Arguments: args}, nil
	case "any", "":
		return ast.MatcherAny{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher kind %q", m.Kind)
	}
}

func (md *MatchDescriptor) toAST() (*ast.MatchDescriptor, error) {
	args := make([]ast.Matcher, len(md.Arguments))
	for i, a := range md.Arguments {
		am, err := a.toAST()
		if err != nil {
			return nil, err
		}
		args[i] = am
	}
	block := ast.MatchBlock{}
	if md.Block != nil {
		b, err := md.Block.toAST()
		if err != nil {
			return nil, err
		}
		block = b.(ast.MatchBlock)
	}
	return &ast.MatchDescriptor{Name: ast.Id{Name: md.Name}, Arguments: args, Block: block}, nil
}

// --- descriptors & declarations ---

// DescriptorItem is the JSON shape of an ast.DescriptorItem: a plain write
// (Kind == "" or "set") or a conditional (Kind == "cond").
type DescriptorItem struct {
	Kind      string           `json:"kind,omitempty"`
	Name      string           `json:"name,omitempty"`
	Arguments []Value          `json:"arguments,omitempty"`
	Then      []DescriptorItem `json:"then,omitempty"`
	Else      []DescriptorItem `json:"else,omitempty"`
	Predicate *Value           `json:"predicate,omitempty"`
	Sub       []DescriptorItem `json:"subdescriptors,omitempty"`
}

func (d *DescriptorItem) toAST() (ast.DescriptorItem, error) {
	if d.Kind == "cond" {
		pred, err := d.Predicate.toAST()
		if err != nil {
			return nil, err
		}
		then, err := toDescriptorItems(d.Then)
		if err != nil {
			return nil, err
		}
		els, err := toDescriptorItems(d.Else)
		if err != nil {
			return nil, err
		}
		return &ast.ConditionalDescriptor{Predicate: pred, Then: then, Else: els}, nil
	}
	args := make([]ast.Value, len(d.Arguments))
	for i := range d.Arguments {
		v, err := d.Arguments[i].toAST()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	sub, err := toDescriptorItems(d.Sub)
	if err != nil {
		return nil, err
	}
	return &ast.Descriptor{Name: ast.Id{Name: d.Name}, Arguments: args, Subdescriptors: sub}, nil
}

func toDescriptorItems(in []DescriptorItem) ([]ast.DescriptorItem, error) {
	out := make([]ast.DescriptorItem, len(in))
	for i := range in {
		item, err := in[i].toAST()
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}

// Declaration is the JSON shape of an ast.Declaration: a rule when "match"
// is present, otherwise a free plain descriptor (a "cond" item is rejected
// at the top level).
type Declaration struct {
	DescriptorItem
	Match     *Matcher         `json:"match,omitempty"`
	Priority  int              `json:"priority,omitempty"`
	RulePred  *Value           `json:"rule_predicate,omitempty"`
	Result    []DescriptorItem `json:"result,omitempty"`
}

func (d *Declaration) toAST() (ast.Declaration, error) {
	if d.Match == nil {
		item, err := d.DescriptorItem.toAST()
		if err != nil {
			return nil, err
		}
		decl, ok := item.(ast.Declaration)
		if !ok {
			return nil, fmt.Errorf("fixture: top-level declaration must be a plain descriptor, not %T", item)
		}
		return decl, nil
	}
	match, err := d.Match.toAST()
	if err != nil {
		return nil, err
	}
	pred, err := d.RulePred.toAST()
	if err != nil {
		return nil, err
	}
	result, err := toDescriptorItems(d.Result)
	if err != nil {
		return nil, err
	}
	return &ast.Rule{Match: match, Priority: d.Priority, Predicate: pred, ResultDescriptors: result}, nil
}
