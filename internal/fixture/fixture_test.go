package fixture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapis-lang/lapis/ast"
	"github.com/lapis-lang/lapis/internal/fixture"
)

func TestDecodeBuildsModelAndSpecification(t *testing.T) {
	data := []byte(`{
		"model": {
			"functions": [
				{
					"name": "resize",
					"return": {"name": "int"},
					"arguments": [
						{"name": "buf", "type": {"name": "void", "pointee": {"name": "void"}}},
						{"name": "n", "type": {"name": "size_t"}}
					]
				}
			]
		},
		"spec": [
			{"name": "module_name", "arguments": [{"kind": "string", "text": "bufferlib"}]},
			{
				"match": {"kind": "block", "children": [
					{"name": "function", "arguments": [{"kind": "string", "regex": "resize"}], "block": {"kind": "block", "bind": "fn"}}
				]},
				"priority": 5,
				"result": [
					{"name": "synchrony", "arguments": [{"kind": "string", "text": "async"}]},
					{
						"kind": "cond",
						"predicate": {"kind": "bool", "bool": true},
						"then": [{"name": "traced"}],
						"else": [{"name": "traced", "arguments": [{"kind": "bool", "bool": false}]}]
					}
				]
			}
		]
	}`)

	api, spec, err := fixture.Decode(data)
	require.NoError(t, err)

	require.Len(t, api.Functions, 1)
	fn := api.Functions[0]
	assert.Equal(t, "resize", fn.Name)
	require.Len(t, fn.Arguments, 2)
	assert.Equal(t, "buf", fn.Arguments[0].Name)
	assert.NotNil(t, fn.Arguments[0].Type.Pointee)

	require.Len(t, spec.Declarations, 2)
	free, ok := spec.Declarations[0].(*ast.Descriptor)
	require.True(t, ok)
	assert.Equal(t, "module_name", free.Name.Name)

	rule, ok := spec.Declarations[1].(*ast.Rule)
	require.True(t, ok)
	assert.Equal(t, 5, rule.Priority)
	require.Len(t, rule.ResultDescriptors, 2)
	_, ok = rule.ResultDescriptors[1].(*ast.ConditionalDescriptor)
	assert.True(t, ok)
}

func TestDecodeBuildsConstNonConstTwin(t *testing.T) {
	data := []byte(`{
		"model": {
			"functions": [
				{
					"name": "describe",
					"return": {"name": "void"},
					"arguments": [
						{"name": "label", "type": {"name": "char", "const": true}}
					]
				}
			]
		},
		"spec": []
	}`)

	api, _, err := fixture.Decode(data)
	require.NoError(t, err)

	arg := api.Functions[0].Arguments[0]
	assert.True(t, arg.Type.IsConst)
	require.NotNil(t, arg.Type.NonConst)
	assert.False(t, arg.Type.NonConst.IsConst)
}

func TestDecodeBuildsStructFields(t *testing.T) {
	data := []byte(`{
		"model": {
			"functions": [
				{
					"name": "make_point",
					"return": {"name": "point_t", "fields": {
						"x": {"name": "int"},
						"y": {"name": "int"}
					}}
				}
			]
		},
		"spec": []
	}`)

	api, _, err := fixture.Decode(data)
	require.NoError(t, err)

	ret := api.Functions[0].ReturnValue
	require.Len(t, ret.Fields, 2)
	assert.Equal(t, "int", ret.Fields["x"].Name)
}

func TestDecodeCodeValueWithInterpolation(t *testing.T) {
	data := []byte(`{
		"model": {"functions": [{"name": "f", "return": {"name": "void"}}]},
		"spec": [
			{"name": "note", "arguments": [{"kind": "code", "code": [
				{"text": "free("}, {"var": "buf"}, {"text": ")"}
			]}]}
		]
	}`)

	_, spec, err := fixture.Decode(data)
	require.NoError(t, err)

	d := spec.Declarations[0].(*ast.Descriptor)
	code := d.Arguments[0].(ast.Code)
	assert.Equal(t, "free(${buf})", code.String()[3:len(code.String())-3])
}

func TestDecodeRejectsConditionalAsBareDeclaration(t *testing.T) {
	data := []byte(`{
		"model": {"functions": []},
		"spec": [
			{"kind": "cond", "predicate": {"kind": "bool", "bool": true}, "then": [], "else": []}
		]
	}`)

	_, _, err := fixture.Decode(data)
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownValueKind(t *testing.T) {
	data := []byte(`{
		"model": {"functions": []},
		"spec": [
			{"name": "x", "arguments": [{"kind": "mystery"}]}
		]
	}`)

	_, _, err := fixture.Decode(data)
	assert.Error(t, err)
}
