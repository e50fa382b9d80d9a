package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapis-lang/lapis/internal/config"
)

const sampleFixture = `{
	"model": {
		"functions": [
			{
				"name": "resize",
				"return": {"name": "int"},
				"arguments": [
					{"name": "buf", "type": {"name": "void"}},
					{"name": "n", "type": {"name": "size_t"}}
				]
			}
		]
	},
	"spec": [
		{
			"match": {"kind": "block", "children": [
				{"name": "function", "arguments": [{"kind": "string", "regex": "resize"}]}
			]},
			"result": [
				{"name": "synchrony", "arguments": [{"kind": "string", "text": "async"}]}
			]
		}
	]
}`

const sampleSchema = "function:\n  - synchrony\n"

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestResolveOneRequiresExactlyOneMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.fixture.json", sampleFixture)

	path, err := resolveOne(filepath.Join(dir, "*.fixture.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.fixture.json"), path)

	_, err = resolveOne(filepath.Join(dir, "*.missing.json"), nil)
	assert.Error(t, err)

	writeFile(t, dir, "b.fixture.json", sampleFixture)
	_, err = resolveOne(filepath.Join(dir, "*.fixture.json"), nil)
	assert.Error(t, err, "two matches should be rejected as ambiguous")
}

func TestResolveOneSearchesIncludePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.fixture.json", sampleFixture)

	path, err := resolveOne("shared.fixture.json", []string{t.TempDir(), dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shared.fixture.json"), path)
}

func TestRunFixtureAppliesRuleAndReportsNoError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resize.fixture.json", sampleFixture)

	err := runFixture(context.Background(), path, "", false, nil)
	require.NoError(t, err)
}

func TestRunFixtureHonorsSchemaGuard(t *testing.T) {
	dir := t.TempDir()
	fixturePath := writeFile(t, dir, "resize.fixture.json", sampleFixture)
	schemaPath := writeFile(t, dir, "schema.yaml", sampleSchema)

	err := runFixture(context.Background(), fixturePath, schemaPath, true, nil)
	require.NoError(t, err)
}

func TestRunFixtureMissingFileReturnsError(t *testing.T) {
	err := runFixture(context.Background(), "/no/such/fixture.json", "", false, nil)
	assert.Error(t, err)
}

func TestNewRootCmdRunRequiresFixtureFlag(t *testing.T) {
	root := newRootCmd(&config.Config{})
	root.SetArgs([]string{"run"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()
	assert.Error(t, err, "the fixture flag is required on run")
}

func TestNewRootCmdRunExecutesAgainstFixture(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resize.fixture.json", sampleFixture)

	root := newRootCmd(&config.Config{})
	root.SetArgs([]string{"run", "--fixture", path})
	var out bytes.Buffer
	root.SetOut(&out)

	err := root.Execute()
	assert.NoError(t, err)
}

func TestNewRootCmdSchemaCommandRequiresSchemaFlag(t *testing.T) {
	root := newRootCmd(&config.Config{})
	root.SetArgs([]string{"schema"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()
	assert.Error(t, err)
}
