package diagnostic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapis-lang/lapis/internal/diagnostic"
	"github.com/lapis-lang/lapis/model"
)

func TestErrorMessageIncludesEntity(t *testing.T) {
	fn := model.NewFunction("resize", model.NewType("void"))
	err := diagnostic.New(diagnostic.LookupFailure, fn, "no argument named %q", "missing")

	assert.Contains(t, err.Error(), string(diagnostic.LookupFailure))
	assert.Contains(t, err.Error(), "no argument named \"missing\"")
	assert.Contains(t, err.Error(), "Function(resize)")
}

func TestWrapUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := diagnostic.Wrap(diagnostic.TypeMismatch, nil, inner, "evaluating")

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "boom")
}

func TestRenderIncludesKind(t *testing.T) {
	err := diagnostic.New(diagnostic.SchemaViolation, nil, "bad write")
	assert.Contains(t, diagnostic.Render(err), string(diagnostic.SchemaViolation))
}

func TestAnnotationDiffEmptyWhenUnchanged(t *testing.T) {
	fn := model.NewFunction("f", model.NewType("void"))
	bag := map[string]any{"synchrony": "async"}

	diff, err := diagnostic.AnnotationDiff(fn, bag, bag)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestAnnotationDiffShowsChange(t *testing.T) {
	fn := model.NewFunction("f", model.NewType("void"))
	before := map[string]any{"synchrony": "sync"}
	after := map[string]any{"synchrony": "async"}

	diff, err := diagnostic.AnnotationDiff(fn, before, after)
	require.NoError(t, err)
	assert.Contains(t, diff, "synchrony=sync")
	assert.Contains(t, diff, "synchrony=async")
}
