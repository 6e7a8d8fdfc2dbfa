package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/registry"
	"github.com/vk/flowsnapgo/internal/tap"
)

func obj(attrs map[string]cty.Value) cty.Value { return cty.ObjectVal(attrs) }

func params(kv map[string]cty.Value) registry.Params {
	return registry.NewParams(cty.ObjectVal(kv))
}

func people() []tap.Record {
	return []tap.Record{
		obj(map[string]cty.Value{"name": cty.StringVal("ann"), "age": cty.NumberIntVal(34)}),
		obj(map[string]cty.Value{"name": cty.StringVal("bob"), "age": cty.NumberIntVal(19)}),
		obj(map[string]cty.Value{"name": cty.StringVal("cid"), "age": cty.NumberIntVal(28)}),
	}
}

func TestCoreRegistersAllKinds(t *testing.T) {
	reg := registry.New()
	Core().Register(reg)
	assert.Equal(t, []string{"compute", "filter", "inline", "limit", "project", "source", "union"}, reg.Kinds())
}

func TestRunInline(t *testing.T) {
	rows := cty.TupleVal([]cty.Value{
		obj(map[string]cty.Value{"x": cty.NumberIntVal(1)}),
		obj(map[string]cty.Value{"x": cty.NumberIntVal(2)}),
	})
	out, err := runInline(context.Background(), params(map[string]cty.Value{"rows": rows}))
	require.NoError(t, err)
	assert.Len(t, out, 2)

	t.Run("missing rows", func(t *testing.T) {
		_, err := runInline(context.Background(), registry.NewParams(cty.EmptyObjectVal))
		assert.ErrorContains(t, err, "missing required parameter")
	})

	t.Run("non-object row", func(t *testing.T) {
		bad := cty.TupleVal([]cty.Value{cty.NumberIntVal(3)})
		_, err := runInline(context.Background(), params(map[string]cty.Value{"rows": bad}))
		assert.ErrorContains(t, err, "only objects")
	})
}

func TestRunFilter(t *testing.T) {
	p := params(map[string]cty.Value{"where": cty.StringVal("age >= 30")})
	out, err := runFilter(context.Background(), p, people())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ann", out[0].GetAttr("name").AsString())

	t.Run("non-bool expression", func(t *testing.T) {
		p := params(map[string]cty.Value{"where": cty.StringVal("age + 1")})
		_, err := runFilter(context.Background(), p, people())
		assert.ErrorContains(t, err, "want bool")
	})

	t.Run("unknown field", func(t *testing.T) {
		p := params(map[string]cty.Value{"where": cty.StringVal("salary > 0")})
		_, err := runFilter(context.Background(), p, people())
		assert.Error(t, err)
	})

	t.Run("wrong input count", func(t *testing.T) {
		p := params(map[string]cty.Value{"where": cty.StringVal("true")})
		_, err := runFilter(context.Background(), p, people(), people())
		assert.ErrorContains(t, err, "exactly one input")
	})
}

func TestRunProject(t *testing.T) {
	p := params(map[string]cty.Value{"fields": cty.ListVal([]cty.Value{cty.StringVal("name")})})
	out, err := runProject(context.Background(), p, people())
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"name"}, tap.Fields(out[0]))

	t.Run("unknown field", func(t *testing.T) {
		p := params(map[string]cty.Value{"fields": cty.ListVal([]cty.Value{cty.StringVal("salary")})})
		_, err := runProject(context.Background(), p, people())
		assert.ErrorContains(t, err, `no field "salary"`)
	})

	t.Run("empty field list", func(t *testing.T) {
		p := params(map[string]cty.Value{"fields": cty.ListValEmpty(cty.String)})
		_, err := runProject(context.Background(), p, people())
		assert.ErrorContains(t, err, "must not be empty")
	})
}

func TestRunCompute(t *testing.T) {
	p := params(map[string]cty.Value{
		"field": cty.StringVal("next_age"),
		"expr":  cty.StringVal("age + 1"),
	})
	out, err := runCompute(context.Background(), p, people())
	require.NoError(t, err)
	require.Len(t, out, 3)
	v := out[0].GetAttr("next_age")
	n, _ := v.AsBigFloat().Int64()
	assert.Equal(t, int64(35), n)
	// Existing fields are preserved.
	assert.Equal(t, "ann", out[0].GetAttr("name").AsString())
}

func TestRunUnion(t *testing.T) {
	out, err := runUnion(context.Background(), registry.NewParams(cty.EmptyObjectVal), people()[:1], people()[1:])
	require.NoError(t, err)
	assert.Len(t, out, 3)

	t.Run("no inputs", func(t *testing.T) {
		_, err := runUnion(context.Background(), registry.NewParams(cty.EmptyObjectVal))
		assert.ErrorContains(t, err, "at least one input")
	})
}

func TestRunLimit(t *testing.T) {
	p := params(map[string]cty.Value{"count": cty.NumberIntVal(2)})
	out, err := runLimit(context.Background(), p, people())
	require.NoError(t, err)
	assert.Len(t, out, 2)

	t.Run("count above input length", func(t *testing.T) {
		p := params(map[string]cty.Value{"count": cty.NumberIntVal(10)})
		out, err := runLimit(context.Background(), p, people())
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	t.Run("negative count", func(t *testing.T) {
		p := params(map[string]cty.Value{"count": cty.NumberIntVal(-1)})
		_, err := runLimit(context.Background(), p, people())
		assert.ErrorContains(t, err, "non-negative")
	})
}

func TestRunSource(t *testing.T) {
	_, err := runSource(context.Background(), registry.NewParams(cty.NilVal))
	assert.ErrorContains(t, err, "no tap bound")
}

func TestCompileExprRejectsGarbage(t *testing.T) {
	_, err := compileExpr("age >>> 1")
	assert.Error(t, err)
}
