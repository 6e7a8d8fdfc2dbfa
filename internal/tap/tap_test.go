package tap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func obj(attrs map[string]cty.Value) cty.Value { return cty.ObjectVal(attrs) }

func TestJSONLinesRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.jsonl")
	tp := JSONLines(p)

	in := []Record{
		obj(map[string]cty.Value{"name": cty.StringVal("ann"), "age": cty.NumberIntVal(34), "active": cty.True}),
		obj(map[string]cty.Value{"name": cty.StringVal("bob"), "age": cty.NumberIntVal(19), "active": cty.False}),
	}
	require.NoError(t, tp.WriteAll(context.Background(), in))

	out, err := tp.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.True(t, in[i].RawEquals(out[i]), "record %d changed across the round trip", i)
	}
}

func TestJSONLinesSkipsBlankLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(p, []byte("{\"a\":1}\n\n{\"a\":2}\n"), 0o644))

	out, err := JSONLines(p).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestJSONLinesRejectsNonObjects(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(p, []byte("[1,2,3]\n"), 0o644))

	_, err := JSONLines(p).ReadAll(context.Background())
	assert.ErrorContains(t, err, "not a JSON object")
}

func TestJSONLinesWriteRejectsNonObjectRecords(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.jsonl")
	err := JSONLines(p).WriteAll(context.Background(), []Record{cty.NumberIntVal(1)})
	assert.ErrorContains(t, err, "must be an object")
}

func TestJSONLinesMissingFile(t *testing.T) {
	_, err := JSONLines(filepath.Join(t.TempDir(), "absent.jsonl")).ReadAll(context.Background())
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.csv")
	tp := CSV(p)

	in := []Record{
		obj(map[string]cty.Value{"city": cty.StringVal("oslo"), "code": cty.StringVal("no")}),
		obj(map[string]cty.Value{"city": cty.StringVal("lima"), "code": cty.StringVal("pe")}),
	}
	require.NoError(t, tp.WriteAll(context.Background(), in))

	out, err := tp.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "oslo", out[0].GetAttr("city").AsString())
	assert.Equal(t, "pe", out[1].GetAttr("code").AsString())
}

func TestCSVWriteStringifiesPrimitives(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.csv")
	in := []Record{
		obj(map[string]cty.Value{"n": cty.NumberIntVal(7), "ok": cty.True, "s": cty.StringVal("x")}),
	}
	require.NoError(t, CSV(p).WriteAll(context.Background(), in))

	out, err := CSV(p).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "7", out[0].GetAttr("n").AsString())
	assert.Equal(t, "true", out[0].GetAttr("ok").AsString())
}

func TestCSVEmptyFileYieldsNoRecords(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	out, err := CSV(p).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestForPath(t *testing.T) {
	assert.IsType(t, &csvTap{}, ForPath("data/people.csv"))
	assert.IsType(t, &jsonLinesTap{}, ForPath("data/people.jsonl"))
	assert.IsType(t, &jsonLinesTap{}, ForPath("data/people.unknown"))
}

func TestFields(t *testing.T) {
	rec := obj(map[string]cty.Value{"b": cty.StringVal("2"), "a": cty.StringVal("1")})
	assert.Equal(t, []string{"a", "b"}, Fields(rec))
	assert.Nil(t, Fields(cty.NumberIntVal(1)))
}
