package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/tap"
)

// stubTap is a minimal tap for binding tests.
type stubTap struct {
	loc string
}

func (s *stubTap) Location() string                                    { return s.loc }
func (s *stubTap) ReadAll(ctx context.Context) ([]tap.Record, error)  { return nil, nil }
func (s *stubTap) WriteAll(ctx context.Context, r []tap.Record) error { return nil }

func TestNewNode(t *testing.T) {
	a := NewNode("source", "a", cty.NilVal)
	b := NewNode("filter", "b", cty.ObjectVal(map[string]cty.Value{"where": cty.StringVal("x > 1")}), a)

	assert.Equal(t, "source", a.Kind())
	assert.Equal(t, "a", a.Name())
	assert.True(t, a.IsHead())
	assert.False(t, b.IsHead())
	require.Len(t, b.Upstream(), 1)
	assert.Same(t, a, b.Upstream()[0])
}

func TestNodeIdentityIsReferential(t *testing.T) {
	a1 := NewNode("source", "a", cty.NilVal)
	a2 := NewNode("source", "a", cty.NilVal)

	f := New()
	require.NoError(t, f.AddNode(a1))
	assert.True(t, f.Contains(a1))
	assert.False(t, f.Contains(a2), "structurally identical nodes must stay distinct")
}

func TestNodeUpstreamIsACopy(t *testing.T) {
	a := NewNode("source", "a", cty.NilVal)
	b := NewNode("source", "b", cty.NilVal)
	c := NewNode("union", "c", cty.NilVal, a, b)

	got := c.Upstream()
	got[0] = nil
	require.Len(t, c.Upstream(), 2)
	assert.Same(t, a, c.Upstream()[0], "mutating the returned slice must not alter the node")
}

func TestAddNodeRegistersLineage(t *testing.T) {
	a := NewNode("source", "a", cty.NilVal)
	b := NewNode("filter", "b", cty.NilVal, a)
	c := NewNode("limit", "c", cty.NilVal, b)

	f := New()
	require.NoError(t, f.AddNode(c))

	assert.True(t, f.Contains(a))
	assert.True(t, f.Contains(b))
	assert.True(t, f.Contains(c))
	assert.Equal(t, 3, f.Len())

	// Idempotent.
	require.NoError(t, f.AddNode(c))
	assert.Equal(t, 3, f.Len())
}

func TestAddNodeNil(t *testing.T) {
	f := New()
	assert.Error(t, f.AddNode(nil))
}

func TestBindSource(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		f := New()
		entry := NewNode("source", "people", cty.NilVal)
		require.NoError(t, f.AddNode(entry))

		st := &stubTap{loc: "people.csv"}
		require.NoError(t, f.BindSource("people", st, entry))

		b, ok := f.Source("people")
		require.True(t, ok)
		assert.Same(t, entry, b.Entry)
		assert.Same(t, tap.Tap(st), b.Tap)
	})

	t.Run("entry must be a member", func(t *testing.T) {
		f := New()
		outsider := NewNode("source", "x", cty.NilVal)
		err := f.BindSource("x", &stubTap{loc: "x.csv"}, outsider)
		assert.ErrorContains(t, err, "not part of this flow")
	})

	t.Run("nil tap", func(t *testing.T) {
		f := New()
		entry := NewNode("source", "x", cty.NilVal)
		require.NoError(t, f.AddNode(entry))
		assert.ErrorContains(t, f.BindSource("x", nil, entry), "nil tap")
	})
}

func TestBindSink(t *testing.T) {
	f := New()
	n := NewNode("limit", "top", cty.NilVal)
	require.NoError(t, f.AddNode(n))

	st := &stubTap{loc: "out.jsonl"}
	require.NoError(t, f.BindSink("out", st, n))

	b, ok := f.Sink("out")
	require.True(t, ok)
	assert.Same(t, n, b.Node)

	outsider := NewNode("limit", "other", cty.NilVal)
	assert.ErrorContains(t, f.BindSink("bad", st, outsider), "not part of this flow")
}

func TestSourcesForReturnsEveryID(t *testing.T) {
	f := New()
	entry := NewNode("source", "shared", cty.NilVal)
	require.NoError(t, f.AddNode(entry))

	shared := &stubTap{loc: "shared.csv"}
	require.NoError(t, f.BindSource("alpha", shared, entry))
	require.NoError(t, f.BindSource("beta", shared, entry))

	got := f.SourcesFor(entry)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].ID)
	assert.Equal(t, "beta", got[1].ID)
}

func TestSinksAndSourcesAreOrdered(t *testing.T) {
	f := New()
	n := NewNode("inline", "n", cty.NilVal)
	require.NoError(t, f.AddNode(n))
	require.NoError(t, f.BindSink("zz", &stubTap{loc: "z"}, n))
	require.NoError(t, f.BindSink("aa", &stubTap{loc: "a"}, n))

	sinks := f.Sinks()
	require.Len(t, sinks, 2)
	assert.Equal(t, "aa", sinks[0].ID)
	assert.Equal(t, "zz", sinks[1].ID)
}
