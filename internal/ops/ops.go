// Package ops bundles the built-in operator kinds: literal row sources,
// per-record filters and projections, computed fields, unions, and limits.
// Each handler is a pure function from input records to output records; the
// executor owns scheduling and I/O.
package ops

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/registry"
	"github.com/vk/flowsnapgo/internal/tap"
)

// coreModule registers the built-in operator kinds.
type coreModule struct{}

// Core returns the module providing the built-in operators.
func Core() registry.Module {
	return coreModule{}
}

func (coreModule) Register(r *registry.Registry) {
	r.Register("source", runSource)
	r.Register("inline", runInline)
	r.Register("filter", runFilter)
	r.Register("project", runProject)
	r.Register("compute", runCompute)
	r.Register("union", runUnion)
	r.Register("limit", runLimit)
}

// runSource only fires when a source-kind head node has no tap bound in the
// flow being executed; bound source nodes are satisfied by the executor
// before any handler is consulted.
func runSource(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	return nil, fmt.Errorf("source node has no tap bound in this flow")
}

// runInline materializes the literal rows from the node's params.
func runInline(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	rows, ok := p.Attr("rows")
	if !ok {
		return nil, fmt.Errorf("inline: missing required parameter %q", "rows")
	}
	if !rows.CanIterateElements() {
		return nil, fmt.Errorf("inline: rows must be a list of objects")
	}
	var out []tap.Record
	for it := rows.ElementIterator(); it.Next(); {
		_, row := it.Element()
		if !row.Type().IsObjectType() {
			return nil, fmt.Errorf("inline: rows must contain only objects, got %s", row.Type().FriendlyName())
		}
		out = append(out, row)
	}
	return out, nil
}

// runFilter keeps the records for which the `where` expression is true.
func runFilter(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("filter: expected exactly one input, got %d", len(inputs))
	}
	src, err := p.String("where")
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	expr, err := compileExpr(src)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	var out []tap.Record
	for i, rec := range inputs[0] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := evalWithRecord(expr, rec)
		if err != nil {
			return nil, fmt.Errorf("filter: record %d: %w", i, err)
		}
		if v.Type() != cty.Bool {
			return nil, fmt.Errorf("filter: record %d: where expression produced %s, want bool", i, v.Type().FriendlyName())
		}
		if v.True() {
			out = append(out, rec)
		}
	}
	return out, nil
}

// runProject keeps only the named fields of each record.
func runProject(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("project: expected exactly one input, got %d", len(inputs))
	}
	fields, err := p.StringList("fields")
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("project: fields must not be empty")
	}

	out := make([]tap.Record, 0, len(inputs[0]))
	for i, rec := range inputs[0] {
		attrs := make(map[string]cty.Value, len(fields))
		for _, name := range fields {
			if !rec.Type().HasAttribute(name) {
				return nil, fmt.Errorf("project: record %d has no field %q", i, name)
			}
			attrs[name] = rec.GetAttr(name)
		}
		out = append(out, cty.ObjectVal(attrs))
	}
	return out, nil
}

// runCompute adds one field, evaluated per record from the `expr` parameter.
func runCompute(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("compute: expected exactly one input, got %d", len(inputs))
	}
	field, err := p.String("field")
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	src, err := p.String("expr")
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	expr, err := compileExpr(src)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}

	out := make([]tap.Record, 0, len(inputs[0]))
	for i, rec := range inputs[0] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := evalWithRecord(expr, rec)
		if err != nil {
			return nil, fmt.Errorf("compute: record %d: %w", i, err)
		}
		attrs := rec.AsValueMap()
		attrs[field] = v
		out = append(out, cty.ObjectVal(attrs))
	}
	return out, nil
}

// runUnion concatenates its inputs in input order.
func runUnion(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("union: expected at least one input")
	}
	var out []tap.Record
	for _, in := range inputs {
		out = append(out, in...)
	}
	return out, nil
}

// runLimit passes through at most `count` records.
func runLimit(ctx context.Context, p registry.Params, inputs ...[]tap.Record) ([]tap.Record, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("limit: expected exactly one input, got %d", len(inputs))
	}
	count, err := p.Int("count")
	if err != nil {
		return nil, fmt.Errorf("limit: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("limit: count must be non-negative, got %d", count)
	}
	if len(inputs[0]) <= count {
		return inputs[0], nil
	}
	return inputs[0][:count], nil
}
