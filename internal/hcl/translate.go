package hcl

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/config"
	"github.com/vk/flowsnapgo/internal/schema"
)

// translateSource converts the HCL-specific source schema into the agnostic model.
func translateSource(s *schema.Source) *config.Source {
	return &config.Source{
		ID:     s.ID,
		Path:   s.Path,
		Format: s.Format,
	}
}

// translateOp converts the HCL-specific op schema into the agnostic model.
// The op's remaining attributes become one evaluated cty object; per-record
// expressions (filter's `where`, compute's `expr`) stay plain strings and
// are compiled by the operator handler at run time.
func translateOp(o *schema.Op) (*config.Op, error) {
	params := cty.EmptyObjectVal
	if o.Params != nil {
		attrs, diags := o.Params.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("op %s.%s: %s", o.Kind, o.Name, diags.Error())
		}
		if len(attrs) > 0 {
			vals := make(map[string]cty.Value, len(attrs))
			names := make([]string, 0, len(attrs))
			for name := range attrs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				v, diags := attrs[name].Expr.Value(nil)
				if diags.HasErrors() {
					return nil, fmt.Errorf("op %s.%s: attribute %q: %s", o.Kind, o.Name, name, diags.Error())
				}
				vals[name] = v
			}
			params = cty.ObjectVal(vals)
		}
	}
	return &config.Op{
		Kind:   o.Kind,
		Name:   o.Name,
		Inputs: o.Inputs,
		Params: params,
	}, nil
}

// translateSink converts the HCL-specific sink schema into the agnostic model.
func translateSink(s *schema.Sink) *config.Sink {
	return &config.Sink{
		ID:   s.ID,
		Node: s.Node,
		Path: s.Path,
	}
}
