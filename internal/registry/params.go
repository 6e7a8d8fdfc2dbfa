package registry

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Params wraps a node's opaque cty parameter value with typed accessors.
// A null or unknown value behaves like an empty parameter set.
type Params struct {
	v cty.Value
}

// NewParams wraps v. v should be an object value or cty.NilVal.
func NewParams(v cty.Value) Params {
	return Params{v: v}
}

// Attr returns the raw attribute value, if present and non-null.
func (p Params) Attr(name string) (cty.Value, bool) {
	if p.v.IsNull() || !p.v.IsKnown() || !p.v.Type().IsObjectType() {
		return cty.NilVal, false
	}
	if !p.v.Type().HasAttribute(name) {
		return cty.NilVal, false
	}
	v := p.v.GetAttr(name)
	if v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// String returns the named attribute as a string.
func (p Params) String(name string) (string, error) {
	v, ok := p.Attr(name)
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	if v.Type() != cty.String {
		return "", fmt.Errorf("parameter %q must be a string, got %s", name, v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

// Int returns the named attribute as an int.
func (p Params) Int(name string) (int, error) {
	v, ok := p.Attr(name)
	if !ok {
		return 0, fmt.Errorf("missing required parameter %q", name)
	}
	var n int
	if err := gocty.FromCtyValue(v, &n); err != nil {
		return 0, fmt.Errorf("parameter %q: %w", name, err)
	}
	return n, nil
}

// StringList returns the named attribute as a list of strings.
func (p Params) StringList(name string) ([]string, error) {
	v, ok := p.Attr(name)
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q", name)
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("parameter %q must be a list of strings", name)
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.Type() != cty.String {
			return nil, fmt.Errorf("parameter %q must contain only strings", name)
		}
		out = append(out, ev.AsString())
	}
	return out, nil
}

// Value returns the underlying parameter value.
func (p Params) Value() cty.Value { return p.v }
