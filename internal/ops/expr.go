package ops

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/tap"
)

// compileExpr parses an operator's expression parameter. Expressions are
// carried as plain strings in node params so nodes stay serializable; they
// are compiled once per node execution, not once per record.
func compileExpr(src string) (hclsyntax.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<op-expr>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing expression %q: %s", src, diags.Error())
	}
	return expr, nil
}

// evalWithRecord evaluates expr with the record's fields as top-level
// variables, so `age > 30` refers to the record's "age" field.
func evalWithRecord(expr hclsyntax.Expression, rec tap.Record) (cty.Value, error) {
	evalCtx := &hcl.EvalContext{Variables: rec.AsValueMap()}
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluating expression: %s", diags.Error())
	}
	return v, nil
}
