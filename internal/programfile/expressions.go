package programfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

var arithmeticOps = map[*hclsyntax.Operation]widgets.ArithmeticOp{
	hclsyntax.OpAdd:      widgets.OpAdd,
	hclsyntax.OpSubtract: widgets.OpSub,
	hclsyntax.OpMultiply: widgets.OpMul,
	hclsyntax.OpDivide:   widgets.OpDiv,
	hclsyntax.OpModulo:   widgets.OpMod,
}

var compareOps = map[*hclsyntax.Operation]widgets.CompareOp{
	hclsyntax.OpEqual:              widgets.OpEq,
	hclsyntax.OpNotEqual:           widgets.OpNe,
	hclsyntax.OpLessThan:           widgets.OpLt,
	hclsyntax.OpLessThanOrEqual:    widgets.OpLe,
	hclsyntax.OpGreaterThan:        widgets.OpGt,
	hclsyntax.OpGreaterThanOrEqual: widgets.OpGe,
}

var logicOps = map[*hclsyntax.Operation]widgets.LogicOp{
	hclsyntax.OpLogicalAnd: widgets.OpAnd,
	hclsyntax.OpLogicalOr:  widgets.OpOr,
}

var textModes = map[string]widgets.TextMode{
	"upper": widgets.ModeUpper,
	"lower": widgets.ModeLower,
	"title": widgets.ModeTitle,
}

// expr translates an HCL expression into an expression widget whose
// variable references are resolved from scope.
func (b *builder) expr(scope api.Body, e hcl.Expression) (api.Widget, error) {
	switch x := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		v, err := ctyToValue(x.Val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", x.SrcRange, err)
		}
		return widgets.NewLiteral(v), nil

	case *hclsyntax.TemplateExpr:
		return b.template(scope, x)

	case *hclsyntax.TemplateWrapExpr:
		return b.expr(scope, x.Wrapped)

	case *hclsyntax.ParenthesesExpr:
		return b.expr(scope, x.Expression)

	case *hclsyntax.ScopeTraversalExpr:
		if len(x.Traversal) != 1 {
			return nil, fmt.Errorf("%s: only plain variable names can be referenced", x.SrcRange)
		}
		binding, err := resolve(scope, x.Traversal.RootName(), x.SrcRange)
		if err != nil {
			return nil, err
		}
		return widgets.NewUseVariable(binding), nil

	case *hclsyntax.BinaryOpExpr:
		return b.binary(scope, x)

	case *hclsyntax.UnaryOpExpr:
		if lit, ok := x.Val.(*hclsyntax.LiteralValueExpr); ok && x.Op == hclsyntax.OpNegate && lit.Val.Type() == cty.Number {
			return b.expr(scope, &hclsyntax.LiteralValueExpr{Val: lit.Val.Negate(), SrcRange: x.SrcRange})
		}
		operand, err := b.expr(scope, x.Val)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case hclsyntax.OpLogicalNot:
			return widgets.NewNot(operand), nil
		case hclsyntax.OpNegate:
			return widgets.NewArithmetic(widgets.OpSub, widgets.NewLiteral(0.0), operand), nil
		}
		return nil, fmt.Errorf("%s: unsupported unary operator", x.SrcRange)

	case *hclsyntax.FunctionCallExpr:
		return b.call(scope, x)
	}
	return nil, fmt.Errorf("%s: unsupported expression", e.Range())
}

func (b *builder) binary(scope api.Body, x *hclsyntax.BinaryOpExpr) (api.Widget, error) {
	left, err := b.expr(scope, x.LHS)
	if err != nil {
		return nil, err
	}
	right, err := b.expr(scope, x.RHS)
	if err != nil {
		return nil, err
	}
	if op, ok := arithmeticOps[x.Op]; ok {
		return widgets.NewArithmetic(op, left, right), nil
	}
	if op, ok := compareOps[x.Op]; ok {
		return widgets.NewCompare(op, left, right), nil
	}
	if op, ok := logicOps[x.Op]; ok {
		return widgets.NewLogic(op, left, right), nil
	}
	return nil, fmt.Errorf("%s: unsupported operator", x.SrcRange)
}

// template folds the parts of a string template into concat widgets.
func (b *builder) template(scope api.Body, x *hclsyntax.TemplateExpr) (api.Widget, error) {
	if len(x.Parts) == 0 {
		return widgets.NewLiteral(""), nil
	}
	var out api.Widget
	for _, part := range x.Parts {
		w, err := b.expr(scope, part)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = w
			continue
		}
		out = widgets.NewConcat(out, w)
	}
	return out, nil
}

func (b *builder) call(scope api.Body, x *hclsyntax.FunctionCallExpr) (api.Widget, error) {
	switch x.Name {
	case "input", "ask":
		msg, err := messageArg(x)
		if err != nil {
			return nil, err
		}
		if x.Name == "ask" {
			return widgets.NewAsk(b.prompter, msg), nil
		}
		return widgets.NewInput(b.prompter, msg), nil
	}

	mode, ok := textModes[x.Name]
	if !ok {
		return nil, fmt.Errorf("%s: unknown function %q", x.NameRange, x.Name)
	}
	if len(x.Args) != 1 {
		return nil, fmt.Errorf("%s: %s expects one argument", x.SrcRange, x.Name)
	}
	arg, err := b.expr(scope, x.Args[0])
	if err != nil {
		return nil, err
	}
	return widgets.NewTextTransform(mode, arg), nil
}

// messageArg returns the optional constant string argument of a prompt
// function.
func messageArg(x *hclsyntax.FunctionCallExpr) (string, error) {
	switch len(x.Args) {
	case 0:
		return "", nil
	case 1:
	default:
		return "", fmt.Errorf("%s: %s expects at most one argument", x.SrcRange, x.Name)
	}
	v, diags := x.Args[0].Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("%s: %s message must be a constant: %w", x.SrcRange, x.Name, diags)
	}
	if v.IsNull() || v.Type() != cty.String {
		return "", fmt.Errorf("%s: %s message must be a string", x.SrcRange, x.Name)
	}
	return v.AsString(), nil
}

// ctyToValue converts a literal into a runtime value.
func ctyToValue(v cty.Value) (api.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil
	case cty.Bool:
		return v.True(), nil
	}
	return nil, fmt.Errorf("unsupported literal of type %s", v.Type().FriendlyName())
}
