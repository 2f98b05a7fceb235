package programfile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

var statementBlocks = []hcl.BlockHeaderSchema{
	{Type: "variable", LabelNames: []string{"name"}},
	{Type: "constant", LabelNames: []string{"name"}},
	{Type: "set", LabelNames: []string{"name"}},
	{Type: "print"},
	{Type: "if"},
	{Type: "repeat"},
}

var (
	rootSchema = &hcl.BodySchema{
		Blocks: append([]hcl.BlockHeaderSchema{{Type: "settings"}}, statementBlocks...),
	}
	bodySchema = &hcl.BodySchema{Blocks: statementBlocks}

	valueSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "value"}},
	}
	ifSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "condition"}},
		Blocks:     []hcl.BlockHeaderSchema{{Type: "then"}, {Type: "else"}},
	}
	repeatSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "count"}},
		Blocks:     []hcl.BlockHeaderSchema{{Type: "body"}},
	}
)

type builder struct {
	ctx      context.Context
	prompter api.Prompter
	count    int
}

// statements places one widget per statement block into body, in order.
// Blocks that are not statements, such as settings, are skipped.
func (b *builder) statements(body api.Body, blocks hcl.Blocks) error {
	for _, block := range blocks {
		if block.Type == "settings" {
			continue
		}
		if err := b.statement(body, block); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) statement(body api.Body, block *hcl.Block) error {
	switch block.Type {
	case "variable", "constant":
		value, err := b.valueAttr(body, block)
		if err != nil {
			return err
		}
		create := widgets.NewCreateVariable
		if block.Type == "constant" {
			create = widgets.NewCreateConstant
		}
		return b.place(body, block, create(block.Labels[0], value))

	case "set":
		target, err := resolve(body, block.Labels[0], block.LabelRanges[0])
		if err != nil {
			return err
		}
		value, err := b.valueAttr(body, block)
		if err != nil {
			return err
		}
		return b.place(body, block, widgets.NewSetVariable(target, value))

	case "print":
		value, err := b.valueAttr(body, block)
		if err != nil {
			return err
		}
		return b.place(body, block, widgets.NewPrint(b.prompter, value))

	case "if":
		return b.ifStatement(body, block)

	case "repeat":
		return b.repeatStatement(body, block)
	}
	return fmt.Errorf("%s: unsupported block %q", block.DefRange, block.Type)
}

func (b *builder) ifStatement(body api.Body, block *hcl.Block) error {
	content, diags := block.Body.Content(ifSchema)
	if diags.HasErrors() {
		return diags
	}
	cond, err := b.optionalExpr(body, content.Attributes["condition"])
	if err != nil {
		return err
	}
	w := widgets.NewIf(cond)
	if err := b.place(body, block, w); err != nil {
		return err
	}

	for _, arm := range []struct {
		name string
		body api.Body
	}{{"then", w.Then()}, {"else", w.Else()}} {
		nested, diags := findUniqueBlock(content.Blocks, arm.name)
		if diags.HasErrors() {
			return diags
		}
		if nested == nil {
			continue
		}
		if err := b.nestedBody(arm.body, nested); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) repeatStatement(body api.Body, block *hcl.Block) error {
	content, diags := block.Body.Content(repeatSchema)
	if diags.HasErrors() {
		return diags
	}
	count, err := b.optionalExpr(body, content.Attributes["count"])
	if err != nil {
		return err
	}
	w := widgets.NewRepeat(count)
	if err := b.place(body, block, w); err != nil {
		return err
	}

	nested, diags := findUniqueBlock(content.Blocks, "body")
	if diags.HasErrors() {
		return diags
	}
	if nested == nil {
		return nil
	}
	return b.nestedBody(w.Body(), nested)
}

func (b *builder) nestedBody(body api.Body, block *hcl.Block) error {
	content, diags := block.Body.Content(bodySchema)
	if diags.HasErrors() {
		return diags
	}
	return b.statements(body, content.Blocks)
}

func (b *builder) valueAttr(body api.Body, block *hcl.Block) (api.Widget, error) {
	content, diags := block.Body.Content(valueSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	return b.optionalExpr(body, content.Attributes["value"])
}

// optionalExpr translates attr, leaving the slot empty when the
// attribute is absent.
func (b *builder) optionalExpr(body api.Body, attr *hcl.Attribute) (api.Widget, error) {
	if attr == nil {
		return nil, nil
	}
	return b.expr(body, attr.Expr)
}

func (b *builder) place(body api.Body, block *hcl.Block, w api.Widget) error {
	if err := body.Place(b.ctx, w, "", api.PositionEnd); err != nil {
		return fmt.Errorf("%s: %w", block.DefRange, err)
	}
	b.count++
	return nil
}

// resolve finds the innermost binding called name visible from body.
func resolve(body api.Body, name string, rng hcl.Range) (*api.Binding, error) {
	stack := body.VariableStack()
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Name() == name {
			return stack[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w: %s", rng, api.ErrUnknownVariable, name)
}
