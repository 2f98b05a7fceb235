package widgets

import "github.com/nnorbert/codedam/pkg/api"

// Catalog lists every built-in widget type, grouped by category.
func Catalog() []api.WidgetType {
	return []api.WidgetType{
		{Descriptor: LiteralDescriptor, New: func(d api.Deps) api.Widget { return newLiteral(d) }},
		{Descriptor: ArithmeticDescriptor, New: func(d api.Deps) api.Widget { return newArithmetic(d) }},

		{Descriptor: ConcatDescriptor, New: func(d api.Deps) api.Widget { return newConcat(d) }},
		{Descriptor: TextTransformDescriptor, New: func(d api.Deps) api.Widget { return newTextTransform(d) }},

		{Descriptor: CompareDescriptor, New: func(d api.Deps) api.Widget { return newCompare(d) }},
		{Descriptor: LogicDescriptor, New: func(d api.Deps) api.Widget { return newLogic(d) }},

		{Descriptor: UseVariableDescriptor, New: func(d api.Deps) api.Widget { return newUseVariable(d) }},
		{Descriptor: CreateVariableDescriptor, New: func(d api.Deps) api.Widget { return newCreateVariable(d, false) }},
		{Descriptor: CreateConstantDescriptor, New: func(d api.Deps) api.Widget { return newCreateVariable(d, true) }},
		{Descriptor: SetVariableDescriptor, New: func(d api.Deps) api.Widget { return newSetVariable(d) }},

		{Descriptor: IfDescriptor, New: func(d api.Deps) api.Widget { return newIf(d) }},
		{Descriptor: RepeatDescriptor, New: func(d api.Deps) api.Widget { return newRepeat(d) }},

		{Descriptor: InputDescriptor, New: func(d api.Deps) api.Widget { return newInput(d) }},
		{Descriptor: AskDescriptor, New: func(d api.Deps) api.Widget { return newAsk(d) }},
		{Descriptor: PrintDescriptor, New: func(d api.Deps) api.Widget { return newPrint(d) }},
	}
}
