package widgets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nnorbert/codedam/pkg/api"
)

// Slot names.
const (
	SlotLeft      = "left"
	SlotRight     = "right"
	SlotValue     = "value"
	SlotCondition = "condition"
	SlotCount     = "count"
)

var (
	LiteralDescriptor       = api.Descriptor{Tag: "literal", Category: api.CategoryMath, Role: api.RoleExpression, Label: "Value"}
	ArithmeticDescriptor    = api.Descriptor{Tag: "arithmetic", Category: api.CategoryMath, Role: api.RoleExpression, Label: "Arithmetic"}
	CompareDescriptor       = api.Descriptor{Tag: "compare", Category: api.CategoryLogic, Role: api.RoleExpression, Label: "Compare"}
	LogicDescriptor         = api.Descriptor{Tag: "logic", Category: api.CategoryLogic, Role: api.RoleExpression, Label: "Logic"}
	ConcatDescriptor        = api.Descriptor{Tag: "concat", Category: api.CategoryText, Role: api.RoleExpression, Label: "Join text"}
	TextTransformDescriptor = api.Descriptor{Tag: "text_transform", Category: api.CategoryText, Role: api.RoleExpression, Label: "Change case"}
	UseVariableDescriptor   = api.Descriptor{Tag: "use_variable", Category: api.CategoryVariables, Role: api.RoleExpression, Label: "Variable"}
	InputDescriptor         = api.Descriptor{Tag: "input", Category: api.CategoryIO, Role: api.RoleExpression, Label: "Ask for text"}
	AskDescriptor           = api.Descriptor{Tag: "ask", Category: api.CategoryIO, Role: api.RoleExpression, Label: "Ask yes/no"}
)

// ParseLiteral turns user-typed text into a value: numbers become
// float64, true/false become bool, anything else stays text.
func ParseLiteral(text string) api.Value {
	trimmed := strings.TrimSpace(text)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	return text
}

// Literal is a constant value.
type Literal struct {
	Base
	value      api.Value
	configured bool
}

func newLiteral(deps api.Deps) *Literal {
	l := &Literal{}
	l.Setup(LiteralDescriptor, deps)
	return l
}

// NewLiteral returns a literal holding v.
func NewLiteral(v api.Value) *Literal {
	l := newLiteral(api.Deps{})
	l.SetValue(v)
	return l
}

func (l *Literal) SetValue(v api.Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = normalize(v)
	l.configured = true
}

func (l *Literal) Value() api.Value {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

// InitWidget asks for the value unless one was set already.
func (l *Literal) InitWidget(ctx context.Context) error {
	l.mu.RLock()
	configured := l.configured
	l.mu.RUnlock()
	if configured {
		return nil
	}
	text, ok, err := l.Prompter().PromptText(ctx, api.PromptRequest{Title: "Value", Message: "Enter a value"})
	if err != nil {
		return fmt.Errorf("%w: %w", api.ErrPromptFailed, err)
	}
	if !ok {
		return api.ErrAbandoned
	}
	l.SetValue(ParseLiteral(text))
	return nil
}

func (l *Literal) Evaluate(ctx context.Context) (api.Value, error) { return l.Value(), nil }

func (l *Literal) Source() string {
	v := l.Value()
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return api.FormatValue(v)
}

// normalize maps Go integer kinds onto float64.
func normalize(v api.Value) api.Value {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// ArithmeticOp is one of + - * / %.
type ArithmeticOp string

const (
	OpAdd ArithmeticOp = "+"
	OpSub ArithmeticOp = "-"
	OpMul ArithmeticOp = "*"
	OpDiv ArithmeticOp = "/"
	OpMod ArithmeticOp = "%"
)

// Arithmetic combines two numbers. Empty slots and non-numeric operands
// evaluate to none; division or modulo by zero is a runtime error.
type Arithmetic struct {
	Base
	op ArithmeticOp
}

func newArithmetic(deps api.Deps) *Arithmetic {
	a := &Arithmetic{op: OpAdd}
	a.Setup(ArithmeticDescriptor, deps, SlotLeft, SlotRight)
	return a
}

func NewArithmetic(op ArithmeticOp, left, right api.Widget) *Arithmetic {
	a := newArithmetic(api.Deps{})
	a.op = op
	mustSlot(a, SlotLeft, left)
	mustSlot(a, SlotRight, right)
	return a
}

func (a *Arithmetic) Op() ArithmeticOp {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.op
}

func (a *Arithmetic) SetOp(op ArithmeticOp) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.op = op
}

func (a *Arithmetic) Evaluate(ctx context.Context) (api.Value, error) {
	l, r, err := evalPair(ctx, &a.Base)
	if err != nil || l == nil || r == nil {
		return nil, err
	}
	x, okx := api.ToNumber(l)
	y, oky := api.ToNumber(r)
	if !okx || !oky {
		return nil, nil
	}

	switch a.Op() {
	case OpAdd:
		return x + y, nil
	case OpSub:
		return x - y, nil
	case OpMul:
		return x * y, nil
	case OpDiv:
		if y == 0 {
			return nil, api.NewRuntimeError(a, api.ErrDivisionByZero)
		}
		return x / y, nil
	case OpMod:
		if y == 0 {
			return nil, api.NewRuntimeError(a, api.ErrDivisionByZero)
		}
		return math.Mod(x, y), nil
	default:
		return nil, nil
	}
}

func (a *Arithmetic) Source() string {
	return fmt.Sprintf("(%s %s %s)", slotSource(&a.Base, SlotLeft), a.Op(), slotSource(&a.Base, SlotRight))
}

// evalPair evaluates the left slot, then the right one.
func evalPair(ctx context.Context, b *Base) (api.Value, api.Value, error) {
	l, err := b.EvaluateSlot(ctx, SlotLeft)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.EvaluateSlot(ctx, SlotRight)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// CompareOp is one of == != < <= > >=.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Compare relates two values. Numbers compare numerically, anything else
// by its text form.
type Compare struct {
	Base
	op CompareOp
}

func newCompare(deps api.Deps) *Compare {
	c := &Compare{op: OpEq}
	c.Setup(CompareDescriptor, deps, SlotLeft, SlotRight)
	return c
}

func NewCompare(op CompareOp, left, right api.Widget) *Compare {
	c := newCompare(api.Deps{})
	c.op = op
	mustSlot(c, SlotLeft, left)
	mustSlot(c, SlotRight, right)
	return c
}

func (c *Compare) Op() CompareOp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.op
}

func (c *Compare) SetOp(op CompareOp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.op = op
}

func (c *Compare) Evaluate(ctx context.Context) (api.Value, error) {
	if c.Slot(SlotLeft) == nil || c.Slot(SlotRight) == nil {
		return nil, nil
	}
	l, r, err := evalPair(ctx, &c.Base)
	if err != nil {
		return nil, err
	}

	op := c.Op()
	switch op {
	case OpEq:
		return api.Equal(l, r), nil
	case OpNe:
		return !api.Equal(l, r), nil
	}

	var cmp int
	x, okx := api.ToNumber(l)
	y, oky := api.ToNumber(r)
	if okx && oky {
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(api.FormatValue(l), api.FormatValue(r))
	}

	switch op {
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	default:
		return nil, nil
	}
}

func (c *Compare) Source() string {
	return fmt.Sprintf("(%s %s %s)", slotSource(&c.Base, SlotLeft), c.Op(), slotSource(&c.Base, SlotRight))
}

// LogicOp is and, or or not.
type LogicOp string

const (
	OpAnd LogicOp = "and"
	OpOr  LogicOp = "or"
	OpNot LogicOp = "not"
)

// Logic combines truth values left to right with short-circuiting.
// OpNot only reads the left slot.
type Logic struct {
	Base
	op LogicOp
}

func newLogic(deps api.Deps) *Logic {
	l := &Logic{op: OpAnd}
	l.Setup(LogicDescriptor, deps, SlotLeft, SlotRight)
	return l
}

func NewLogic(op LogicOp, left, right api.Widget) *Logic {
	l := newLogic(api.Deps{})
	l.op = op
	mustSlot(l, SlotLeft, left)
	mustSlot(l, SlotRight, right)
	return l
}

func NewNot(operand api.Widget) *Logic {
	return NewLogic(OpNot, operand, nil)
}

func (l *Logic) Op() LogicOp {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.op
}

func (l *Logic) SetOp(op LogicOp) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.op = op
}

func (l *Logic) Evaluate(ctx context.Context) (api.Value, error) {
	if l.Slot(SlotLeft) == nil {
		return nil, nil
	}
	left, err := l.EvaluateSlot(ctx, SlotLeft)
	if err != nil {
		return nil, err
	}

	op := l.Op()
	switch op {
	case OpNot:
		return !api.Truthy(left), nil
	case OpAnd:
		if !api.Truthy(left) {
			return false, nil
		}
	case OpOr:
		if api.Truthy(left) {
			return true, nil
		}
	default:
		return nil, nil
	}

	if l.Slot(SlotRight) == nil {
		return nil, nil
	}
	right, err := l.EvaluateSlot(ctx, SlotRight)
	if err != nil {
		return nil, err
	}
	return api.Truthy(right), nil
}

func (l *Logic) Source() string {
	if l.Op() == OpNot {
		return "not " + slotSource(&l.Base, SlotLeft)
	}
	return fmt.Sprintf("(%s %s %s)", slotSource(&l.Base, SlotLeft), l.Op(), slotSource(&l.Base, SlotRight))
}

// Concat joins the text form of two values. An empty side contributes
// nothing; two empty sides evaluate to none.
type Concat struct {
	Base
}

func newConcat(deps api.Deps) *Concat {
	c := &Concat{}
	c.Setup(ConcatDescriptor, deps, SlotLeft, SlotRight)
	return c
}

func NewConcat(left, right api.Widget) *Concat {
	c := newConcat(api.Deps{})
	mustSlot(c, SlotLeft, left)
	mustSlot(c, SlotRight, right)
	return c
}

func (c *Concat) Evaluate(ctx context.Context) (api.Value, error) {
	if c.Slot(SlotLeft) == nil && c.Slot(SlotRight) == nil {
		return nil, nil
	}
	l, r, err := evalPair(ctx, &c.Base)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, v := range []api.Value{l, r} {
		if v != nil {
			sb.WriteString(api.FormatValue(v))
		}
	}
	return sb.String(), nil
}

func (c *Concat) Source() string {
	return fmt.Sprintf("join(%s, %s)", slotSource(&c.Base, SlotLeft), slotSource(&c.Base, SlotRight))
}

// TextMode selects the case mapping of a TextTransform.
type TextMode string

const (
	ModeUpper TextMode = "upper"
	ModeLower TextMode = "lower"
	ModeTitle TextMode = "title"
)

// TextTransform changes the case of its operand's text form.
type TextTransform struct {
	Base
	mode TextMode
	tag  language.Tag
}

func newTextTransform(deps api.Deps) *TextTransform {
	t := &TextTransform{mode: ModeUpper, tag: language.Und}
	t.Setup(TextTransformDescriptor, deps, SlotValue)
	return t
}

func NewTextTransform(mode TextMode, value api.Widget) *TextTransform {
	t := newTextTransform(api.Deps{})
	t.mode = mode
	mustSlot(t, SlotValue, value)
	return t
}

func (t *TextTransform) Mode() TextMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func (t *TextTransform) SetMode(mode TextMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
}

// SetLanguage selects language-specific case rules, e.g. Turkish dotted i.
func (t *TextTransform) SetLanguage(tag language.Tag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tag = tag
}

func (t *TextTransform) Evaluate(ctx context.Context) (api.Value, error) {
	v, err := t.EvaluateSlot(ctx, SlotValue)
	if err != nil || v == nil {
		return nil, err
	}

	t.mu.RLock()
	mode, tag := t.mode, t.tag
	t.mu.RUnlock()

	var caser cases.Caser
	switch mode {
	case ModeUpper:
		caser = cases.Upper(tag)
	case ModeLower:
		caser = cases.Lower(tag)
	case ModeTitle:
		caser = cases.Title(tag)
	default:
		return nil, nil
	}
	return caser.String(api.FormatValue(v)), nil
}

func (t *TextTransform) Source() string {
	return fmt.Sprintf("%s(%s)", t.Mode(), slotSource(&t.Base, SlotValue))
}

// UseVariable reads a binding through the scope chain of its owner.
type UseVariable struct {
	Base
	bindingID string
	name      string
}

func newUseVariable(deps api.Deps) *UseVariable {
	u := &UseVariable{}
	u.Setup(UseVariableDescriptor, deps)
	return u
}

func NewUseVariable(b *api.Binding) *UseVariable {
	u := newUseVariable(api.Deps{})
	u.SetBinding(b)
	return u
}

func (u *UseVariable) SetBinding(b *api.Binding) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if b == nil {
		u.bindingID, u.name = "", ""
		return
	}
	u.bindingID, u.name = b.ID(), b.Name()
}

func (u *UseVariable) BindingID() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.bindingID
}

// InitWidget asks for a variable name when no binding was chosen.
func (u *UseVariable) InitWidget(ctx context.Context) error {
	if u.BindingID() != "" {
		return nil
	}
	b, err := promptBinding(ctx, &u.Base, "Use variable")
	if err != nil {
		return err
	}
	u.SetBinding(b)
	return nil
}

func (u *UseVariable) ReferencedVariableIDs() []string {
	if id := u.BindingID(); id != "" {
		return []string{id}
	}
	return nil
}

func (u *UseVariable) Evaluate(ctx context.Context) (api.Value, error) {
	id := u.BindingID()
	owner := u.Owner()
	if id == "" || owner == nil {
		return nil, nil
	}
	b, ok := owner.Lookup(id)
	if !ok {
		return nil, nil
	}
	return b.Value(), nil
}

func (u *UseVariable) Source() string {
	id := u.BindingID()
	if id == "" {
		return api.PlaceholderText
	}
	if owner := u.Owner(); owner != nil {
		if b, ok := owner.Lookup(id); ok {
			return b.Name()
		}
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.name
}

// promptBinding asks for a variable name and resolves the innermost
// visible binding with that name.
func promptBinding(ctx context.Context, b *Base, title string) (*api.Binding, error) {
	text, ok, err := b.Prompter().PromptText(ctx, api.PromptRequest{Title: title, Message: "Variable name"})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrPromptFailed, err)
	}
	name := strings.TrimSpace(text)
	if !ok || name == "" {
		return nil, api.ErrAbandoned
	}
	owner := b.Owner()
	if owner == nil {
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownVariable, name)
	}
	stack := owner.VariableStack()
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Name() == name {
			return stack[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", api.ErrUnknownVariable, name)
}

// Input asks the user for text. A cancelled prompt evaluates to none;
// numeric answers become numbers.
type Input struct {
	Base
	message string
}

func newInput(deps api.Deps) *Input {
	in := &Input{message: "Enter a value"}
	in.Setup(InputDescriptor, deps)
	return in
}

func NewInput(p api.Prompter, message string) *Input {
	in := newInput(api.Deps{Prompter: p})
	if message != "" {
		in.message = message
	}
	return in
}

func (in *Input) Message() string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.message
}

func (in *Input) SetMessage(msg string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.message = msg
}

func (in *Input) Evaluate(ctx context.Context) (api.Value, error) {
	text, ok, err := in.Prompter().PromptText(ctx, api.PromptRequest{Title: "Input", Message: in.Message()})
	if err != nil {
		return nil, api.NewRuntimeError(in, fmt.Errorf("%w: %w", api.ErrPromptFailed, err))
	}
	if !ok {
		return nil, nil
	}
	if f, ok := api.ToNumber(text); ok {
		return f, nil
	}
	return text, nil
}

func (in *Input) Source() string { return fmt.Sprintf("input(%q)", in.Message()) }

// Ask asks the user a yes/no question.
type Ask struct {
	Base
	message string
}

func newAsk(deps api.Deps) *Ask {
	a := &Ask{message: "Continue?"}
	a.Setup(AskDescriptor, deps)
	return a
}

func NewAsk(p api.Prompter, message string) *Ask {
	a := newAsk(api.Deps{Prompter: p})
	if message != "" {
		a.message = message
	}
	return a
}

func (a *Ask) Message() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.message
}

func (a *Ask) SetMessage(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.message = msg
}

func (a *Ask) Evaluate(ctx context.Context) (api.Value, error) {
	yes, err := a.Prompter().Confirm(ctx, a.Message())
	if err != nil {
		return nil, api.NewRuntimeError(a, fmt.Errorf("%w: %w", api.ErrPromptFailed, err))
	}
	return yes, nil
}

func (a *Ask) Source() string { return fmt.Sprintf("ask(%q)", a.Message()) }
