package widgets

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/nnorbert/codedam/pkg/api"
)

var (
	CreateVariableDescriptor = api.Descriptor{Tag: "create_variable", Category: api.CategoryVariables, Role: api.RoleStatement, Label: "Create variable"}
	CreateConstantDescriptor = api.Descriptor{Tag: "create_constant", Category: api.CategoryVariables, Role: api.RoleStatement, Label: "Create constant"}
	SetVariableDescriptor    = api.Descriptor{Tag: "set_variable", Category: api.CategoryVariables, Role: api.RoleStatement, Label: "Set variable"}
	IfDescriptor             = api.Descriptor{Tag: "if", Category: api.CategoryControl, Role: api.RoleStatement, Label: "If / else"}
	RepeatDescriptor         = api.Descriptor{Tag: "repeat", Category: api.CategoryControl, Role: api.RoleStatement, Label: "Repeat"}
	PrintDescriptor          = api.Descriptor{Tag: "print", Category: api.CategoryIO, Role: api.RoleStatement, Label: "Show value"}
)

// evaluator adapts a slot evaluation to Yielder.Await.
func evaluator(b *Base, slot string) func(ctx context.Context) (api.Value, error) {
	return func(ctx context.Context) (api.Value, error) {
		return b.EvaluateSlot(ctx, slot)
	}
}

// CreateVariable owns a binding and (re)initialises it from its value
// slot every time it executes.
type CreateVariable struct {
	Base
	constant bool
	binding  *api.Binding
}

var _ api.Seeder = (*CreateVariable)(nil)

func newCreateVariable(deps api.Deps, constant bool) *CreateVariable {
	c := &CreateVariable{constant: constant}
	desc := CreateVariableDescriptor
	if constant {
		desc = CreateConstantDescriptor
	}
	c.Setup(desc, deps, SlotValue)
	return c
}

// NewCreateVariable returns a mutable variable named name.
func NewCreateVariable(name string, value api.Widget) *CreateVariable {
	c := newCreateVariable(api.Deps{}, false)
	c.binding = api.NewBinding(name, false)
	mustSlot(c, SlotValue, value)
	return c
}

// NewCreateConstant returns a write-once binding named name.
func NewCreateConstant(name string, value api.Widget) *CreateVariable {
	c := newCreateVariable(api.Deps{}, true)
	c.binding = api.NewBinding(name, true)
	mustSlot(c, SlotValue, value)
	return c
}

func (c *CreateVariable) Binding() *api.Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.binding
}

func (c *CreateVariable) Constant() bool { return c.constant }

// InitWidget asks for the name unless one was given and rejects names
// already visible from the owning body or declared in a body nested below
// it. The binding is then seeded from the value slot.
func (c *CreateVariable) InitWidget(ctx context.Context) error {
	b := c.Binding()
	name := ""
	if b != nil {
		name = b.Name()
	} else {
		text, ok, err := c.Prompter().PromptText(ctx, api.PromptRequest{Title: c.desc.Label, Message: "Variable name"})
		if err != nil {
			return fmt.Errorf("%w: %w", api.ErrPromptFailed, err)
		}
		name = strings.TrimSpace(text)
		if !ok || name == "" {
			return api.ErrAbandoned
		}
	}

	if owner := c.Owner(); owner != nil {
		exclude := ""
		if b != nil {
			exclude = b.ID()
		}
		if slices.Contains(owner.VariableNames(exclude), name) || declaredBelow(owner, name, exclude) {
			return fmt.Errorf("%w: %s", api.ErrDuplicateName, name)
		}
	}

	if b == nil {
		c.mu.Lock()
		c.binding = api.NewBinding(name, c.constant)
		c.mu.Unlock()
	}
	c.Seed(ctx)
	return nil
}

// Seed resets the binding to the value of a constant value slot. A slot
// that prompts or reads variables, or fails to evaluate, leaves none.
func (c *CreateVariable) Seed(ctx context.Context) {
	b := c.Binding()
	if b == nil {
		return
	}
	var v api.Value
	if value := c.Slot(SlotValue); value != nil && constantExpr(value) {
		if got, err := value.Evaluate(ctx); err == nil {
			v = got
		}
	}
	b.Reset(v)
}

// constantExpr reports whether w evaluates to the same value on every
// run.
func constantExpr(w api.Widget) bool {
	switch w.(type) {
	case *Input, *Ask, *UseVariable:
		return false
	}
	s, ok := w.(api.Slotted)
	if !ok {
		return true
	}
	for _, name := range s.SlotNames() {
		if child := s.Slot(name); child != nil && !constantExpr(child) {
			return false
		}
	}
	return true
}

// declaredBelow reports whether a variable creator in a body nested under
// body, other than the binding excludeID, is called name.
func declaredBelow(body api.Body, name, excludeID string) bool {
	for _, w := range body.Widgets() {
		for _, nested := range w.NestedExecutors() {
			for _, member := range nested.Widgets() {
				vc, ok := member.(api.VariableCreator)
				if !ok {
					continue
				}
				if b := vc.Binding(); b != nil && b.ID() != excludeID && b.Name() == name {
					return true
				}
			}
			if declaredBelow(nested, name, excludeID) {
				return true
			}
		}
	}
	return false
}

func (c *CreateVariable) Execute(ctx context.Context) api.Routine {
	return api.NewRoutine(func(y *api.Yielder) error {
		if err := y.Step(c); err != nil {
			return err
		}
		v, err := y.Await(ctx, evaluator(&c.Base, SlotValue))
		if err != nil {
			return api.NewRuntimeError(c, err)
		}
		b, owner := c.Binding(), c.Owner()
		if b == nil || owner == nil {
			return nil
		}
		return api.NewRuntimeError(c, owner.ResetVariable(b.ID(), v))
	})
}

func (c *CreateVariable) Source() string {
	kw := "var"
	if c.constant {
		kw = "const"
	}
	name := api.PlaceholderText
	if b := c.Binding(); b != nil {
		name = b.Name()
	}
	return fmt.Sprintf("%s %s = %s", kw, name, slotSource(&c.Base, SlotValue))
}

// SetVariable writes its value slot into a binding found through the
// scope chain. Writing a constant is a runtime error.
type SetVariable struct {
	Base
	target UseVariable
}

func newSetVariable(deps api.Deps) *SetVariable {
	s := &SetVariable{}
	s.Setup(SetVariableDescriptor, deps, SlotValue)
	s.target.Setup(UseVariableDescriptor, deps)
	return s
}

func NewSetVariable(target *api.Binding, value api.Widget) *SetVariable {
	s := newSetVariable(api.Deps{})
	s.SetTarget(target)
	mustSlot(s, SlotValue, value)
	return s
}

func (s *SetVariable) SetTarget(b *api.Binding) { s.target.SetBinding(b) }
func (s *SetVariable) TargetID() string         { return s.target.BindingID() }

func (s *SetVariable) Attach(owner api.Body) {
	s.Base.Attach(owner)
	s.target.Attach(owner)
}

// InitWidget asks which variable to write when no target was chosen.
func (s *SetVariable) InitWidget(ctx context.Context) error {
	if s.TargetID() != "" {
		return nil
	}
	b, err := promptBinding(ctx, &s.Base, s.desc.Label)
	if err != nil {
		return err
	}
	s.SetTarget(b)
	return nil
}

func (s *SetVariable) ReferencedVariableIDs() []string {
	return append(s.target.ReferencedVariableIDs(), s.Base.ReferencedVariableIDs()...)
}

func (s *SetVariable) Execute(ctx context.Context) api.Routine {
	return api.NewRoutine(func(y *api.Yielder) error {
		if err := y.Step(s); err != nil {
			return err
		}
		v, err := y.Await(ctx, evaluator(&s.Base, SlotValue))
		if err != nil {
			return api.NewRuntimeError(s, err)
		}
		id, owner := s.TargetID(), s.Owner()
		if id == "" || owner == nil {
			return nil
		}
		return api.NewRuntimeError(s, owner.WriteVariable(id, v))
	})
}

func (s *SetVariable) Source() string {
	return fmt.Sprintf("%s = %s", s.target.Source(), slotSource(&s.Base, SlotValue))
}

// Print shows the text form of its value slot through the prompter.
// An empty slot shows the placeholder.
type Print struct {
	Base
}

func newPrint(deps api.Deps) *Print {
	p := &Print{}
	p.Setup(PrintDescriptor, deps, SlotValue)
	return p
}

func NewPrint(p api.Prompter, value api.Widget) *Print {
	w := newPrint(api.Deps{Prompter: p})
	mustSlot(w, SlotValue, value)
	return w
}

func (p *Print) Execute(ctx context.Context) api.Routine {
	return api.NewRoutine(func(y *api.Yielder) error {
		if err := y.Step(p); err != nil {
			return err
		}
		_, err := y.Await(ctx, func(ctx context.Context) (api.Value, error) {
			v, err := p.EvaluateSlot(ctx, SlotValue)
			if err != nil {
				return nil, err
			}
			if err := p.Prompter().Show(ctx, api.FormatValue(v)); err != nil {
				return nil, fmt.Errorf("%w: %w", api.ErrPromptFailed, err)
			}
			return v, nil
		})
		return api.NewRuntimeError(p, err)
	})
}

func (p *Print) Source() string {
	return fmt.Sprintf("print(%s)", slotSource(&p.Base, SlotValue))
}

const (
	branchNone int32 = iota
	branchThen
	branchElse
)

// If runs exactly one of its two nested bodies depending on the truth of
// its condition. The bodies are created when the widget is attached.
type If struct {
	Base
	then   api.Body
	els    api.Body
	branch atomic.Int32
}

func newIf(deps api.Deps) *If {
	w := &If{}
	w.Setup(IfDescriptor, deps, SlotCondition)
	return w
}

func NewIf(condition api.Widget) *If {
	w := newIf(api.Deps{})
	mustSlot(w, SlotCondition, condition)
	return w
}

func (w *If) Attach(owner api.Body) {
	w.Base.Attach(owner)
	if owner == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.then == nil {
		w.then = owner.NewChild("then")
		w.els = owner.NewChild("else")
	}
}

// Then returns the body run when the condition holds. It is nil until
// the widget is attached.
func (w *If) Then() api.Body {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.then
}

// Else returns the body run otherwise.
func (w *If) Else() api.Body {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.els
}

func (w *If) NestedExecutors() []api.Body {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.then == nil {
		return nil
	}
	return []api.Body{w.then, w.els}
}

func (w *If) Cleanup() {
	w.Base.Cleanup()
	for _, body := range w.NestedExecutors() {
		body.Destroy()
	}
}

func (w *If) Execute(ctx context.Context) api.Routine {
	return api.NewRoutine(func(y *api.Yielder) error {
		if err := y.Step(w); err != nil {
			return err
		}
		cond, err := y.Await(ctx, evaluator(&w.Base, SlotCondition))
		if err != nil {
			return api.NewRuntimeError(w, err)
		}

		body, arm := w.Else(), branchElse
		if api.Truthy(cond) {
			body, arm = w.Then(), branchThen
		}
		if body == nil {
			return nil
		}
		w.branch.Store(arm)
		defer w.branch.Store(branchNone)
		return y.Delegate(body.Execute(ctx))
	})
}

// LineKeys reports the header, plus the arm being executed.
func (w *If) LineKeys() []string {
	keys := []string{w.id}
	switch w.branch.Load() {
	case branchThen:
		keys = append(keys, w.id+":then")
	case branchElse:
		keys = append(keys, w.id+":else")
	}
	return keys
}

func (w *If) Source() string {
	return fmt.Sprintf("if %s", slotSource(&w.Base, SlotCondition))
}

// Repeat runs its body a fixed number of times. A count that is empty,
// not a number or negative runs the body zero times; fractions are
// truncated.
type Repeat struct {
	Base
	body      api.Body
	iteration atomic.Int64
}

func newRepeat(deps api.Deps) *Repeat {
	r := &Repeat{}
	r.Setup(RepeatDescriptor, deps, SlotCount)
	return r
}

func NewRepeat(count api.Widget) *Repeat {
	r := newRepeat(api.Deps{})
	mustSlot(r, SlotCount, count)
	return r
}

func (r *Repeat) Attach(owner api.Body) {
	r.Base.Attach(owner)
	if owner == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.body == nil {
		r.body = owner.NewChild("repeat")
	}
}

func (r *Repeat) Body() api.Body {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.body
}

func (r *Repeat) NestedExecutors() []api.Body {
	if b := r.Body(); b != nil {
		return []api.Body{b}
	}
	return nil
}

func (r *Repeat) Cleanup() {
	r.Base.Cleanup()
	if b := r.Body(); b != nil {
		b.Destroy()
	}
}

// Iteration is the 1-based pass currently executing, 0 when idle.
func (r *Repeat) Iteration() int { return int(r.iteration.Load()) }

func (r *Repeat) Execute(ctx context.Context) api.Routine {
	return api.NewRoutine(func(y *api.Yielder) error {
		if err := y.Step(r); err != nil {
			return err
		}
		v, err := y.Await(ctx, evaluator(&r.Base, SlotCount))
		if err != nil {
			return api.NewRuntimeError(r, err)
		}
		body := r.Body()
		n, ok := api.ToNumber(v)
		if !ok || v == nil || body == nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 1 {
			return nil
		}

		defer r.iteration.Store(0)
		for i := int64(1); i <= int64(n); i++ {
			r.iteration.Store(i)
			if err := y.Delegate(body.Execute(ctx)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repeat) Source() string {
	return fmt.Sprintf("repeat %s times", slotSource(&r.Base, SlotCount))
}
