package codedam

import (
	"context"
	"fmt"

	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

// Env is what an Expr is built against: the body the enclosing statement
// is placed in and the prompter of the program.
type Env struct {
	Body     Body
	Prompter Prompter
}

// Expr builds an expression widget. A nil Expr leaves its slot empty.
type Expr func(env Env) (Widget, error)

// ProgramBuilder provides a fluent API for defining programs:
//
//	prog, err := codedam.NewBuilder("Doubler").
//	    Var("x", codedam.Input("A number?")).
//	    Set("x", codedam.Mul(codedam.Ref("x"), codedam.Num(2))).
//	    If(codedam.Gt(codedam.Ref("x"), codedam.Num(10)),
//	        func(b *codedam.ProgramBuilder) { b.Print(codedam.Text("big")) },
//	        func(b *codedam.ProgramBuilder) { b.Print(codedam.Text("small")) },
//	    ).
//	    Build(ctx, prompter)
//
// Variable references are resolved when Build places the statements, so
// a Ref must follow the Var or Const that declares the name.
type ProgramBuilder struct {
	name  string
	stmts []statement
}

type statement func(ctx context.Context, env Env) error

// NewBuilder creates a program builder whose root body is called name.
func NewBuilder(name string) *ProgramBuilder {
	return &ProgramBuilder{name: name}
}

// Name returns the program name.
func (b *ProgramBuilder) Name() string {
	return b.name
}

// Var declares a variable initialized from value.
func (b *ProgramBuilder) Var(name string, value Expr) *ProgramBuilder {
	if name == "" {
		panic("codedam: variable name must not be empty")
	}
	return b.add(func(ctx context.Context, env Env) error {
		v, err := value.build(env)
		if err != nil {
			return err
		}
		return place(ctx, env, widgets.NewCreateVariable(name, v))
	})
}

// Const declares a constant initialized from value.
func (b *ProgramBuilder) Const(name string, value Expr) *ProgramBuilder {
	if name == "" {
		panic("codedam: constant name must not be empty")
	}
	return b.add(func(ctx context.Context, env Env) error {
		v, err := value.build(env)
		if err != nil {
			return err
		}
		return place(ctx, env, widgets.NewCreateConstant(name, v))
	})
}

// Set assigns value to the visible variable called name.
func (b *ProgramBuilder) Set(name string, value Expr) *ProgramBuilder {
	if name == "" {
		panic("codedam: variable name must not be empty")
	}
	return b.add(func(ctx context.Context, env Env) error {
		target, err := lookup(env.Body, name)
		if err != nil {
			return err
		}
		v, err := value.build(env)
		if err != nil {
			return err
		}
		return place(ctx, env, widgets.NewSetVariable(target, v))
	})
}

// Print shows value through the prompter.
func (b *ProgramBuilder) Print(value Expr) *ProgramBuilder {
	return b.add(func(ctx context.Context, env Env) error {
		v, err := value.build(env)
		if err != nil {
			return err
		}
		return place(ctx, env, widgets.NewPrint(env.Prompter, v))
	})
}

// If adds a conditional. Either branch function may be nil.
func (b *ProgramBuilder) If(cond Expr, then, els func(b *ProgramBuilder)) *ProgramBuilder {
	thenB, elseB := nested(then), nested(els)
	return b.add(func(ctx context.Context, env Env) error {
		c, err := cond.build(env)
		if err != nil {
			return err
		}
		w := widgets.NewIf(c)
		if err := place(ctx, env, w); err != nil {
			return err
		}
		if err := thenB.placeAll(ctx, Env{Body: w.Then(), Prompter: env.Prompter}); err != nil {
			return err
		}
		return elseB.placeAll(ctx, Env{Body: w.Else(), Prompter: env.Prompter})
	})
}

// Repeat adds a loop running body count times.
func (b *ProgramBuilder) Repeat(count Expr, body func(b *ProgramBuilder)) *ProgramBuilder {
	inner := nested(body)
	return b.add(func(ctx context.Context, env Env) error {
		c, err := count.build(env)
		if err != nil {
			return err
		}
		w := widgets.NewRepeat(c)
		if err := place(ctx, env, w); err != nil {
			return err
		}
		return inner.placeAll(ctx, Env{Body: w.Body(), Prompter: env.Prompter})
	})
}

// Build places the recorded statements into a new program whose
// prompting widgets talk to p. A nil p means NoopPrompter.
func (b *ProgramBuilder) Build(ctx context.Context, p Prompter) (*Executor, error) {
	if p == nil {
		p = NoopPrompter{}
	}
	root := NewProgram(b.name, p)
	if err := b.placeAll(ctx, Env{Body: root, Prompter: p}); err != nil {
		root.Destroy()
		return nil, fmt.Errorf("build program %q: %w", b.name, err)
	}
	return root, nil
}

// MustBuild is like Build but panics on error.
// Useful for initialization in main().
func (b *ProgramBuilder) MustBuild(ctx context.Context, p Prompter) *Executor {
	root, err := b.Build(ctx, p)
	if err != nil {
		panic(err)
	}
	return root
}

func (b *ProgramBuilder) add(s statement) *ProgramBuilder {
	b.stmts = append(b.stmts, s)
	return b
}

func (b *ProgramBuilder) placeAll(ctx context.Context, env Env) error {
	for _, s := range b.stmts {
		if err := s(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func nested(fn func(b *ProgramBuilder)) *ProgramBuilder {
	b := &ProgramBuilder{}
	if fn != nil {
		fn(b)
	}
	return b
}

func place(ctx context.Context, env Env, w Widget) error {
	return env.Body.Place(ctx, w, "", api.PositionEnd)
}

// lookup finds the innermost binding called name visible from body.
func lookup(body Body, name string) (*api.Binding, error) {
	stack := body.VariableStack()
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Name() == name {
			return stack[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", api.ErrUnknownVariable, name)
}

func (e Expr) build(env Env) (Widget, error) {
	if e == nil {
		return nil, nil
	}
	return e(env)
}

// Expression constructors.

// Num is a numeric literal.
func Num(f float64) Expr { return literal(f) }

// Text is a string literal.
func Text(s string) Expr { return literal(s) }

// Bool is a boolean literal.
func Bool(v bool) Expr { return literal(v) }

func literal(v api.Value) Expr {
	return func(Env) (Widget, error) { return widgets.NewLiteral(v), nil }
}

// Ref reads the visible variable called name.
func Ref(name string) Expr {
	return func(env Env) (Widget, error) {
		binding, err := lookup(env.Body, name)
		if err != nil {
			return nil, err
		}
		return widgets.NewUseVariable(binding), nil
	}
}

func Add(a, b Expr) Expr { return arithmetic(widgets.OpAdd, a, b) }
func Sub(a, b Expr) Expr { return arithmetic(widgets.OpSub, a, b) }
func Mul(a, b Expr) Expr { return arithmetic(widgets.OpMul, a, b) }
func Div(a, b Expr) Expr { return arithmetic(widgets.OpDiv, a, b) }
func Mod(a, b Expr) Expr { return arithmetic(widgets.OpMod, a, b) }

func Eq(a, b Expr) Expr { return compare(widgets.OpEq, a, b) }
func Ne(a, b Expr) Expr { return compare(widgets.OpNe, a, b) }
func Lt(a, b Expr) Expr { return compare(widgets.OpLt, a, b) }
func Le(a, b Expr) Expr { return compare(widgets.OpLe, a, b) }
func Gt(a, b Expr) Expr { return compare(widgets.OpGt, a, b) }
func Ge(a, b Expr) Expr { return compare(widgets.OpGe, a, b) }

func And(a, b Expr) Expr { return logic(widgets.OpAnd, a, b) }
func Or(a, b Expr) Expr  { return logic(widgets.OpOr, a, b) }

// Not negates a.
func Not(a Expr) Expr {
	return func(env Env) (Widget, error) {
		w, err := a.build(env)
		if err != nil {
			return nil, err
		}
		return widgets.NewNot(w), nil
	}
}

// Join concatenates the text of parts left to right.
func Join(parts ...Expr) Expr {
	return func(env Env) (Widget, error) {
		var out Widget
		for _, part := range parts {
			w, err := part.build(env)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = w
				continue
			}
			out = widgets.NewConcat(out, w)
		}
		if out == nil {
			return widgets.NewLiteral(""), nil
		}
		return out, nil
	}
}

func Upper(a Expr) Expr { return transform(widgets.ModeUpper, a) }
func Lower(a Expr) Expr { return transform(widgets.ModeLower, a) }
func Title(a Expr) Expr { return transform(widgets.ModeTitle, a) }

// Input asks the user for a line of text, shown with message.
func Input(message string) Expr {
	return func(env Env) (Widget, error) { return widgets.NewInput(env.Prompter, message), nil }
}

// Ask asks the user a yes or no question.
func Ask(message string) Expr {
	return func(env Env) (Widget, error) { return widgets.NewAsk(env.Prompter, message), nil }
}

func arithmetic(op widgets.ArithmeticOp, a, b Expr) Expr {
	return binary(a, b, func(l, r Widget) Widget { return widgets.NewArithmetic(op, l, r) })
}

func compare(op widgets.CompareOp, a, b Expr) Expr {
	return binary(a, b, func(l, r Widget) Widget { return widgets.NewCompare(op, l, r) })
}

func logic(op widgets.LogicOp, a, b Expr) Expr {
	return binary(a, b, func(l, r Widget) Widget { return widgets.NewLogic(op, l, r) })
}

func transform(mode widgets.TextMode, a Expr) Expr {
	return func(env Env) (Widget, error) {
		w, err := a.build(env)
		if err != nil {
			return nil, err
		}
		return widgets.NewTextTransform(mode, w), nil
	}
}

func binary(a, b Expr, mk func(l, r Widget) Widget) Expr {
	return func(env Env) (Widget, error) {
		l, err := a.build(env)
		if err != nil {
			return nil, err
		}
		r, err := b.build(env)
		if err != nil {
			return nil, err
		}
		return mk(l, r), nil
	}
}
