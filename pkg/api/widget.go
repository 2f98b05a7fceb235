package api

import "context"

// Role says where a widget may be placed.
type Role string

const (
	// RoleStatement widgets are members of a body.
	RoleStatement Role = "statement"
	// RoleExpression widgets occupy slots and produce values.
	RoleExpression Role = "expression"
)

// Category groups widget types in the toolbox.
type Category string

const (
	CategoryMath      Category = "math"
	CategoryText      Category = "text"
	CategoryLogic     Category = "logic"
	CategoryVariables Category = "variables"
	CategoryControl   Category = "control"
	CategoryIO        Category = "io"
)

// Descriptor is the static description of a widget type.
type Descriptor struct {
	Tag      string
	Category Category
	Role     Role
	Label    string
}

// Deps are the capabilities a widget receives when it is constructed.
type Deps struct {
	Prompter Prompter
}

// Factory constructs a widget of one type.
type Factory func(deps Deps) Widget

// WidgetType pairs a descriptor with its factory.
type WidgetType struct {
	Descriptor
	New Factory
}

// Widget is the capability set every block implements.
type Widget interface {
	// ID is process-unique and stable for the widget's lifetime.
	ID() string
	Descriptor() Descriptor

	// Owner is the body this widget (or, for slot occupants, the statement
	// holding it) is a member of.
	Owner() Body
	Attach(owner Body)

	// Execute returns the widget's checkpoint sequence. Statements that
	// change observable state yield a step checkpoint before doing so.
	// Expression widgets return EmptyRoutine.
	Execute(ctx context.Context) Routine

	// Evaluate computes the widget's value. It may block on the prompter.
	// Incomplete widgets evaluate to nil instead of failing.
	Evaluate(ctx context.Context) (Value, error)

	// ReferencedVariableIDs lists the bindings read or written by this
	// widget and its slot occupants.
	ReferencedVariableIDs() []string

	// NestedExecutors lists the bodies exclusively owned by this widget.
	NestedExecutors() []Body

	// InitWidget performs first-time configuration. It returns
	// ErrAbandoned, without side effects, when the user cancels.
	InitWidget(ctx context.Context) error

	// Cleanup destroys everything the widget exclusively owns.
	Cleanup()

	Highlighted() bool
	SetHighlighted(on bool)

	// LineKeys identify the code preview lines to emphasise while the
	// widget is executing.
	LineKeys() []string
}

// VariableCreator is implemented by widgets that own a binding.
type VariableCreator interface {
	Widget
	Binding() *Binding
}

// Seeder is implemented by variable creators that can give their binding
// its initial value before they execute. Seed resets the binding to that
// value, or to none when the value depends on the run.
type Seeder interface {
	VariableCreator
	Seed(ctx context.Context)
}

// Slotted is implemented by widgets with named child slots.
type Slotted interface {
	Widget
	SlotNames() []string
	Slot(name string) Widget
	SetSlot(name string, child Widget) error
}

// Position says where RegisterWidget inserts relative to the anchor.
type Position int

const (
	PositionEnd Position = iota
	PositionBefore
	PositionAfter
)

// DeleteResult reports the outcome of a delete request.
type DeleteResult struct {
	Deleted bool
	InUse   bool
	Usages  int
}

// VariableUsage is the outcome of a liveness check.
type VariableUsage struct {
	InUse bool
	Count int
}

// Body is an ordered sequence of statement widgets with its variable table.
type Body interface {
	ID() string
	Name() string
	Parent() Body
	Widgets() []Widget

	// Place inserts a pre-built widget, runs InitWidget and registers the
	// binding of variable-creating widgets. An unknown anchor is a no-op.
	Place(ctx context.Context, w Widget, anchorID string, pos Position) error
	ReorderWidgets(movingID, anchorID string)
	DeleteWidget(id string, cascade bool) DeleteResult

	RegisterVariable(b *Binding)
	Lookup(id string) (*Binding, bool)
	WriteVariable(id string, v Value) error
	// ResetVariable re-initialises a binding, including constants.
	ResetVariable(id string, v Value) error
	// Variables lists the bindings owned by this body only.
	Variables() []*Binding
	VariableStack() []*Binding
	VariableNames(excludingID string) []string
	IsVariableInUse(id string) VariableUsage

	Execute(ctx context.Context) Routine
	ActiveWidget() Widget
	Active() bool

	// NewChild creates a nested body whose scope chain continues here.
	NewChild(name string) Body

	// Destroy deletes every member and releases every binding.
	Destroy()
}
