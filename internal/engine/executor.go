package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nnorbert/codedam/pkg/api"
)

// Config describes how to construct an Executor.
type Config struct {
	// Name is the human-readable scope name shown in snapshots.
	Name string

	// Registry resolves widget type tags for RegisterWidget.
	// Nil means an empty registry.
	Registry *Registry

	// Prompter is injected into every widget built by RegisterWidget.
	// Nil means api.NoopPrompter.
	Prompter api.Prompter

	// Observer receives run lifecycle callbacks from a Controller.
	// Nil means api.NoopObserver.
	Observer api.Observer
}

// Executor owns one body: an ordered sequence of statement widgets, the
// variable table visible to it and the routine that walks the sequence.
//
// Nested executors point at their parent for scope-chain lookup only; the
// parent never owns them, the branching widget does.
type Executor struct {
	id       string
	name     string
	parent   *Executor
	registry *Registry
	deps     api.Deps

	mu        sync.RWMutex
	widgets   []api.Widget
	variables map[string]*api.Binding
	varOrder  []string
	onChange  func()
	onScope   func(api.Snapshot)
	active    bool
	running   api.Widget
}

var _ api.Body = (*Executor)(nil)

// NewExecutor returns a root executor with default configuration.
func NewExecutor(name string) *Executor {
	return NewExecutorWithConfig(Config{Name: name})
}

// NewExecutorWithConfig returns a root executor using cfg.
func NewExecutorWithConfig(cfg Config) *Executor {
	reg := cfg.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	prompter := cfg.Prompter
	if prompter == nil {
		prompter = api.NoopPrompter{}
	}
	name := cfg.Name
	if name == "" {
		name = "Program"
	}
	return newExecutor(name, nil, reg, api.Deps{Prompter: prompter})
}

func newExecutor(name string, parent *Executor, reg *Registry, deps api.Deps) *Executor {
	return &Executor{
		id:        uuid.NewString(),
		name:      name,
		parent:    parent,
		registry:  reg,
		deps:      deps,
		variables: make(map[string]*api.Binding),
	}
}

func (e *Executor) ID() string   { return e.id }
func (e *Executor) Name() string { return e.name }

// Parent returns the enclosing body, or nil for the program root.
func (e *Executor) Parent() api.Body {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// Root returns the outermost executor of the scope chain.
func (e *Executor) Root() *Executor {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Registry returns the registry used by RegisterWidget.
func (e *Executor) Registry() *Registry { return e.registry }

// NewChild creates a nested body sharing this executor's registry and
// capabilities.
func (e *Executor) NewChild(name string) api.Body {
	return newExecutor(name, e, e.registry, e.deps)
}

// Widgets returns a copy of the members in execution order.
func (e *Executor) Widgets() []api.Widget {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.widgets)
}

// Contains reports whether id is a direct member.
func (e *Executor) Contains(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.indexLocked(id) >= 0
}

// Widget returns the direct member with the given id.
func (e *Executor) Widget(id string) (api.Widget, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexLocked(id); i >= 0 {
		return e.widgets[i], true
	}
	return nil, false
}

func (e *Executor) indexLocked(id string) int {
	return slices.IndexFunc(e.widgets, func(w api.Widget) bool { return w.ID() == id })
}

// RegisterWidget instantiates a widget of type tag, inserts it next to
// the anchor and runs its initialisation.
//
// An empty anchorID appends. An unknown anchor is a silent no-op and
// returns a nil widget. If InitWidget fails the widget stays inserted and
// the error is returned; the caller is responsible for deleting it.
func (e *Executor) RegisterWidget(ctx context.Context, tag string, anchorID string, pos api.Position) (api.Widget, error) {
	if anchorID != "" && !e.Contains(anchorID) {
		return nil, nil
	}
	w, err := e.registry.New(tag, e.deps)
	if err != nil {
		return nil, err
	}
	if err := e.Place(ctx, w, anchorID, pos); err != nil {
		return w, err
	}
	return w, nil
}

// Place inserts a pre-built widget. See RegisterWidget.
func (e *Executor) Place(ctx context.Context, w api.Widget, anchorID string, pos api.Position) error {
	if w.Descriptor().Role == api.RoleExpression {
		return fmt.Errorf("%w: %s cannot be a body member", api.ErrRoleMismatch, w.Descriptor().Tag)
	}

	e.mu.Lock()
	idx := len(e.widgets)
	if anchorID != "" {
		i := e.indexLocked(anchorID)
		if i < 0 {
			e.mu.Unlock()
			return nil
		}
		idx = i
		if pos == api.PositionAfter {
			idx = i + 1
		}
	}
	e.widgets = slices.Insert(e.widgets, idx, w)
	e.mu.Unlock()

	w.Attach(e)
	if err := w.InitWidget(ctx); err != nil {
		e.changed()
		return err
	}
	if vc, ok := w.(api.VariableCreator); ok && vc.Binding() != nil {
		e.RegisterVariable(vc.Binding())
		return nil
	}
	e.changed()
	return nil
}

// ReorderWidgets moves a member so that it sits right before the anchor,
// or at the end when anchorID is empty. Unknown ids are ignored.
func (e *Executor) ReorderWidgets(movingID, anchorID string) {
	if movingID == anchorID {
		return
	}

	e.mu.Lock()
	from := e.indexLocked(movingID)
	if from < 0 || (anchorID != "" && e.indexLocked(anchorID) < 0) {
		e.mu.Unlock()
		return
	}
	w := e.widgets[from]
	e.widgets = slices.Delete(e.widgets, from, from+1)
	to := len(e.widgets)
	if anchorID != "" {
		to = e.indexLocked(anchorID)
	}
	e.widgets = slices.Insert(e.widgets, to, w)
	e.mu.Unlock()

	e.changed()
}

// DeleteWidget removes a member after cleaning it up. Deleting a variable
// creator whose binding is still referenced is refused unless cascade is
// set; the result then reports the number of usages.
func (e *Executor) DeleteWidget(id string, cascade bool) api.DeleteResult {
	w, ok := e.Widget(id)
	if !ok {
		return api.DeleteResult{}
	}

	var binding *api.Binding
	if vc, ok := w.(api.VariableCreator); ok {
		binding = vc.Binding()
	}
	if binding != nil && !cascade {
		if usage := e.IsVariableInUse(binding.ID()); usage.InUse {
			return api.DeleteResult{InUse: true, Usages: usage.Count}
		}
	}

	w.Cleanup()
	w.SetHighlighted(false)

	e.mu.Lock()
	if i := e.indexLocked(id); i >= 0 {
		e.widgets = slices.Delete(e.widgets, i, i+1)
	}
	if e.running != nil && e.running.ID() == id {
		e.running = nil
	}
	if binding != nil {
		e.releaseVariableLocked(binding.ID())
	}
	e.mu.Unlock()

	e.changed()
	return api.DeleteResult{Deleted: true}
}

// Destroy deletes every member, bypassing liveness checks, and releases
// every binding owned by this body.
func (e *Executor) Destroy() {
	for _, w := range e.Widgets() {
		e.DeleteWidget(w.ID(), true)
	}
	e.mu.Lock()
	clear(e.variables)
	e.varOrder = nil
	e.running = nil
	e.active = false
	e.mu.Unlock()
}

// RegisterVariable adds b to this body's table.
func (e *Executor) RegisterVariable(b *api.Binding) {
	e.mu.Lock()
	if _, exists := e.variables[b.ID()]; !exists {
		e.varOrder = append(e.varOrder, b.ID())
	}
	e.variables[b.ID()] = b
	e.mu.Unlock()

	e.changed()
	e.notifyScope()
}

func (e *Executor) releaseVariableLocked(id string) {
	if _, ok := e.variables[id]; !ok {
		return
	}
	delete(e.variables, id)
	e.varOrder = slices.DeleteFunc(e.varOrder, func(v string) bool { return v == id })
}

// Variables returns the bindings owned by this body, in creation order.
func (e *Executor) Variables() []*api.Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*api.Binding, 0, len(e.varOrder))
	for _, id := range e.varOrder {
		out = append(out, e.variables[id])
	}
	return out
}

// VariableStack returns every binding visible here, outermost first.
func (e *Executor) VariableStack() []*api.Binding {
	var chain []*Executor
	for cur := e; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	var out []*api.Binding
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Variables()...)
	}
	return out
}

// VariableNames lists the visible variable names except the binding with
// id excludingID.
func (e *Executor) VariableNames(excludingID string) []string {
	var names []string
	for _, b := range e.VariableStack() {
		if b.ID() == excludingID {
			continue
		}
		names = append(names, b.Name())
	}
	return names
}

// Lookup resolves id through the scope chain.
func (e *Executor) Lookup(id string) (*api.Binding, bool) {
	b, _ := e.lookupOwner(id)
	return b, b != nil
}

func (e *Executor) lookupOwner(id string) (*api.Binding, *Executor) {
	for cur := e; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		b, ok := cur.variables[id]
		cur.mu.RUnlock()
		if ok {
			return b, cur
		}
	}
	return nil, nil
}

// WriteVariable assigns v to the binding id resolved through the scope
// chain and pushes a fresh snapshot.
func (e *Executor) WriteVariable(id string, v api.Value) error {
	b, owner := e.lookupOwner(id)
	if b == nil {
		return fmt.Errorf("%w: %s", api.ErrUnknownVariable, id)
	}
	if err := b.Set(v); err != nil {
		return fmt.Errorf("%s: %w", b.Name(), err)
	}
	owner.changed()
	e.notifyScope()
	return nil
}

// ResetVariable (re)initialises the binding id. Creating widgets use it on
// every execution so constants can be written once per run.
func (e *Executor) ResetVariable(id string, v api.Value) error {
	b, owner := e.lookupOwner(id)
	if b == nil {
		return fmt.Errorf("%w: %s", api.ErrUnknownVariable, id)
	}
	b.Reset(v)
	owner.changed()
	e.notifyScope()
	return nil
}

// IsVariableInUse counts references to id in this body and every nested
// body below it.
func (e *Executor) IsVariableInUse(id string) api.VariableUsage {
	count := countReferences(e, id)
	return api.VariableUsage{InUse: count > 0, Count: count}
}

func countReferences(body api.Body, id string) int {
	n := 0
	for _, w := range body.Widgets() {
		for _, ref := range w.ReferencedVariableIDs() {
			if ref == id {
				n++
			}
		}
		for _, nested := range w.NestedExecutors() {
			n += countReferences(nested, id)
		}
	}
	return n
}

// SetOnChange registers the observer notified after structural or
// variable-table mutations of this body or any body nested in it.
// It replaces any previous observer; nil removes it.
func (e *Executor) SetOnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// SetScopeObserver registers the hook that receives the rebuilt execution
// stack after every variable write anywhere in the tree. Only the root's
// hook is used.
func (e *Executor) SetScopeObserver(fn func(api.Snapshot)) {
	root := e.Root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.onScope = fn
}

func (e *Executor) changed() {
	for cur := e; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		fn := cur.onChange
		cur.mu.RUnlock()
		if fn != nil {
			fn()
		}
	}
}

func (e *Executor) notifyScope() {
	root := e.Root()
	root.mu.RLock()
	fn := root.onScope
	root.mu.RUnlock()
	if fn != nil {
		fn(root.ExecutionStackSnapshot())
	}
}

// Execute returns the body's routine: every member's checkpoints, in
// member order, each member fully drained before the next starts.
func (e *Executor) Execute(ctx context.Context) api.Routine {
	return api.NewRoutine(func(y *api.Yielder) error {
		e.setActive(true)
		defer e.setActive(false)

		for _, w := range e.Widgets() {
			if !e.Contains(w.ID()) {
				// Deleted while an earlier member was running.
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			e.setRunning(w)
			if err := y.Delegate(w.Execute(ctx)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Executor) setActive(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = on
	if !on {
		e.running = nil
	}
}

func (e *Executor) setRunning(w api.Widget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = w
}

// Active reports whether the body's routine is currently executing.
func (e *Executor) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// ActiveWidget returns the member whose routine is being drained.
func (e *Executor) ActiveWidget() api.Widget {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// ResetScopeState clears the execution markers of the whole tree below e.
func (e *Executor) ResetScopeState() {
	resetScope(e)
}

func resetScope(body api.Body) {
	if ex, ok := body.(*Executor); ok {
		ex.setActive(false)
	}
	for _, w := range body.Widgets() {
		w.SetHighlighted(false)
		for _, nested := range w.NestedExecutors() {
			resetScope(nested)
		}
	}
}

// ResetVariables returns every binding in the tree below e to its
// initial value, so a new run does not show the values of the last one.
func (e *Executor) ResetVariables(ctx context.Context) {
	seedBody(ctx, e)
	e.changed()
}

func seedBody(ctx context.Context, body api.Body) {
	for _, w := range body.Widgets() {
		if s, ok := w.(api.Seeder); ok {
			s.Seed(ctx)
		}
		for _, nested := range w.NestedExecutors() {
			seedBody(ctx, nested)
		}
	}
}

// ExecutionStackSnapshot walks from the root through the nested bodies
// currently executing and returns one frame per scope.
func (e *Executor) ExecutionStackSnapshot() api.Snapshot {
	var snap api.Snapshot
	var body api.Body = e.Root()
	var last api.Body
	for body != nil {
		snap.Frames = append(snap.Frames, frameOf(body))
		last = body
		body = activeChild(body)
	}
	if n := len(snap.Frames); n > 0 && last.Active() {
		snap.Frames[n-1].Active = true
	}
	return snap
}

func frameOf(body api.Body) api.ScopeFrame {
	frame := api.ScopeFrame{ScopeID: body.ID(), Name: body.Name()}
	for _, b := range body.Variables() {
		frame.Variables = append(frame.Variables, b.View())
	}
	return frame
}

func activeChild(body api.Body) api.Body {
	for _, w := range body.Widgets() {
		for _, nested := range w.NestedExecutors() {
			if nested.Active() {
				return nested
			}
		}
	}
	return nil
}
