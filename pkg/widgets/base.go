package widgets

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nnorbert/codedam/pkg/api"
)

// Base implements the parts of api.Widget every kind shares: identity,
// ownership, the highlight flag and named expression slots. Concrete
// widgets embed it and override Execute, Evaluate and friends.
type Base struct {
	id   string
	desc api.Descriptor
	deps api.Deps

	highlighted atomic.Bool

	mu        sync.RWMutex
	owner     api.Body
	slotNames []string
	slots     map[string]api.Widget
}

// Setup assigns a fresh id, the descriptor and the slot names. Concrete
// constructors call it before anything else. A nil deps.Prompter is
// replaced by api.NoopPrompter.
func (b *Base) Setup(desc api.Descriptor, deps api.Deps, slots ...string) {
	if deps.Prompter == nil {
		deps.Prompter = api.NoopPrompter{}
	}
	b.id = uuid.NewString()
	b.desc = desc
	b.deps = deps
	b.slotNames = slots
	b.slots = make(map[string]api.Widget, len(slots))
}

func (b *Base) ID() string                 { return b.id }
func (b *Base) Descriptor() api.Descriptor { return b.desc }
func (b *Base) Prompter() api.Prompter     { return b.deps.Prompter }

func (b *Base) Owner() api.Body {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.owner
}

// Attach records the owning body and passes it on to every slot occupant.
func (b *Base) Attach(owner api.Body) {
	b.mu.Lock()
	b.owner = owner
	children := b.childrenLocked()
	b.mu.Unlock()

	for _, c := range children {
		c.Attach(owner)
	}
}

func (b *Base) Execute(ctx context.Context) api.Routine { return api.EmptyRoutine() }

func (b *Base) Evaluate(ctx context.Context) (api.Value, error) { return nil, nil }

// ReferencedVariableIDs aggregates the references of every slot occupant.
func (b *Base) ReferencedVariableIDs() []string {
	var ids []string
	for _, c := range b.children() {
		ids = append(ids, c.ReferencedVariableIDs()...)
	}
	return ids
}

func (b *Base) NestedExecutors() []api.Body { return nil }

func (b *Base) InitWidget(ctx context.Context) error { return nil }

// Cleanup recursively cleans up and drops every slot occupant.
func (b *Base) Cleanup() {
	b.mu.Lock()
	children := b.childrenLocked()
	clear(b.slots)
	b.mu.Unlock()

	for _, c := range children {
		c.Cleanup()
	}
}

func (b *Base) Highlighted() bool        { return b.highlighted.Load() }
func (b *Base) SetHighlighted(on bool)   { b.highlighted.Store(on) }
func (b *Base) LineKeys() []string       { return []string{b.id} }
func (b *Base) SlotNames() []string      { return slices.Clone(b.slotNames) }
func (b *Base) hasSlot(name string) bool { return slices.Contains(b.slotNames, name) }

// Slot returns the occupant of the named slot, or nil.
func (b *Base) Slot(name string) api.Widget {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slots[name]
}

// SetSlot puts child into the named slot. The previous occupant, if any,
// is cleaned up. A nil child empties the slot. Only expression widgets
// are accepted.
func (b *Base) SetSlot(name string, child api.Widget) error {
	if !b.hasSlot(name) {
		return fmt.Errorf("%s: unknown slot %q", b.desc.Tag, name)
	}
	if child != nil && child.Descriptor().Role != api.RoleExpression {
		return fmt.Errorf("%w: %s in slot %q", api.ErrRoleMismatch, child.Descriptor().Tag, name)
	}

	b.mu.Lock()
	prev := b.slots[name]
	if child == nil {
		delete(b.slots, name)
	} else {
		b.slots[name] = child
	}
	owner := b.owner
	b.mu.Unlock()

	if prev != nil && prev != child {
		prev.Cleanup()
	}
	if child != nil && owner != nil {
		child.Attach(owner)
	}
	return nil
}

// EvaluateSlot evaluates the named slot. An empty slot yields nil.
func (b *Base) EvaluateSlot(ctx context.Context, name string) (api.Value, error) {
	child := b.Slot(name)
	if child == nil {
		return nil, nil
	}
	return child.Evaluate(ctx)
}

func (b *Base) children() []api.Widget {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.childrenLocked()
}

func (b *Base) childrenLocked() []api.Widget {
	out := make([]api.Widget, 0, len(b.slots))
	for _, name := range b.slotNames {
		if c := b.slots[name]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// mustSlot is used by constructors with pre-built occupants.
func mustSlot(w api.Slotted, name string, child api.Widget) {
	if child == nil {
		return
	}
	if err := w.SetSlot(name, child); err != nil {
		panic(fmt.Sprintf("widgets: %v", err))
	}
}
