package api

import (
	"sync"

	"github.com/google/uuid"
)

// Binding is a named storage cell owned by exactly one body.
// A constant binding accepts a single write per initialisation.
type Binding struct {
	id       string
	name     string
	constant bool

	mu       sync.RWMutex
	value    Value
	assigned bool
}

// NewBinding creates a binding with a fresh id.
func NewBinding(name string, constant bool) *Binding {
	return &Binding{
		id:       uuid.NewString(),
		name:     name,
		constant: constant,
	}
}

func (b *Binding) ID() string     { return b.id }
func (b *Binding) Constant() bool { return b.constant }

func (b *Binding) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Rename changes the user-chosen identifier.
func (b *Binding) Rename(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = name
}

func (b *Binding) Value() Value {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Reset (re)initialises the binding. Only the creating widget calls it.
func (b *Binding) Reset(v Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	b.assigned = true
}

// Set writes v, refusing a second write to a constant.
func (b *Binding) Set(v Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.constant && b.assigned {
		return ErrConstantReassign
	}
	b.value = v
	b.assigned = true
	return nil
}

// View returns an immutable copy for display.
func (b *Binding) View() VariableView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return VariableView{
		ID:       b.id,
		Name:     b.name,
		Value:    b.value,
		Constant: b.constant,
	}
}

// VariableView is a point-in-time copy of a binding.
type VariableView struct {
	ID       string
	Name     string
	Value    Value
	Constant bool
}

// ScopeFrame is one level of the execution stack snapshot.
type ScopeFrame struct {
	ScopeID   string
	Name      string
	Variables []VariableView
	Active    bool
}

// Snapshot is the execution stack, outermost scope first.
type Snapshot struct {
	Frames []ScopeFrame
}

// Lookup returns the innermost visible variable called name.
func (s Snapshot) Lookup(name string) (VariableView, bool) {
	for i := len(s.Frames) - 1; i >= 0; i-- {
		for _, v := range s.Frames[i].Variables {
			if v.Name == name {
				return v, true
			}
		}
	}
	return VariableView{}, false
}

// ActiveFrame returns the frame currently executing.
func (s Snapshot) ActiveFrame() (ScopeFrame, bool) {
	for _, f := range s.Frames {
		if f.Active {
			return f, true
		}
	}
	return ScopeFrame{}, false
}
