package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nnorbert/codedam/pkg/api"
)

// Registry maps stable widget type tags to their descriptor and factory.
type Registry struct {
	mu    sync.RWMutex
	byTag map[string]api.WidgetType
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag: make(map[string]api.WidgetType),
	}
}

// Register adds a widget type. Tags must be unique.
func (r *Registry) Register(wt api.WidgetType) error {
	if wt.Tag == "" {
		return fmt.Errorf("widget type tag is required")
	}
	if wt.New == nil {
		return fmt.Errorf("widget type %q has nil factory", wt.Tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTag[wt.Tag]; exists {
		return fmt.Errorf("widget type %q already registered", wt.Tag)
	}
	r.byTag[wt.Tag] = wt
	r.order = append(r.order, wt.Tag)
	return nil
}

// RegisterAll registers every type, stopping at the first error.
func (r *Registry) RegisterAll(types ...api.WidgetType) error {
	for _, wt := range types {
		if err := r.Register(wt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the widget type registered under tag.
func (r *Registry) Get(tag string) (api.WidgetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wt, ok := r.byTag[tag]
	if !ok {
		return api.WidgetType{}, fmt.Errorf("%w: %q", api.ErrUnknownWidgetType, tag)
	}
	return wt, nil
}

// New constructs a widget of the given type.
func (r *Registry) New(tag string, deps api.Deps) (api.Widget, error) {
	wt, err := r.Get(tag)
	if err != nil {
		return nil, err
	}
	return wt.New(deps), nil
}

// Descriptors lists registered descriptors in registration order,
// optionally limited to one category.
func (r *Registry) Descriptors(category api.Category) []api.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.Descriptor, 0, len(r.order))
	for _, tag := range r.order {
		d := r.byTag[tag].Descriptor
		if category != "" && d.Category != category {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Categories lists the categories with at least one registered type.
func (r *Registry) Categories() []api.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []api.Category
	for _, tag := range r.order {
		c := r.byTag[tag].Category
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
