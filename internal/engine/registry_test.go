package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

func TestRegistry_RegisterAndNew(t *testing.T) {
	reg := engine.NewRegistry()
	require.NoError(t, reg.RegisterAll(widgets.Catalog()...))

	w, err := reg.New("print", api.Deps{})
	require.NoError(t, err)
	require.Equal(t, "print", w.Descriptor().Tag)
	require.Equal(t, api.RoleStatement, w.Descriptor().Role)

	other, err := reg.New("print", api.Deps{})
	require.NoError(t, err)
	require.NotEqual(t, w.ID(), other.ID())

	_, err = reg.Get("teleport")
	require.ErrorIs(t, err, api.ErrUnknownWidgetType)
	_, err = reg.New("teleport", api.Deps{})
	require.ErrorIs(t, err, api.ErrUnknownWidgetType)
}

func TestRegistry_RejectsInvalidTypes(t *testing.T) {
	reg := engine.NewRegistry()
	factory := func(api.Deps) api.Widget { return widgets.NewPrint(nil, nil) }

	require.Error(t, reg.Register(api.WidgetType{New: factory}))
	require.Error(t, reg.Register(api.WidgetType{Descriptor: api.Descriptor{Tag: "x"}}))

	wt := api.WidgetType{Descriptor: api.Descriptor{Tag: "x", Category: api.CategoryIO}, New: factory}
	require.NoError(t, reg.Register(wt))
	require.Error(t, reg.Register(wt), "duplicate tag")
}

func TestRegistry_DescriptorsAndCategories(t *testing.T) {
	reg := newRegistry(t)

	all := reg.Descriptors("")
	require.Len(t, all, len(widgets.Catalog()))
	require.Equal(t, "literal", all[0].Tag)

	var control []string
	for _, d := range reg.Descriptors(api.CategoryControl) {
		control = append(control, d.Tag)
	}
	require.Equal(t, []string{"if", "repeat"}, control)

	cats := reg.Categories()
	require.Contains(t, cats, api.CategoryMath)
	require.Contains(t, cats, api.CategoryIO)
	seen := map[api.Category]bool{}
	for _, c := range cats {
		require.False(t, seen[c], "category %q listed twice", c)
		seen[c] = true
	}
}
