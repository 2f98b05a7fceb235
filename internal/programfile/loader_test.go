package programfile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/internal/programfile"
	"github.com/nnorbert/codedam/internal/testutil"
	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

func newLoader(t *testing.T, p api.Prompter) *programfile.Loader {
	t.Helper()
	reg := engine.NewRegistry()
	require.NoError(t, reg.RegisterAll(widgets.Catalog()...))
	return programfile.NewLoader(reg, p)
}

func load(t *testing.T, p api.Prompter, src string) (*programfile.Program, error) {
	t.Helper()
	return newLoader(t, p).Load(context.Background(), "test.hcl", []byte(src))
}

func run(t *testing.T, prog *programfile.Program) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, api.Drain(ctx, prog.Root.Execute(ctx)))
}

func tags(ws []api.Widget) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Descriptor().Tag)
	}
	return out
}

func TestLoadFile_BuildsAndRuns(t *testing.T) {
	p := testutil.NewPrompter(testutil.Answer{Text: "7"})
	prog, err := newLoader(t, p).LoadFile(context.Background(), "testdata/doubler.hcl")
	require.NoError(t, err)

	require.Equal(t, "Doubler", prog.Root.Name())
	require.Equal(t, "Doubler", prog.Settings.Title)
	require.Equal(t, 250*time.Millisecond, prog.Settings.Interval())
	require.Equal(t,
		[]string{"create_variable", "set_variable", "if", "repeat", "create_constant", "print"},
		tags(prog.Root.Widgets()))

	run(t, prog)
	require.Equal(t, []string{"big 14", "HI", "HI", "-2"}, p.Shown())
	require.Len(t, p.Prompts(), 1)
	require.Equal(t, "A number?", p.Prompts()[0].Message)
}

func TestLoad_ElseBranchAndNestedScopes(t *testing.T) {
	p := testutil.NewPrompter()
	prog, err := load(t, p, `
variable "x" { value = 3 }
if {
  condition = x == 4 || false
  then {
    print { value = "four" }
  }
  else {
    variable "y" { value = x + 1 }
    print { value = "${x} then ${y}" }
  }
}
`)
	require.NoError(t, err)
	require.Equal(t, "Program", prog.Root.Name())
	require.Zero(t, prog.Settings.Interval())

	run(t, prog)
	require.Equal(t, []string{"3 then 4"}, p.Shown())
}

func TestLoad_PreviewShowsStructure(t *testing.T) {
	prog, err := load(t, nil, `
variable "n" { value = 2 }
repeat {
  count = n
  body {
    print { value = lower("A") }
  }
}
print {}
`)
	require.NoError(t, err)

	var texts []string
	for _, l := range widgets.Preview(prog.Root) {
		texts = append(texts, l.Text)
	}
	require.Len(t, texts, 4)
	require.Equal(t, "print(none)", texts[3])
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]struct {
		src  string
		want error
	}{
		"unknown variable": {
			src:  `print { value = ghost }`,
			want: api.ErrUnknownVariable,
		},
		"set before declare": {
			src:  `set "x" { value = 1 }`,
			want: api.ErrUnknownVariable,
		},
		"inner variable not visible outside": {
			src: `
if {
  condition = true
  then {
    variable "y" { value = 1 }
  }
}
print { value = y }`,
			want: api.ErrUnknownVariable,
		},
		"duplicate name": {
			src: `
variable "x" { value = 1 }
if {
  condition = true
  then {
    variable "x" { value = 2 }
  }
}`,
			want: api.ErrDuplicateName,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, nil, tc.src)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoad_RejectsInvalidSources(t *testing.T) {
	cases := map[string]string{
		"syntax":            `print {`,
		"unknown block":     `loop { }`,
		"unknown attribute": `print { colour = "red" }`,
		"duplicate settings": `
settings { title = "a" }
settings { title = "b" }`,
		"negative interval":  `settings { interval_ms = -1 }`,
		"unknown function":   `print { value = shout("x") }`,
		"non constant input": `variable "m" { value = "q" }
print { value = input(m) }`,
		"nested traversal": `variable "m" { value = 1 }
print { value = m.field }`,
		"duplicate then": `
if {
  condition = true
  then { }
  then { }
}`,
		"conditional expression": `print { value = true ? 1 : 2 }`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, nil, src)
			require.Error(t, err)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := newLoader(t, nil).LoadFile(context.Background(), "testdata/missing.hcl")
	require.Error(t, err)
}
