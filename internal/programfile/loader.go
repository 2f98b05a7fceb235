// Package programfile loads program descriptions written in HCL and
// turns them into widget trees placed in a root executor.
//
// A description is a sequence of statement blocks executed top to bottom:
//
//	settings {
//	  title       = "Doubler"
//	  interval_ms = 250
//	}
//
//	variable "x" { value = input("A number?") }
//	set "x" { value = x * 2 }
//	if {
//	  condition = x > 10
//	  then {
//	    print { value = "big ${x}" }
//	  }
//	  else {
//	    print { value = "small" }
//	  }
//	}
//	repeat {
//	  count = 3
//	  body {
//	    print { value = upper("hi") }
//	  }
//	}
//
// Variables are resolved lexically at load time, so a reference to a name
// that is not yet declared in an enclosing body is an error.
package programfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/nnorbert/codedam/internal/ctxlog"
	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/pkg/api"
)

// Settings is the optional settings block of a description.
type Settings struct {
	Title      string `hcl:"title,optional"`
	IntervalMS int    `hcl:"interval_ms,optional"`
}

// Interval is the auto-play interval, zero when unset.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}

// Program is a loaded description.
type Program struct {
	Root     *engine.Executor
	Settings Settings
}

// Loader builds programs from HCL sources.
type Loader struct {
	registry *engine.Registry
	prompter api.Prompter
}

// NewLoader returns a loader whose programs use registry and whose
// prompting widgets talk to p. A nil p means api.NoopPrompter.
func NewLoader(registry *engine.Registry, p api.Prompter) *Loader {
	if p == nil {
		p = api.NoopPrompter{}
	}
	return &Loader{registry: registry, prompter: p}
}

// LoadFile reads and loads the description at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %s: %w", path, err)
	}
	return l.Load(ctx, path, src)
}

// Load parses src, reported as filename in diagnostics, and builds the
// program.
func (l *Loader) Load(ctx context.Context, filename string, src []byte) (*Program, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse program %s: %w", filename, diags)
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode program %s: %w", filename, diags)
	}

	settingsBlock, diags := findUniqueBlock(content.Blocks, "settings")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode program %s: %w", filename, diags)
	}
	var settings Settings
	if settingsBlock != nil {
		if diags := gohcl.DecodeBody(settingsBlock.Body, nil, &settings); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode settings in %s: %w", filename, diags)
		}
		if settings.IntervalMS < 0 {
			return nil, fmt.Errorf("%s: interval_ms must not be negative", settingsBlock.DefRange)
		}
	}

	root := engine.NewExecutorWithConfig(engine.Config{
		Name:     settings.Title,
		Registry: l.registry,
		Prompter: l.prompter,
	})
	b := &builder{ctx: ctx, prompter: l.prompter}
	if err := b.statements(root, content.Blocks); err != nil {
		root.Destroy()
		return nil, fmt.Errorf("failed to build program %s: %w", filename, err)
	}

	logger.Debug("Program loaded.", "file", filename, "statements", b.count, "title", root.Name())
	return &Program{Root: root, Settings: settings}, nil
}

// findUniqueBlock returns the only block of type name, or a diagnostic
// when there is more than one.
func findUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics
	for _, block := range blocks {
		if block.Type != name {
			continue
		}
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed.",
				Subject:  &block.DefRange,
			})
		}
		found = block
	}
	return found, diags
}
