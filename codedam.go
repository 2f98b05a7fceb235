package codedam

import (
	"context"
	"fmt"

	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/internal/programfile"
	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Widget               = api.Widget
	Body                 = api.Body
	Value                = api.Value
	Prompter             = api.Prompter
	PromptRequest        = api.PromptRequest
	NoopPrompter         = api.NoopPrompter
	Status               = api.Status
	StepResult           = api.StepResult
	RunInfo              = api.RunInfo
	Snapshot             = api.Snapshot
	ScopeFrame           = api.ScopeFrame
	VariableView         = api.VariableView
	RuntimeError         = api.RuntimeError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	Executor   = engine.Executor
	Controller = engine.Controller
	Registry   = engine.Registry

	// ProgramFile is a program loaded from an HCL description.
	ProgramFile = programfile.Program
	// FileSettings is the settings block of a program description.
	FileSettings = programfile.Settings
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	FormatValue          = api.FormatValue
	IsRuntimeError       = api.IsRuntimeError
)

// Re-export status values for convenience.

const (
	StatusIdle     = api.StatusIdle
	StatusRunning  = api.StatusRunning
	StatusPaused   = api.StatusPaused
	StatusFinished = api.StatusFinished
	StatusFailed   = api.StatusFailed
)

// Re-export the error taxonomy.

var (
	ErrDivisionByZero   = api.ErrDivisionByZero
	ErrAbandoned        = api.ErrAbandoned
	ErrRoleMismatch     = api.ErrRoleMismatch
	ErrConstantReassign = api.ErrConstantReassign
	ErrUnknownVariable  = api.ErrUnknownVariable
	ErrDuplicateName    = api.ErrDuplicateName
	ErrPromptFailed     = api.ErrPromptFailed
	ErrNotStarted       = api.ErrNotStarted
)

// Constructors.
// These wrap the internal packages so external callers never need to
// import them.

// NewRegistry returns a registry holding the built-in widget catalog.
func NewRegistry() *Registry {
	reg := engine.NewRegistry()
	if err := reg.RegisterAll(widgets.Catalog()...); err != nil {
		panic(fmt.Sprintf("codedam: built-in catalog: %v", err))
	}
	return reg
}

// NewProgram returns an empty root body named name whose widgets built
// through RegisterWidget talk to p.
func NewProgram(name string, p Prompter) *Executor {
	return engine.NewExecutorWithConfig(engine.Config{
		Name:     name,
		Registry: NewRegistry(),
		Prompter: p,
	})
}

// NewController returns an idle controller notifying obs.
func NewController(obs Observer) *Controller {
	return engine.NewControllerWithConfig(engine.Config{Observer: obs})
}

// LoadProgramFile loads the HCL program description at path. Prompting
// widgets of the program talk to p.
func LoadProgramFile(ctx context.Context, path string, p Prompter) (*ProgramFile, error) {
	return programfile.NewLoader(NewRegistry(), p).LoadFile(ctx, path)
}

// LoadProgram loads an HCL program description from src.
func LoadProgram(ctx context.Context, filename string, src []byte, p Prompter) (*ProgramFile, error) {
	return programfile.NewLoader(NewRegistry(), p).Load(ctx, filename, src)
}

// Preview renders the program source, marking the lines in active.
func Preview(program Body, active []string) string {
	return widgets.Format(widgets.Preview(program), active)
}
