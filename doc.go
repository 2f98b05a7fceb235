// Package codedam provides a step-by-step interpreter for programs built
// from visual code blocks ("widgets").
//
// A program is a tree of widgets placed in nested bodies. The interpreter
// executes it one visible step at a time, suspends while an external
// answer (a prompt, a confirmation) is outstanding, and lets a frontend
// pause, resume, auto-play or stop the run while rendering the active
// line and the variables in scope.
//
// # Core Concepts
//
// The programming model is small:
//
//  1. Widget
//  2. Executor
//  3. Controller
//  4. ProgramBuilder
//  5. Session
//
// # Widget
//
// A Widget is either a statement, which occupies a line of a body, or an
// expression, which fills a named slot of another widget. The built-in
// catalog (see NewRegistry) covers literals, arithmetic, comparisons,
// logic, text, variables, input, if, repeat and print.
//
// # Executor
//
// An Executor owns one body: its ordered widgets and the variables declared
// in it. Bodies nest, and variable lookup walks outwards through the
// enclosing bodies. Executing a body yields a checkpoint before each
// statement and around each external wait.
//
// # Controller
//
// The Controller drives one run of a program:
//   - Step advances to the next statement, waiting on outstanding answers
//   - Play steps on a timer, Pause cancels it
//   - Stop abandons the run, including one blocked on a prompt
//
// Observers receive every lifecycle event. LoggingObserver, BasicMetrics
// and the SQLite Journal are provided.
//
// # ProgramBuilder
//
// ProgramBuilder defines programs in Go:
//
//	codedam.NewBuilder("Doubler").
//	    Var("x", codedam.Input("A number?")).
//	    Set("x", codedam.Mul(codedam.Ref("x"), codedam.Num(2))).
//	    Print(codedam.Ref("x"))
//
// Programs can also be loaded from HCL files with LoadProgramFile.
//
// # Session
//
// Session bundles a program, a controller and metrics for the common case
// of running a program from Go code or a terminal.
//
// For examples, see the /examples directory.
package codedam
