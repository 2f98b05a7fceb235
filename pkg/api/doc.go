// Package api contains the core building blocks of the codedam execution
// model: widgets, bodies, bindings, checkpoints and observers.
//
// Most users interact with the higher-level codedam package, which
// re-exports selected types and wires the built-in widget catalog. The api
// package is intended for custom widgets, prompt providers and observers.
//
// # Widgets and Bodies
//
// A Widget is one block of a visual program. Statement widgets are members
// of a Body, an ordered list that also owns the variable bindings its
// members create. Expression widgets occupy named slots of other widgets
// and produce a Value when evaluated.
//
// Bodies nest: control widgets such as if and repeat own child bodies, and
// the parent chain forms the lexical scope used to resolve variables.
//
// # Checkpoints and Routines
//
// Execution is a Routine, a pull-based sequence of checkpoints built with
// NewRoutine. Two kinds exist:
//
//   - CheckpointStep marks a meaningful program step. Drivers pause here.
//   - CheckpointAwait wraps a Pending external result, typically a user
//     prompt. Drivers wait for it to settle and continue without pausing.
//
// A statement yields its step before it changes any observable state, so a
// paused program always shows the effect of the previous step only.
//
// # Values
//
// Values are float64, string, bool or nil. Nil renders as "none" and is
// what incomplete widgets evaluate to. Truthy, ToNumber, Equal and
// FormatValue define the loose conversions shared by every widget.
//
// # Observability
//
// The Observer interface receives run, step, await and scope callbacks from
// the execution controller. LoggingObserver, BasicMetrics and
// CompositeObserver are ready-made implementations.
package api
