// Package widgets provides the built-in widget catalog: literal values,
// arithmetic, comparison, logic and text expressions, variable access,
// user prompts and the statement widgets that create and write variables,
// branch, loop and print.
//
// Expression widgets occupy named slots of other widgets and never yield
// checkpoints. Statement widgets are body members; each yields one step
// checkpoint for itself before its observable effect and evaluates its
// slots behind an await checkpoint, so prompts never count as steps.
//
// Incomplete widgets evaluate to nil, rendered as "none". Only genuine
// runtime failures, such as division by zero or a failing prompter,
// return an *api.RuntimeError.
package widgets
