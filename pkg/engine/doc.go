// Package engine runs code submissions end to end.
//
// For every submission the Engine builds a fresh namespace, runs the code
// through the execution harness, captures figures and object previews in
// parallel when the run succeeded, and assembles exactly one report. A
// bounded worker pool limits how many submissions run at once; waiting for
// a slot honours the caller's context, but once a run has started it is
// detached from the caller and continues to its own deadline.
//
// Engine implements transport.Runner.
package engine
