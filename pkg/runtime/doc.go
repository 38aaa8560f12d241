// Package runtime executes submitted scripts in an embedded, interruptible
// ECMAScript engine (goja).
//
// A Namespace is the global scope of one submission: a fresh goja runtime,
// the names the environment builder injected into it, the captured output
// streams and the submission's drawing context. The Harness runs code in a
// Namespace under a deadline and reports what happened as a RawRunResult.
//
// Termination is real: on deadline the runtime is interrupted and the run's
// context is cancelled so blocking capabilities return. A script that still
// does not yield within the grace window is abandoned; its namespace is not
// inspected afterwards.
package runtime
