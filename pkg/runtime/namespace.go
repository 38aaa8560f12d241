package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/rhuss/codeinterp/pkg/figure"
)

// Namespace is the global scope of one submission. It is owned by a single
// harness invocation and must not be shared between submissions.
type Namespace struct {
	VM      *goja.Runtime
	Figures *figure.Context
	Stdout  *Output
	Stderr  *Output

	ctx       context.Context
	injected  map[string]bool
	lexical   []string
	abandoned bool
}

// Binding is one user-defined top-level name and its value. Err is set
// when reading the value failed (a throwing getter, an interrupted read);
// Value is nil then.
type Binding struct {
	Name  string
	Value goja.Value
	Err   error
}

// NewNamespace wraps vm. Every own property already present on the global
// object (the ECMAScript built-ins) is recorded as injected.
func NewNamespace(vm *goja.Runtime) *Namespace {
	ns := &Namespace{
		VM:       vm,
		Figures:  figure.NewContext(),
		Stdout:   NewOutput(DefaultOutputLimit),
		Stderr:   NewOutput(DefaultOutputLimit),
		ctx:      context.Background(),
		injected: map[string]bool{},
	}
	for _, name := range builtinNames(vm) {
		ns.injected[name] = true
	}
	return ns
}

// builtinNames lists the own properties of the global object, including
// the non-enumerable built-ins.
func builtinNames(vm *goja.Runtime) []string {
	v, err := vm.RunString("Object.getOwnPropertyNames(globalThis)")
	if err != nil {
		return nil
	}
	var names []string
	if err := vm.ExportTo(v, &names); err != nil {
		return nil
	}
	return names
}

// Set binds value under name and records the name as injected.
func (ns *Namespace) Set(name string, value any) error {
	if err := ns.VM.Set(name, value); err != nil {
		return err
	}
	ns.injected[name] = true
	return nil
}

// Injected reports whether name was put there by the environment.
func (ns *Namespace) Injected(name string) bool {
	return ns.injected[name]
}

// InjectedNames returns every injected name, sorted.
func (ns *Namespace) InjectedNames() []string {
	names := make([]string, 0, len(ns.injected))
	for n := range ns.injected {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Context returns the context of the current run. Capabilities that block
// (queries, outbound HTTP) must honour it.
func (ns *Namespace) Context() context.Context {
	return ns.ctx
}

// Abandoned reports whether the harness gave up waiting for the script.
// An abandoned namespace's runtime may still be executing.
func (ns *Namespace) Abandoned() bool {
	return ns.abandoned
}

// Bindings returns the user-defined top-level bindings: global properties
// (var declarations and implicit globals) followed by top-level let and
// const declarations. Injected names, names starting with an underscore and
// callables are left out. Reading a value never panics; failures are
// reported per binding.
func (ns *Namespace) Bindings() []Binding {
	var out []Binding
	seen := map[string]bool{}

	skip := func(name string) bool {
		return seen[name] || ns.injected[name] || strings.HasPrefix(name, "_")
	}
	add := func(name string, v goja.Value, err error) {
		seen[name] = true
		if err != nil {
			out = append(out, Binding{Name: name, Err: err})
			return
		}
		if v == nil {
			return
		}
		if _, callable := goja.AssertFunction(v); callable {
			return
		}
		out = append(out, Binding{Name: name, Value: v})
	}

	var keys []string
	if err := ns.Guard(func() { keys = ns.VM.GlobalObject().Keys() }); err != nil {
		return nil
	}
	for _, name := range keys {
		if skip(name) {
			continue
		}
		var v goja.Value
		err := ns.Guard(func() { v = ns.VM.GlobalObject().Get(name) })
		add(name, v, err)
	}
	for _, name := range ns.lexical {
		if skip(name) {
			continue
		}
		v, err := ns.VM.RunString(name)
		if err != nil {
			var intr *goja.InterruptedError
			if errors.As(err, &intr) {
				add(name, nil, err)
			}
			// Otherwise declared but never initialised (the run stopped
			// before it).
			continue
		}
		add(name, v, nil)
	}
	return out
}

// Guard runs fn against the runtime outside of script execution. A thrown
// exception, an interruption or any other panic is returned as an error
// and leaves the runtime usable.
func (ns *Namespace) Guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	if exc := ns.VM.Try(fn); exc != nil {
		return exc
	}
	return nil
}

// Deadline interrupts any script code the runtime runs on behalf of Go
// callers (getters, toString, proxy traps) once ctx is done. The returned
// function disarms it and clears a pending interrupt; it must be called
// before the namespace is used again.
func (ns *Namespace) Deadline(ctx context.Context) (stop func()) {
	fired := make(chan struct{})
	disarm := context.AfterFunc(ctx, func() {
		ns.VM.Interrupt(ErrCaptureDeadline)
		close(fired)
	})
	return func() {
		if !disarm() {
			<-fired
		}
		ns.VM.ClearInterrupt()
	}
}

// lexicalNames returns the identifiers declared with top-level let or const.
// Destructuring patterns are skipped. Parse errors yield no names; the run
// itself reports the syntax error.
func lexicalNames(code string) []string {
	prog, err := parser.ParseFile(nil, "", code, 0)
	if err != nil {
		return nil
	}
	var names []string
	for _, st := range prog.Body {
		decl, ok := st.(*ast.LexicalDeclaration)
		if !ok {
			continue
		}
		for _, b := range decl.List {
			if id, ok := b.Target.(*ast.Identifier); ok {
				names = append(names, string(id.Name))
			}
		}
	}
	return names
}
