// Package js is the runtime driver: it brings up the engine, wires the
// event loop and the module system into it, evaluates the entry module,
// calls its exported main and drives the loop until all asynchronous work
// has settled.
package js

import (
	"context"
	"fmt"
	"os"

	"github.com/grafana/sobek"
	"github.com/sirupsen/logrus"

	"go.jsrt.io/jsrt/js/common"
	"go.jsrt.io/jsrt/js/eventloop"
	"go.jsrt.io/jsrt/js/modules"
	"go.jsrt.io/jsrt/js/modules/fs"
	"go.jsrt.io/jsrt/lib"
	"go.jsrt.io/jsrt/lib/fsext"
)

// Runtime is an embedded JavaScript runtime. All of its methods must be
// used from a single goroutine; the engine is not reentrant.
type Runtime struct {
	state   *lib.State
	rt      *sobek.Runtime
	loop    *eventloop.EventLoop
	modules *modules.ModuleSystem
}

var _ modules.VU = &Runtime{}

// New builds a runtime against the OS filesystem and standard streams.
func New() *Runtime {
	return NewWithState(&lib.State{
		FS:     fsext.NewOsFs(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logrus.StandardLogger(),
	})
}

// NewWithState builds a runtime around the given state bag; tests use it to
// substitute an in-memory filesystem and capture output.
func NewWithState(state *lib.State) *Runtime {
	r := &Runtime{state: state, rt: sobek.New()}
	r.loop = eventloop.New(r.rt, state.Logger, state.CompletionQueueSize)
	r.modules = modules.NewModuleSystem(r, state.Logger, map[string]modules.Module{
		"fs": fs.New(),
	})

	if err := r.rt.Set("print", r.print); err != nil {
		panic(err)
	}
	// The global fs object and the importable "fs" module share one
	// instance, so scripts observe the same object either way.
	fsExports, err := r.modules.BuiltinExports("fs")
	if err != nil {
		panic(err)
	}
	if err := r.rt.Set("fs", fsExports); err != nil {
		panic(err)
	}

	r.rt.SetImportModuleDynamically(func(_ interface{}, specifier sobek.Value, _ interface{}) {
		panic(fmt.Sprintf("dynamic import(%q) is not supported", specifier.String()))
	})
	r.rt.SetGetImportMetaProperties(r.modules.GetImportMetaProperties)

	return r
}

// Runtime implements modules.VU.
func (r *Runtime) Runtime() *sobek.Runtime { return r.rt }

// EventLoop implements modules.VU.
func (r *Runtime) EventLoop() *eventloop.EventLoop { return r.loop }

// FS implements modules.VU.
func (r *Runtime) FS() fsext.Fs { return r.state.FS }

// print writes the engine string coercion of its first argument, plus a
// newline, to the runtime's stdout.
func (r *Runtime) print(call sobek.FunctionCall) sobek.Value {
	fmt.Fprintln(r.state.Stdout, call.Argument(0).String())
	return sobek.Undefined()
}

// Execute evaluates the module graph rooted at entryPath, calls the entry
// module's exported main with no arguments, and runs the event loop until
// every task created along the way has settled. It returns main's
// immediate return value; a promise returned by main is settled during the
// loop but not awaited.
func (r *Runtime) Execute(ctx context.Context, entryPath string) (sobek.Value, error) {
	record, err := r.modules.CreateEntryModule(entryPath)
	if err != nil {
		return nil, err
	}

	promise := record.Evaluate(r.rt)
	switch promise.State() {
	case sobek.PromiseStateRejected:
		return nil, fmt.Errorf("error while evaluating %q: %s", entryPath, promise.Result().String())
	case sobek.PromiseStatePending:
		return nil, fmt.Errorf("entry module %q did not finish evaluating (top-level await is not supported)", entryPath)
	case sobek.PromiseStateFulfilled:
	}

	ns := r.rt.NamespaceObjectFor(record)
	mainVal := ns.Get("main")
	if common.IsNullish(mainVal) {
		return nil, fmt.Errorf("entry module %q does not export a main function", entryPath)
	}
	main, ok := sobek.AssertFunction(mainVal)
	if !ok {
		return nil, fmt.Errorf("the main export of %q is not callable", entryPath)
	}

	result, err := main(sobek.Undefined())
	if err != nil {
		return nil, err
	}

	if err := r.loop.Run(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
