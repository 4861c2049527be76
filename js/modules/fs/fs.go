// Package fs exposes asynchronous file access to script, both as the
// importable "fs" module and as the global fs object.
package fs

import (
	"io"
	"os"
	"reflect"

	"github.com/grafana/sobek"

	"go.jsrt.io/jsrt/js/common"
	"go.jsrt.io/jsrt/js/eventloop"
	"go.jsrt.io/jsrt/js/modules"
	"go.jsrt.io/jsrt/lib/fsext"
)

type (
	// RootModule is the global module instance that will create module
	// instances for each runtime.
	RootModule struct{}

	// ModuleInstance represents an instance of the fs module.
	ModuleInstance struct {
		vu      modules.VU
		exports *sobek.Object
	}
)

var (
	_ modules.Module   = &RootModule{}
	_ modules.Instance = &ModuleInstance{}
)

// New returns a pointer to a new RootModule instance.
func New() *RootModule {
	return &RootModule{}
}

// NewModuleInstance implements the modules.Module interface.
func (*RootModule) NewModuleInstance(vu modules.VU) modules.Instance {
	mi := &ModuleInstance{vu: vu}
	rt := vu.Runtime()
	mi.exports = rt.NewObject()
	mustSet(rt, mi.exports, "openFile", mi.openFile)
	return mi
}

// Exports implements the modules.Instance interface.
func (mi *ModuleInstance) Exports() modules.Exports {
	return modules.Exports{Default: mi.exports}
}

func mustSet(rt *sobek.Runtime, obj *sobek.Object, name string, value interface{}) {
	if err := obj.Set(name, value); err != nil {
		common.Throw(rt, err)
	}
}

// file is the native state behind one script-side file handle. The open
// task stores the underlying fsext.File here; the method tasks read it.
// Settlement order through the event loop makes that hand-off safe.
type file struct {
	vu     modules.VU
	handle fsext.File
}

// openFile opens path for reading and writing, creating it if missing
// (never truncating), and returns a promise for the handle object. The
// handle itself is built synchronously; the open task only fills in the
// native file, and a continuation substitutes the handle as the promise's
// resolution value.
func (mi *ModuleInstance) openFile(call sobek.FunctionCall) sobek.Value {
	rt := mi.vu.Runtime()
	path := call.Argument(0).String()

	f := &file{vu: mi.vu}
	handleObj := f.buildObject(rt)

	fs := mi.vu.FS()
	opened := mi.vu.EventLoop().NewTask(func() eventloop.Outcome {
		h, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return eventloop.Reject(eventloop.StringValue([]byte(err.Error())))
		}
		f.handle = h
		return eventloop.Resolve(eventloop.Undefined())
	})

	return chain(rt, opened, func(sobek.FunctionCall) sobek.Value {
		return handleObj
	})
}

// chain is promise.then(onFulfilled) driven from Go, used to map a task's
// scalar resolution onto a richer value.
func chain(rt *sobek.Runtime, promise *sobek.Promise, onFulfilled func(sobek.FunctionCall) sobek.Value) sobek.Value {
	promiseObj := rt.ToValue(promise).ToObject(rt)
	then, ok := sobek.AssertFunction(promiseObj.Get("then"))
	if !ok {
		common.ThrowTypeError(rt, "promise has no then method")
	}
	chained, err := then(promiseObj, rt.ToValue(onFulfilled))
	if err != nil {
		common.Throw(rt, err)
	}
	return chained
}

func (f *file) buildObject(rt *sobek.Runtime) *sobek.Object {
	obj := rt.NewObject()
	mustSet(rt, obj, "content", f.content)
	mustSet(rt, obj, "write", f.write)
	mustSet(rt, obj, "seek", f.seek)
	return obj
}

// content rewinds to the start and reads the file to the end, resolving
// with its contents as a string.
func (f *file) content(_ sobek.FunctionCall) sobek.Value {
	return f.rt().ToValue(f.vu.EventLoop().NewTask(func() eventloop.Outcome {
		if _, err := f.handle.Seek(0, io.SeekStart); err != nil {
			return eventloop.Reject(eventloop.StringValue([]byte(err.Error())))
		}
		data, err := io.ReadAll(f.handle)
		if err != nil {
			return eventloop.Reject(eventloop.StringValue([]byte(err.Error())))
		}
		return eventloop.Resolve(eventloop.StringValue(data))
	}))
}

// write writes its string argument at the current position and resolves
// with the number of bytes written. A non-string argument is a TypeError,
// thrown synchronously.
func (f *file) write(call sobek.FunctionCall) sobek.Value {
	arg := call.Argument(0)
	if arg.ExportType() == nil || arg.ExportType().Kind() != reflect.String {
		common.ThrowTypeError(f.rt(), "write expects a string argument")
	}
	data := []byte(arg.String())

	return f.rt().ToValue(f.vu.EventLoop().NewTask(func() eventloop.Outcome {
		if _, err := f.handle.Write(data); err != nil {
			return eventloop.Reject(eventloop.StringValue([]byte(err.Error())))
		}
		if err := f.handle.Sync(); err != nil {
			return eventloop.Reject(eventloop.StringValue([]byte(err.Error())))
		}
		return eventloop.Resolve(eventloop.NumberValue(int32(len(data))))
	}))
}

// seek moves the file position pos bytes from the beginning. The argument
// is coerced to an unsigned 32-bit integer; values that don't coerce end up
// as 0.
func (f *file) seek(call sobek.FunctionCall) sobek.Value {
	pos := uint32(call.Argument(0).ToInteger())

	return f.rt().ToValue(f.vu.EventLoop().NewTask(func() eventloop.Outcome {
		if _, err := f.handle.Seek(int64(pos), io.SeekStart); err != nil {
			return eventloop.Reject(eventloop.StringValue([]byte(err.Error())))
		}
		return eventloop.Resolve(eventloop.Undefined())
	}))
}

func (f *file) rt() *sobek.Runtime {
	return f.vu.Runtime()
}
