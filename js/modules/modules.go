// Package modules defines the module system of the runtime: how import
// specifiers map to compiled modules, how user modules are cached, and how
// built-in modules written in Go are exposed to script.
package modules

import (
	"github.com/grafana/sobek"

	"go.jsrt.io/jsrt/js/eventloop"
	"go.jsrt.io/jsrt/lib/fsext"
)

// VU gives module code access to the pieces of the runtime it may touch.
// Every method must be used from the loop goroutine only.
type VU interface {
	// Runtime returns the sobek runtime.
	Runtime() *sobek.Runtime

	// EventLoop returns the loop asynchronous module operations register
	// their tasks with.
	EventLoop() *eventloop.EventLoop

	// FS returns the filesystem visible to script.
	FS() fsext.Fs
}

// Module is the interface built-in (Go) modules implement.
type Module interface {
	// NewModuleInstance returns the per-runtime instance of the module.
	NewModuleInstance(VU) Instance
}

// Instance is one runtime's instance of a built-in module.
type Instance interface {
	// Exports returns the exports of the module instance.
	Exports() Exports
}

// Exports declares what a built-in module exposes to script. Default
// becomes the module's default export; Named entries become named exports.
type Exports struct {
	Default interface{}
	Named   map[string]interface{}
}
