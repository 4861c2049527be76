package modules

import (
	"fmt"

	"github.com/grafana/sobek"

	"go.jsrt.io/jsrt/js/common"
)

// goModule is a sobek module record whose exports are provided by Go code
// instead of parsed JavaScript. It participates in linking like any other
// module; instantiation constructs the wrapped Module's instance.
type goModule struct {
	vu        VU
	specifier string
	mod       Module

	instance *goModuleInstance
}

var (
	_ sobek.CyclicModuleRecord   = &goModule{}
	_ sobek.CyclicModuleInstance = &goModuleInstance{}
)

func newGoModule(vu VU, specifier string, mod Module) *goModule {
	return &goModule{vu: vu, specifier: specifier, mod: mod}
}

// RequestedModules implements sobek.CyclicModuleRecord; built-ins import
// nothing.
func (gm *goModule) RequestedModules() []string { return nil }

// InitializeEnvironment implements sobek.CyclicModuleRecord.
func (gm *goModule) InitializeEnvironment() error { return nil }

// Link implements sobek.ModuleRecord; there is nothing to link.
func (gm *goModule) Link() error { return nil }

// Instantiate implements sobek.CyclicModuleRecord. The instance is created
// once per runtime and reused, so repeated imports observe the same
// exports object.
func (gm *goModule) Instantiate(_ *sobek.Runtime) (sobek.CyclicModuleInstance, error) {
	if gm.instance == nil {
		gm.instance = &goModuleInstance{
			rt: gm.vu.Runtime(),
			mi: gm.mod.NewModuleInstance(gm.vu),
		}
	}
	return gm.instance, nil
}

// GetExportedNames implements sobek.ModuleRecord.
func (gm *goModule) GetExportedNames(callback func([]string), _ ...sobek.ModuleRecord) bool {
	instance, err := gm.Instantiate(gm.vu.Runtime())
	if err != nil {
		common.Throw(gm.vu.Runtime(), fmt.Errorf("instantiating built-in module %q: %w", gm.specifier, err))
	}
	exports := instance.(*goModuleInstance).mi.Exports()
	names := make([]string, 0, len(exports.Named)+1)
	names = append(names, "default")
	for name := range exports.Named {
		names = append(names, name)
	}
	callback(names)
	return true
}

// ResolveExport implements sobek.ModuleRecord. Every export resolves within
// this module itself.
func (gm *goModule) ResolveExport(exportName string, _ ...sobek.ResolveSetElement) (*sobek.ResolvedBinding, bool) {
	return &sobek.ResolvedBinding{Module: gm, BindingName: exportName}, false
}

// Evaluate implements sobek.ModuleRecord. Built-ins are only ever evaluated
// as dependencies of a source text module, in which case the engine drives
// the cyclic machinery directly and this is never reached.
func (gm *goModule) Evaluate(_ *sobek.Runtime) *sobek.Promise {
	common.Throw(gm.vu.Runtime(), fmt.Errorf("built-in module %q cannot be the entry module", gm.specifier))
	return nil
}

type goModuleInstance struct {
	rt *sobek.Runtime
	mi Instance
}

// ExecuteModule implements sobek.CyclicModuleInstance; Go modules have no
// top-level code to run.
func (gmi *goModuleInstance) ExecuteModule(
	_ *sobek.Runtime, _, _ func(interface{}) error,
) (sobek.CyclicModuleInstance, error) {
	return gmi, nil
}

// HasTLA implements sobek.CyclicModuleInstance.
func (gmi *goModuleInstance) HasTLA() bool { return false }

// GetBindingValue implements sobek.ModuleInstance.
func (gmi *goModuleInstance) GetBindingValue(name string) sobek.Value {
	exports := gmi.mi.Exports()
	if name == "default" {
		return gmi.rt.ToValue(exports.Default)
	}
	if v, ok := exports.Named[name]; ok {
		return gmi.rt.ToValue(v)
	}
	return sobek.Undefined()
}
